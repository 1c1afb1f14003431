package tablewriterservice

import (
	"fmt"
	"io"
	"strconv"

	"github.com/RobsonDevCode/metascan/internal/clients/models"
	"github.com/RobsonDevCode/metascan/internal/constants/tableHeaders"
	"github.com/RobsonDevCode/metascan/internal/extensions"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// DisplayScanResult writes the file name, the overall verdict and one row per engine.
func DisplayScanResult(w io.Writer, result *models.ScanResult) error {
	if result == nil {
		return fmt.Errorf("no scan result to display")
	}

	fmt.Fprintf(w, "\nfilename: %s\n", color.CyanString("%s", result.FileInfo.DisplayName))
	if result.FileInfo.Sha256 != "" {
		fmt.Fprintf(w, "sha256: %s\n", result.FileInfo.Sha256)
	}

	verdict := result.ScanResults.ScanAllResultA
	if extensions.IsClean(result) {
		fmt.Fprintf(w, "overall_status: %s\n", color.GreenString("%s", verdict))
	} else {
		fmt.Fprintf(w, "overall_status: %s\n", color.RedString("%s", verdict))
	}

	if len(result.ScanResults.ScanDetails) == 0 {
		fmt.Fprint(w, color.YellowString("No engine results reported\n"))
		return nil
	}

	fmt.Fprintf(w, "engines: %d, detections: %d\n", len(result.ScanResults.ScanDetails), countDetections(result))

	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNormal}, //wrap long threat names
				Alignment:    tw.CellAlignment{Global: tw.AlignCenter},
				ColMaxWidths: tw.CellWidth{Global: 30},
			},
		}),
	)

	table.Header(tableHeaders.EngineTableHeaders)

	for _, name := range extensions.SortedEngines(result) {
		engine := result.ScanResults.ScanDetails[name]
		if err := table.Append([]string{
			name,
			extensions.TruncateString(extensions.ThreatFound(engine), 60),
			strconv.Itoa(engine.ScanResultI),
			extensions.FormatDefTime(engine.DefTime),
			strconv.Itoa(engine.ScanTime),
		}); err != nil {
			return fmt.Errorf("error appending engine %s to table: %w", name, err)
		}
	}

	return table.Render()
}

// DisplayTimeout reports a submission that was still being scanned when polling gave up.
func DisplayTimeout(w io.Writer, timeout models.Timeout) {
	fmt.Fprintf(w, "%s\n", color.RedString("ERROR: Scan did not complete within %s (%d status checks, last progress %d%%)",
		timeout.After, timeout.Attempts, timeout.Progress))
	fmt.Fprintf(w, "INFO: data_id = %s, check again later with a longer --timeout\n", timeout.DataId)
}

func countDetections(result *models.ScanResult) int {
	detections := 0
	for _, engine := range result.ScanResults.ScanDetails {
		if engine.ThreatFound != "" {
			detections++
		}
	}
	return detections
}
