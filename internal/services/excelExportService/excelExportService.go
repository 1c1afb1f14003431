package excelexportservice

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/RobsonDevCode/metascan/internal/clients/models"
	"github.com/RobsonDevCode/metascan/internal/constants/exportOptions"
	"github.com/RobsonDevCode/metascan/internal/constants/tableHeaders"
	"github.com/RobsonDevCode/metascan/internal/extensions"
	"github.com/xuri/excelize/v2"
)

const DefaultExportDir = "./export"
const engineSheetName = "Engine Results"

// ExportScanResult writes one row per engine to a new xlsx file in dir and
// returns the path of the file.
func ExportScanResult(result *models.ScanResult, dir string, now time.Time) (string, error) {
	if result == nil {
		return "", fmt.Errorf("no scan result to export")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating directory %s, %w", dir, err)
	}

	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", engineSheetName); err != nil {
		return "", fmt.Errorf("error naming sheet: %w", err)
	}
	for i, header := range tableHeaders.ExcelEngineTableHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		file.SetCellValue(engineSheetName, cell, header)
	}

	row := 2 // excel is 1 index and skip headers
	for _, name := range extensions.SortedEngines(result) {
		engine := result.ScanResults.ScanDetails[name]
		rowData := []interface{}{
			result.FileInfo.DisplayName,
			result.FileInfo.Sha256,
			result.ScanResults.ScanAllResultA,
			name,
			engine.ThreatFound,
			engine.ScanResultI,
			engine.DefTime,
			engine.ScanTime,
		}

		if err := file.SetSheetRow(engineSheetName, fmt.Sprintf("A%d", row), &rowData); err != nil {
			return "", fmt.Errorf("error writing row for %s: %w", name, err)
		}
		row++
	}

	fileName := fmt.Sprintf("scan_%s_%s.xlsx", sanitize(result.FileInfo.DisplayName), now.Format("2006-01-02T15-04-05"))
	fullPath := filepath.Join(dir, fileName)

	if err := file.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("failed to save excel to %s, %w", fullPath, err)
	}

	return fullPath, nil
}

func SelectExportScanResult() (string, error) {
	prompt := &survey.Select{
		Message: "Export Engine Results",
		Options: exportOptions.ExcelOptions,
	}

	var selectedIndex int
	if err := survey.AskOne(prompt, &selectedIndex); err != nil {
		return "", fmt.Errorf("selection error: %w", err)
	}

	return exportOptions.ExcelOptions[selectedIndex], nil
}

func sanitize(name string) string {
	if name == "" {
		return "file"
	}

	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}
