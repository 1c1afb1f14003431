package cmd

import (
	scanfileservice "github.com/RobsonDevCode/metascan/internal/services/scanFileService"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path to file]",
	Short: "scan a file for malware",
	Long: `scan computes the SHA256 of the file and looks it up in the Metadefender cloud.

		   If the hash is unknown the file is uploaded and polled until every engine
           has reported, or until --timeout is reached.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runScanFile(cmd, args[0])
	},
}

const (
	TimeoutFlag   = "timeout"
	IntervalFlag  = "interval"
	BackoffFlag   = "backoff"
	ConfirmFlag   = "confirm"
	RescanFlag    = "rescan"
	ExportFlag    = "export"
	ExportDirFlag = "export-dir"
)

// runScanFile reports every scan failure itself, the command still succeeds.
func runScanFile(cmd *cobra.Command, filePath string) error {
	ctx := cmd.Context()

	request := scanRequest(cmd)
	if _, err := services.ScanFile.ScanFile(ctx, filePath, request); err != nil {
		scanfileservice.ReportError(cmd.OutOrStdout(), filePath, err)
	}

	return nil
}

func scanRequest(cmd *cobra.Command) scanfileservice.ScanRequest {
	rescan, _ := cmd.Flags().GetBool(RescanFlag)
	export, _ := cmd.Flags().GetString(ExportFlag)
	exportDir, _ := cmd.Flags().GetString(ExportDirFlag)

	return scanfileservice.ScanRequest{
		Rescan:    rescan,
		Confirm:   loadedConfig.UploadSettings.Confirm,
		Export:    export,
		ExportDir: exportDir,
	}
}

func init() {
	addScanFlags(scanCmd)

	rootCmd.AddCommand(scanCmd)
}
