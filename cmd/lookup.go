package cmd

import (
	"strings"

	scanfileservice "github.com/RobsonDevCode/metascan/internal/services/scanFileService"
	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [sha256]",
	Short: "show existing scan results for a hash without uploading anything",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

func runLookup(cmd *cobra.Command, args []string) error {
	digest := strings.ToLower(strings.TrimSpace(args[0]))

	export, _ := cmd.Flags().GetString(ExportFlag)
	exportDir, _ := cmd.Flags().GetString(ExportDirFlag)
	request := scanfileservice.ScanRequest{Export: export, ExportDir: exportDir}

	if _, err := services.ScanFile.LookupDigest(cmd.Context(), digest, request); err != nil {
		scanfileservice.ReportError(cmd.OutOrStdout(), digest, err)
	}

	return nil
}

func init() {
	lookupCmd.Flags().String(ExportFlag, scanfileservice.ExportNever, "Export engine results to excel: never, always or ask")
	lookupCmd.Flags().String(ExportDirFlag, "", "Directory excel exports are saved to (default ./export)")

	rootCmd.AddCommand(lookupCmd)
}
