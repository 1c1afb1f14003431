package cmd

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/RobsonDevCode/metascan/internal/configuration"
	setupservice "github.com/RobsonDevCode/metascan/internal/services/setupService"
	"github.com/spf13/cobra"
)

var setUpCmd = &cobra.Command{
	Use:   "setup",
	Short: "store the Metadefender api key so we can begin scanning files",
	Long: `setup saves your Metadefender api key (and optionally a different api url)
		   to the user settings file. METASCAN_API_KEY still takes precedence when set.`,
	Args: cobra.NoArgs,
	// setup must work before there is a usable configuration
	PersistentPreRunE:  func(cmd *cobra.Command, args []string) error { return nil },
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:               runSetUp,
}

const (
	ApiKeyFlag = "apikey"
	UrlFlag    = "url"
	ForceFlag  = "force"
)

func runSetUp(cmd *cobra.Command, args []string) error {
	apiKey, _ := cmd.Flags().GetString(ApiKeyFlag)
	url, _ := cmd.Flags().GetString(UrlFlag)
	force, _ := cmd.Flags().GetBool(ForceFlag)

	out := cmd.OutOrStdout()
	fmt.Fprint(out, "\n Setting up scanner...")

	if err := setupservice.CreateSetupFile(configuration.UserSettingsPath, apiKey, url, force); err != nil {
		return err
	}

	fmt.Fprint(out, color.GreenString("\n Scanner set up, please run scan command to scan files!\n"))
	return nil
}

func init() {
	setUpCmd.Flags().StringP(ApiKeyFlag, "k", "", "Your Metadefender api key (register at portal.opswat.com)")
	setUpCmd.Flags().StringP(UrlFlag, "u", "", "Url of the Metadefender api, defaults to the public cloud.")
	setUpCmd.Flags().BoolP(ForceFlag, "f", false, "Replace existing user settings.")
	setUpCmd.MarkFlagRequired(ApiKeyFlag)

	rootCmd.AddCommand(setUpCmd)
}
