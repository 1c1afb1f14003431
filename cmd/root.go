package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/RobsonDevCode/metascan/internal/configuration"
	hashservice "github.com/RobsonDevCode/metascan/internal/services/hashService"
	scanfileservice "github.com/RobsonDevCode/metascan/internal/services/scanFileService"
	"github.com/spf13/cobra"
)

// Services is everything the commands need once configuration is loaded.
type Services struct {
	ScanFile scanfileservice.ScanFileService
	Hasher   *hashservice.Hasher
	Close    func() error
}

// ServiceFactory builds the services from the loaded configuration.
type ServiceFactory func(config *configuration.Config, verbose bool, out io.Writer) (*Services, error)

var (
	serviceFactory ServiceFactory
	services       *Services
	loadedConfig   *configuration.Config
)

const (
	ConfigFlag  = "config"
	VerboseFlag = "verbose"
)

var rootCmd = &cobra.Command{
	Use:   "metascan [path to file]",
	Short: "scan a file with the Metadefender cloud",
	Long: `metascan looks a file up in the Metadefender cloud by its SHA256.
		   If Metadefender has no record of it, the file is uploaded and the
		   scan results of every engine are printed once the scan completes.`,
	Args:               cobra.MaximumNArgs(1),
	SilenceUsage:       true,
	PersistentPostRunE: tearDownServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runScanFile(cmd, args[0])
	},
}

// cant DI directly into the commands so we use a setter
func SetServiceFactory(factory ServiceFactory) {
	serviceFactory = factory
}

// Execute runs the command line; an interrupt cancels any request or poll in flight.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		os.Exit(1)
	}
}

func setUpServices(cmd *cobra.Command, args []string) error {
	if printsUsage(cmd, args) {
		return nil
	}

	if serviceFactory == nil {
		return fmt.Errorf("error staring command line: no service factory set")
	}

	configPath, _ := cmd.Flags().GetString(ConfigFlag)
	verbose, _ := cmd.Flags().GetBool(VerboseFlag)

	config, err := configuration.Load(configPath)
	if err != nil {
		return err
	}

	if err := applyPollFlags(cmd, config); err != nil {
		return err
	}

	built, err := serviceFactory(config, verbose, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("error staring command line: %w", err)
	}

	loadedConfig = config
	services = built
	return nil
}

// printsUsage is true for the file scanning commands when no file was given,
// they only print help and need no configuration.
func printsUsage(cmd *cobra.Command, args []string) bool {
	return len(args) == 0 && (cmd == rootCmd || cmd == scanCmd)
}

func tearDownServices(cmd *cobra.Command, args []string) error {
	if services == nil || services.Close == nil {
		return nil
	}

	err := services.Close()
	services = nil
	return err
}

func applyPollFlags(cmd *cobra.Command, config *configuration.Config) error {
	flags := cmd.Flags()

	if flags.Changed(TimeoutFlag) {
		timeout, _ := flags.GetDuration(TimeoutFlag)
		config.PollSettings.Timeout = timeout
	}
	if flags.Changed(IntervalFlag) {
		interval, _ := flags.GetDuration(IntervalFlag)
		config.PollSettings.Interval = interval
	}
	if flags.Changed(BackoffFlag) {
		backoff, _ := flags.GetString(BackoffFlag)
		config.PollSettings.Backoff = backoff
	}
	if flags.Changed(ConfirmFlag) {
		confirm, _ := flags.GetBool(ConfirmFlag)
		config.UploadSettings.Confirm = confirm
	}

	return config.Validate()
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().Duration(TimeoutFlag, 60*time.Second, "How long to wait for an uploaded file to be scanned")
	cmd.Flags().Duration(IntervalFlag, 10*time.Second, "Time between scan progress checks")
	cmd.Flags().String(BackoffFlag, configuration.BackoffFixed, "Wait between progress checks: fixed or exponential")
	cmd.Flags().Bool(ConfirmFlag, false, "Ask before uploading a file Metadefender has not seen")
	cmd.Flags().Bool(RescanFlag, false, "Skip the hash lookup and always upload the file")
	cmd.Flags().String(ExportFlag, scanfileservice.ExportNever, "Export engine results to excel: never, always or ask")
	cmd.Flags().String(ExportDirFlag, "", "Directory excel exports are saved to (default ./export)")
}

func init() {
	// assigned here rather than in the literal to avoid an initialization cycle
	rootCmd.PersistentPreRunE = setUpServices
	rootCmd.PersistentFlags().String(ConfigFlag, configuration.FilePath, "Path to the configuration yaml")
	rootCmd.PersistentFlags().BoolP(VerboseFlag, "v", false, "Log requests and poll progress to stderr")

	addScanFlags(rootCmd)
}
