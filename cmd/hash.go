package cmd

import (
	"errors"
	"fmt"

	hashservice "github.com/RobsonDevCode/metascan/internal/services/hashService"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash [path to file]...",
	Short: "print the SHA256 used to look files up",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHash,
}

func runHash(cmd *cobra.Command, paths []string) error {
	digests, err := services.Hasher.ComputeDigests(cmd.Context(), paths)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, digest := range digests {
		switch {
		case errors.Is(digest.Err, hashservice.ErrFileNotFound):
			fmt.Fprintf(out, "%s\n", color.RedString("ERROR: %s does not exist", digest.Path))
		case digest.Err != nil:
			fmt.Fprintf(out, "%s\n", color.RedString("ERROR: %s", digest.Err.Error()))
		default:
			fmt.Fprintf(out, "%s  %s\n", digest.Sha256, digest.Path)
		}
	}

	return nil
}

func init() {
	rootCmd.AddCommand(hashCmd)
}
