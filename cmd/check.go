package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PatrickBoulton12345/livestreamrepeater/internal/ffmpeg"
)

// CreateCheckCmd creates the check command: probe the ffmpeg binary
// the supervisor would use and report its version.
func CreateCheckCmd() *cobra.Command {
	var ffmpegPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that ffmpeg is available",
		Long: `Runs the ffmpeg binary the supervisor would use and prints its
version. Exits non-zero when the binary is missing or not executable.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ver, err := ffmpeg.Version(ffmpegPath)
			if err != nil {
				return fmt.Errorf("ffmpeg not available: %w", err)
			}

			bin := ffmpegPath
			if bin == "" {
				bin = ffmpeg.DefaultBinary
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", bin, ver)
			return nil
		},
	}

	cmd.Flags().StringVar(&ffmpegPath, "ffmpeg", "", "Path to the ffmpeg binary (default: resolve from PATH)")

	return cmd
}
