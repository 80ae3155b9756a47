package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PatrickBoulton12345/livestreamrepeater/internal/ffmpeg"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/streams"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/streams/store"
)

// CreateArgsCmd creates the args command: print the full ffmpeg
// command line for one defined stream. The output includes the stream
// key, so it is meant for copy-paste debugging, not for logs.
func CreateArgsCmd() *cobra.Command {
	var configFile string
	var ffmpegPath string

	cmd := &cobra.Command{
		Use:   "args [stream-id]",
		Short: "Print the ffmpeg command line for a stream",
		Long: `Builds the exact ffmpeg invocation for one stream from the
definitions file and prints it, so the push can be reproduced by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			streamID := posArgs[0]

			definitions := store.NewTOML(configFile)
			if err := definitions.Load(); err != nil {
				return streams.NewStreamError(streams.ErrCodeStoreError,
					fmt.Sprintf("loading definitions from %s", configFile), err)
			}

			spec, ok := definitions.GetStream(streamID)
			if !ok {
				return streams.NewStreamError(streams.ErrCodeStreamNotFound,
					fmt.Sprintf("stream %q is not defined in %s", streamID, configFile), nil)
			}

			argv, err := streams.BuildArgs(spec.Source, spec.Push)
			if err != nil {
				return err
			}

			bin := ffmpegPath
			if bin == "" {
				bin = ffmpeg.DefaultBinary
			}
			fmt.Fprintln(cmd.OutOrStdout(), bin+" "+strings.Join(argv, " "))
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "streams", "streams.toml", "Path to the stream definitions file")
	cmd.Flags().StringVar(&ffmpegPath, "ffmpeg", "", "Path to the ffmpeg binary (default: resolve from PATH)")

	return cmd
}
