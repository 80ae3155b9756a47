// Package cmd implements the livestreamrepeater CLI.
package cmd

import (
	"github.com/spf13/cobra"
)

// CreateRootCmd creates the root command with all subcommands attached.
func CreateRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "livestreamrepeater",
		Short: "Supervise looped media pushes to RTMP ingests",
		Long: `livestreamrepeater keeps one ffmpeg process per configured stream
pushing media to an RTMP ingest, relaunching crashed processes and
reporting progress. Stream definitions live in a TOML file and are
hot-reloaded on edit.`,
		SilenceUsage: true,
	}

	root.AddCommand(CreateRunCmd())
	root.AddCommand(CreateCheckCmd())
	root.AddCommand(CreateArgsCmd())
	root.AddCommand(CreateVersionCmd())
	return root
}

// Execute runs the CLI.
func Execute() error {
	return CreateRootCmd().Execute()
}
