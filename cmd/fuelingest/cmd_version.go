package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// buildInfo carries the same keys the run command logs on startup.
type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
}

func versionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildInfo{Version: Version, Commit: Commit, BuildDate: BuildDate}
			out := cmd.OutOrStdout()

			if asJSON {
				return json.NewEncoder(out).Encode(info)
			}

			_, err := fmt.Fprintf(out, "fuelingest %s (commit %s, built %s)\n", info.Version, info.Commit, info.BuildDate)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print build information as JSON")

	return cmd
}
