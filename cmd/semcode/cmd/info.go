package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kodesearch/semcode/pkg/version"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print build and version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetInfo()
			return state.out.Result(map[string]any{
				"status":    "ok",
				"version":   info.Version,
				"commit":    info.Commit,
				"date":      info.Date,
				"goVersion": info.GoVersion,
				"os":        info.OS,
				"arch":      info.Arch,
			})
		},
	}
}
