package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kodesearch/semcode/internal/errs"
)

// newJobsCmd groups job lifecycle subcommands. This build runs every
// operation synchronously in-process (see errBackgroundJobsNotSupported),
// so job tracking has nothing to report; these subcommands exist to
// satisfy the CLI surface and fail clearly rather than silently.
func newJobsCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect or control background jobs",
	}

	notSupported := func(cmd *cobra.Command, args []string) error {
		return errs.Expected("CLI", "JOBS_NOT_SUPPORTED",
			"this build has no background job tracker; every use case runs synchronously in the invoking process")
	}

	root.AddCommand(&cobra.Command{Use: "run", Short: "Start a background job (unsupported)", RunE: notSupported})
	root.AddCommand(&cobra.Command{Use: "status", Short: "Report a background job's status (unsupported)", RunE: notSupported})
	root.AddCommand(&cobra.Command{Use: "cancel", Short: "Cancel a background job (unsupported)", RunE: notSupported})
	return root
}
