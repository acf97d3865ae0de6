package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kodesearch/semcode/internal/cliout"
	"github.com/kodesearch/semcode/internal/config"
	"github.com/kodesearch/semcode/internal/pipeline"
	"github.com/kodesearch/semcode/internal/reqctx"
)

func newIndexCmd() *cobra.Command {
	var background bool
	var force bool

	cmd := &cobra.Command{
		Use:   "index [codebaseRoot]",
		Short: "Run a full indexing pass over a codebase",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if background {
				return errBackgroundJobsNotSupported
			}
			root, err := resolveCodebaseRoot(args)
			if err != nil {
				return err
			}
			if err := (config.IndexRequest{CodebaseRoot: root, ForceReindex: force}).Validate(); err != nil {
				return err
			}

			cfg, err := loadEffectiveConfig(root)
			if err != nil {
				return err
			}
			deps, err := buildAppDeps(cfg, root)
			if err != nil {
				return err
			}
			defer deps.close()

			rc := reqctx.New(cmd.Context())
			output, err := pipeline.IndexCodebase(rc, deps.pipelineDeps(), pipeline.IndexCodebaseInput{
				CodebaseRoot:   root,
				CollectionName: deps.collectionName,
				IndexMode:      deps.indexMode(),
				IgnorePatterns: cfg.Sync.IgnorePatterns,
				ForceReindex:   force,
				OnProgress: func(ev pipeline.ProgressEvent) {
					state.progress.Report(cliout.ProgressEvent{
						Phase: string(ev.Phase), Current: ev.Current, Total: ev.Total, Percentage: ev.Percentage,
					})
				},
			})
			if err != nil {
				return err
			}
			if err := deps.persist(); err != nil {
				return err
			}

			return state.out.Result(map[string]any{
				"status":        "ok",
				"finalStatus":   string(output.Status),
				"scanProcessed": output.Scan.Processed,
				"scanFailed":    output.Scan.Failed,
				"splitFailed":   output.Split.Failed,
				"embedFailed":   output.Embed.Failed,
				"inserted":      output.Insert.Processed,
				"insertFailed":  output.Insert.Failed,
			})
		},
	}

	cmd.Flags().BoolVar(&background, "background", false, "run indexing as a background job")
	cmd.Flags().BoolVar(&force, "force", false, "drop and recreate the collection before indexing")
	return cmd
}

// resolveCodebaseRoot defaults to the current working directory,
// absolutized, when no path argument is given.
func resolveCodebaseRoot(args []string) (string, error) {
	if len(args) == 1 {
		return filepath.Abs(args[0])
	}
	return filepath.Abs(".")
}
