package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kodesearch/semcode/internal/config"
	"github.com/kodesearch/semcode/internal/reindex"
	"github.com/kodesearch/semcode/internal/reqctx"
)

func newReindexCmd() *cobra.Command {
	var background bool

	cmd := &cobra.Command{
		Use:   "reindex [codebaseRoot]",
		Short: "Apply an incremental reindex from the change-detection snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if background {
				return errBackgroundJobsNotSupported
			}
			root, err := resolveCodebaseRoot(args)
			if err != nil {
				return err
			}
			if err := (config.ReindexByChangeRequest{CodebaseRoot: root}).Validate(); err != nil {
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
			output, err := reindex.ReindexByChange(rc, deps.reindexDeps(), reindex.ReindexByChangeInput{
				CodebaseRoot:   root,
				CollectionName: deps.collectionName,
				IndexMode:      deps.indexMode(),
			})
			if err != nil {
				return err
			}
			if err := deps.persist(); err != nil {
				return err
			}

			return state.out.Result(map[string]any{
				"status":   "ok",
				"added":    output.Added,
				"removed":  output.Removed,
				"modified": output.Modified,
			})
		},
	}

	cmd.Flags().BoolVar(&background, "background", false, "run the reindex as a background job")
	return cmd
}
