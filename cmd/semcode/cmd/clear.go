package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kodesearch/semcode/internal/config"
	"github.com/kodesearch/semcode/internal/reindex"
	"github.com/kodesearch/semcode/internal/reqctx"
)

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear [codebaseRoot]",
		Short: "Drop the collection and purge the change-detection snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveCodebaseRoot(args)
			if err != nil {
				return err
			}
			if err := (config.ClearIndexRequest{CodebaseRoot: root}).Validate(); err != nil {
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
			if err := reindex.ClearIndex(rc, deps.reindexDeps(), reindex.ClearIndexInput{
				CodebaseRoot:   root,
				CollectionName: deps.collectionName,
			}); err != nil {
				return err
			}

			return state.out.Result(map[string]any{"status": "ok"})
		},
	}
	return cmd
}
