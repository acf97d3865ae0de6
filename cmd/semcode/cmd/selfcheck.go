package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kodesearch/semcode/internal/reqctx"
)

func newSelfCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "self-check [codebaseRoot]",
		Short: "Verify config, embedding, and vector-store wiring without indexing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveCodebaseRoot(args)
			if err != nil {
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
			if _, err := deps.store.HasCollection(rc, deps.collectionName); err != nil {
				return err
			}
			if _, err := deps.embedder.EmbedBatch(rc, []string{"self-check"}); err != nil {
				return err
			}

			return state.out.Result(map[string]any{
				"status":     "ok",
				"codebaseId": string(deps.codebaseID),
				"embedding":  cfg.Embedding.Provider,
				"vectorDb":   cfg.VectorDB.Provider,
			})
		},
	}
}
