package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kodesearch/semcode/internal/reqctx"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [codebaseRoot]",
		Short: "Report whether a codebase has an indexed collection",
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
			exists, err := deps.store.HasCollection(rc, deps.collectionName)
			if err != nil {
				return err
			}

			return state.out.Result(map[string]any{
				"status":         "ok",
				"codebaseId":     string(deps.codebaseID),
				"collectionName": string(deps.collectionName),
				"indexMode":      string(deps.indexMode()),
				"indexed":        exists,
			})
		},
	}
	return cmd
}
