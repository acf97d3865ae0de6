package cmd

import (
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "config",
		Short: "Inspect effective configuration",
	}

	check := &cobra.Command{
		Use:   "check [codebaseRoot]",
		Short: "Load and validate the effective config for a codebase",
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
			if err := cfg.Validate(); err != nil {
				return err
			}
			return state.out.Result(map[string]any{
				"status":            "ok",
				"embeddingProvider": cfg.Embedding.Provider,
				"vectorDbProvider":  cfg.VectorDB.Provider,
				"indexMode":         cfg.VectorDB.IndexMode,
				"cacheEnabled":      cfg.Cache.Enabled,
			})
		},
	}
	root.AddCommand(check)
	return root
}
