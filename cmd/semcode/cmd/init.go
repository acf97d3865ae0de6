package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kodesearch/semcode/internal/config"
	"github.com/kodesearch/semcode/internal/errs"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [codebaseRoot]",
		Short: "Create a .context directory with a default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveCodebaseRoot(args)
			if err != nil {
				return err
			}
			dir := contextDir(root)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errs.Unexpected("FS", "MKDIR_FAILED", "failed to create .context directory", errs.ClassNonRetriable, err)
			}

			path := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(path); err == nil {
				return state.out.Result(map[string]any{"status": "ok", "created": false, "configPath": path})
			}

			if err := config.Default().WriteYAML(path); err != nil {
				return err
			}
			return state.out.Result(map[string]any{"status": "ok", "created": true, "configPath": path})
		},
	}
	return cmd
}
