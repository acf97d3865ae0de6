// Package cmd provides the semcode CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kodesearch/semcode/internal/cliout"
	"github.com/kodesearch/semcode/internal/config"
	"github.com/kodesearch/semcode/internal/logging"
	"github.com/kodesearch/semcode/pkg/version"
)

// globalFlags holds the persistent flags every subcommand shares.
type globalFlags struct {
	output        string
	legacyJSON    bool
	legacyAgent   bool
	noProgress    bool
	interactive   bool
	configPath    string
	overridesJSON string
	debug         bool
}

var flags globalFlags

// runtimeState is built once in PersistentPreRunE and consumed by every
// subcommand's RunE.
type runtimeState struct {
	out           *cliout.Writer
	logger        *slog.Logger
	loggingClose  func()
	progress      *cliout.ProgressReporter
}

var state runtimeState

// NewRootCmd builds the semcode root command and its subcommand tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "semcode",
		Short:         "Local semantic code search engine",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("semcode version {{.Version}}\n")

	root.PersistentFlags().StringVar(&flags.output, "output", "", "output mode: text, json, ndjson")
	root.PersistentFlags().BoolVar(&flags.legacyJSON, "json", false, "shortcut for --output json")
	root.PersistentFlags().BoolVar(&flags.legacyAgent, "agent", false, "shortcut for --output ndjson")
	root.PersistentFlags().BoolVar(&flags.noProgress, "no-progress", false, "disable progress bar rendering")
	root.PersistentFlags().BoolVar(&flags.interactive, "interactive", false, "render an interactive progress bar")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to an explicit config file")
	root.PersistentFlags().StringVar(&flags.overridesJSON, "overrides-json", "", "JSON object of config overrides applied after file+env")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	root.PersistentPreRunE = setupRuntime
	root.PersistentPostRunE = teardownRuntime

	root.AddCommand(newInitCmd())
	root.AddCommand(newIndexCmd())
	root.AddCommand(newReindexCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newClearCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newInfoCmd())
	root.AddCommand(newJobsCmd())
	root.AddCommand(newSelfCheckCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newValidateRequestCmd())

	return root
}

func setupRuntime(cmd *cobra.Command, _ []string) error {
	mode := cliout.ParseMode(flags.output, flags.legacyJSON, flags.legacyAgent)
	state.out = cliout.New(cmd.OutOrStdout(), mode)
	state.progress = cliout.NewProgressReporter(cmd.ErrOrStderr(), flags.interactive && !flags.noProgress && mode == cliout.ModeText)

	logCfg := logging.Config{Level: "info", WriteToStderr: false, JSON: true}
	if flags.debug {
		logCfg.Level = "debug"
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	state.logger = logger
	state.loggingClose = cleanup
	slog.SetDefault(logger)
	return nil
}

func teardownRuntime(_ *cobra.Command, _ []string) error {
	if state.loggingClose != nil {
		state.loggingClose()
	}
	if state.progress != nil {
		state.progress.Finish()
	}
	return nil
}

// loadEffectiveConfig loads config per codebaseRoot, applying
// --overrides-json last (highest precedence, above even SCA_* env,
// matching the CLI's role as the final authority over the process).
func loadEffectiveConfig(codebaseRoot string) (*config.Config, error) {
	dir := contextDir(codebaseRoot)
	cfg, err := config.Load(dir, flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.overridesJSON != "" {
		if err := json.Unmarshal([]byte(flags.overridesJSON), cfg); err != nil {
			return nil, fmt.Errorf("invalid --overrides-json: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
