package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kodesearch/semcode/internal/cliout"
	"github.com/kodesearch/semcode/internal/config"
	"github.com/kodesearch/semcode/internal/reqctx"
	"github.com/kodesearch/semcode/internal/search"
)

func newSearchCmd() *cobra.Command {
	var query string
	var topK int
	var threshold float64
	var hasThreshold bool
	var includeContent bool

	cmd := &cobra.Command{
		Use:   "search [codebaseRoot]",
		Short: "Run a semantic search against an indexed codebase",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			hasThreshold = cmd.Flags().Changed("threshold")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveCodebaseRoot(args)
			if err != nil {
				return err
			}

			req := config.SearchRequest{CodebaseRoot: root, Query: query, TopK: topK}
			if hasThreshold {
				t := float32(threshold)
				req.Threshold = &t
			}
			if err := req.Validate(); err != nil {
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
			results, err := search.SemanticSearch(rc, deps.searchDeps(), search.Input{
				CollectionName: deps.collectionName,
				Query:          query,
				TopK:           topK,
				Threshold:      req.Threshold,
			})
			if err != nil {
				return err
			}

			renderer := cliout.NewSearchRenderer(state.out)
			for _, r := range results {
				line := cliout.SearchResultLine{
					RelativePath: r.RelativePath,
					StartLine:    r.Span.StartLine,
					EndLine:      r.Span.EndLine,
					Score:        r.Score,
				}
				if includeContent {
					line.Content = r.Content
				}
				if err := renderer.Result(line); err != nil {
					return err
				}
			}
			return renderer.Summary("ok", len(results))
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "search query text (required)")
	cmd.Flags().IntVar(&topK, "top-k", search.DefaultTopK, "max results to return")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum score to include a result")
	cmd.Flags().BoolVar(&includeContent, "include-content", false, "include chunk content in results")
	return cmd
}
