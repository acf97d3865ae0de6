package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/kodesearch/semcode/internal/config"
	"github.com/kodesearch/semcode/internal/errs"
)

// requestValidator is implemented by every request DTO's Validate method.
type requestValidator interface {
	Validate() error
}

func newValidateRequestCmd() *cobra.Command {
	var kind string
	var inputJSON string

	cmd := &cobra.Command{
		Use:   "validate-request",
		Short: "Validate a request DTO's JSON without executing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			var v requestValidator
			switch kind {
			case "index":
				v = &config.IndexRequest{}
			case "search":
				v = &config.SearchRequest{}
			case "reindexByChange":
				v = &config.ReindexByChangeRequest{}
			case "clearIndex":
				v = &config.ClearIndexRequest{}
			default:
				return errs.Expected("CLI", "INVALID_KIND",
					`--kind must be one of "index", "search", "reindexByChange", "clearIndex"`)
			}

			if err := json.Unmarshal([]byte(inputJSON), v); err != nil {
				return errs.Expected("CLI", "INVALID_INPUT_JSON", "--input-json is not valid JSON for the requested kind")
			}
			if err := v.Validate(); err != nil {
				return err
			}
			return state.out.Result(map[string]any{"status": "ok", "kind": kind, "valid": true})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", `request kind: index, search, reindexByChange, clearIndex (required)`)
	cmd.Flags().StringVar(&inputJSON, "input-json", "", "JSON body of the request to validate (required)")
	return cmd
}
