package config

import (
	"path/filepath"
	"regexp"

	"github.com/kodesearch/semcode/internal/errs"
)

// collectionNamePattern matches ^[a-zA-Z][a-zA-Z0-9_]*$, the same shape
// DeriveCollectionName produces, enforced here for caller-supplied names.
var collectionNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// IndexRequest is the validated request DTO backing the index use case.
type IndexRequest struct {
	CodebaseRoot   string
	CollectionName string
	ForceReindex   bool
}

// Validate enforces §6's IndexRequest contract: a non-empty absolute
// path, and (if present) a collection name matching the naming pattern.
func (r IndexRequest) Validate() error {
	if r.CodebaseRoot == "" || !filepath.IsAbs(r.CodebaseRoot) {
		return errs.Expected("CONFIG", "INVALID_CODEBASE_ROOT", "codebaseRoot must be a non-empty absolute path")
	}
	if r.CollectionName != "" && !collectionNamePattern.MatchString(r.CollectionName) {
		return errs.Expected("CONFIG", "INVALID_COLLECTION_NAME", "collectionName must match ^[a-zA-Z][a-zA-Z0-9_]*$")
	}
	return nil
}

// SearchRequest is the validated request DTO backing the search use case.
type SearchRequest struct {
	CodebaseRoot     string
	Query            string
	TopK             int
	Threshold        *float32
	FilterExpr       string
	FilterExprAllowed bool
}

// Validate enforces §6's SearchRequest contract.
func (r SearchRequest) Validate() error {
	if r.CodebaseRoot == "" || !filepath.IsAbs(r.CodebaseRoot) {
		return errs.Expected("CONFIG", "INVALID_CODEBASE_ROOT", "codebaseRoot must be a non-empty absolute path")
	}
	if r.Query == "" {
		return errs.Expected("CONFIG", "INVALID_QUERY", "query must not be empty")
	}
	if r.TopK != 0 && (r.TopK < 1 || r.TopK > 1000) {
		return errs.Expected("CONFIG", "INVALID_TOP_K", "topK must be between 1 and 1000")
	}
	if r.Threshold != nil && (*r.Threshold < 0 || *r.Threshold > 1) {
		return errs.Expected("CONFIG", "INVALID_THRESHOLD", "threshold must be between 0 and 1")
	}
	if r.FilterExpr != "" && !r.FilterExprAllowed {
		return errs.Expected("CONFIG", "INVALID_FILTER_EXPR", "filterExpr is disabled; enable it at config level to use it")
	}
	return nil
}

// ReindexByChangeRequest is the validated request DTO backing reindex.
type ReindexByChangeRequest struct {
	CodebaseRoot string
}

// Validate enforces §6's ReindexByChangeRequest contract.
func (r ReindexByChangeRequest) Validate() error {
	if r.CodebaseRoot == "" || !filepath.IsAbs(r.CodebaseRoot) {
		return errs.Expected("CONFIG", "INVALID_CODEBASE_ROOT", "codebaseRoot must be a non-empty absolute path")
	}
	return nil
}

// ClearIndexRequest is the validated request DTO backing clear.
type ClearIndexRequest struct {
	CodebaseRoot string
}

// Validate enforces §6's ClearIndexRequest contract.
func (r ClearIndexRequest) Validate() error {
	if r.CodebaseRoot == "" || !filepath.IsAbs(r.CodebaseRoot) {
		return errs.Expected("CONFIG", "INVALID_CODEBASE_ROOT", "codebaseRoot must be a non-empty absolute path")
	}
	return nil
}
