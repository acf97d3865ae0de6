package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexRequestValidate(t *testing.T) {
	assert.NoError(t, IndexRequest{CodebaseRoot: "/abs/path"}.Validate())
	assert.Error(t, IndexRequest{CodebaseRoot: "relative/path"}.Validate())
	assert.Error(t, IndexRequest{CodebaseRoot: ""}.Validate())
	assert.Error(t, IndexRequest{CodebaseRoot: "/abs", CollectionName: "1bad"}.Validate())
	assert.NoError(t, IndexRequest{CodebaseRoot: "/abs", CollectionName: "good_name1"}.Validate())
}

func TestSearchRequestValidate(t *testing.T) {
	base := SearchRequest{CodebaseRoot: "/abs", Query: "foo"}
	assert.NoError(t, base.Validate())

	bad := base
	bad.Query = ""
	assert.Error(t, bad.Validate())

	badTopK := base
	badTopK.TopK = 1001
	assert.Error(t, badTopK.Validate())

	thresh := float32(1.5)
	badThreshold := base
	badThreshold.Threshold = &thresh
	assert.Error(t, badThreshold.Validate())

	filtered := base
	filtered.FilterExpr = "lang == 'go'"
	assert.Error(t, filtered.Validate(), "filterExpr must be rejected unless explicitly allowed")

	filtered.FilterExprAllowed = true
	assert.NoError(t, filtered.Validate())
}

func TestReindexAndClearRequestValidate(t *testing.T) {
	assert.NoError(t, ReindexByChangeRequest{CodebaseRoot: "/abs"}.Validate())
	assert.Error(t, ReindexByChangeRequest{CodebaseRoot: "rel"}.Validate())
	assert.NoError(t, ClearIndexRequest{CodebaseRoot: "/abs"}.Validate())
	assert.Error(t, ClearIndexRequest{CodebaseRoot: ""}.Validate())
}
