// Package identity derives the stable, content-addressed identifiers
// that tie together snapshots, collections, cache namespaces, and
// vector-store primary keys: codebase id, collection name, and chunk
// id.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kodesearch/semcode/internal/errs"
)

// IndexMode selects the vector-store schema a collection was created
// for.
type IndexMode string

const (
	IndexModeDense  IndexMode = "dense"
	IndexModeHybrid IndexMode = "hybrid"
)

// CodebaseID derives a stable, deterministic identifier from a
// codebase's absolute root path.
type CodebaseID string

// CollectionName derives a stable vector-store collection name from a
// codebase id and index mode.
type CollectionName string

// ChunkID is the content-addressed primary key of a CodeChunk.
type ChunkID string

func normalizeAbsPath(absPath string) string {
	p := filepath.ToSlash(absPath)
	p = strings.ToLower(p)
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return strings.TrimSuffix(p, "/")
}

// DeriveCodebaseID lowercases and normalizes absPath's separators, then
// hashes it into a stable "codebase_<hex16>" identifier.
func DeriveCodebaseID(absPath string) (CodebaseID, error) {
	if absPath == "" {
		return "", errs.Expected("DOMAIN", "EMPTY_PATH", "codebase root path must not be empty")
	}
	sum := sha256.Sum256([]byte(normalizeAbsPath(absPath)))
	return CodebaseID("codebase_" + hex.EncodeToString(sum[:])[:16]), nil
}

// DeriveCollectionName mixes a codebase id with an index-mode tag into a
// "code_chunks_<hex16>" collection name matching
// ^[a-zA-Z][a-zA-Z0-9_]*$, max 255 chars.
func DeriveCollectionName(codebaseID CodebaseID, mode IndexMode) (CollectionName, error) {
	if codebaseID == "" {
		return "", errs.Expected("DOMAIN", "EMPTY_CODEBASE_ID", "codebase id must not be empty")
	}
	h := sha256.New()
	h.Write([]byte(codebaseID))
	h.Write([]byte{0})
	h.Write([]byte(mode))
	sum := h.Sum(nil)
	name := "code_chunks_" + hex.EncodeToString(sum)[:16]
	return CollectionName(name), nil
}

// DeriveChunkID computes sha256(relPath \x00 startLine \x00 endLine \x00
// content), hex-encoded. Identical chunks at the same location in two
// runs always produce the same id.
func DeriveChunkID(relPath string, startLine, endLine int, content string) (ChunkID, error) {
	if relPath == "" {
		return "", errs.Expected("DOMAIN", "EMPTY_REL_PATH", "relative path must not be empty")
	}
	if startLine < 1 || endLine < startLine {
		return "", errs.Expected("DOMAIN", "INVALID_SPAN", "line span must satisfy 1 <= start <= end")
	}
	h := sha256.New()
	h.Write([]byte(relPath))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(startLine)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(endLine)))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return ChunkID(hex.EncodeToString(h.Sum(nil))), nil
}
