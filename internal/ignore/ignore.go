// Package ignore implements segment-oriented ignore-pattern matching
// and the safe relative-path discipline the scan stage and change
// detector rely on. It is deliberately simpler than full gitignore
// regex compilation: a pattern matches a path iff its segment sequence
// appears contiguously in the path's segment sequence, which keeps
// matching deterministic and order-independent.
package ignore

import (
	"sort"
	"strings"

	"github.com/kodesearch/semcode/internal/errs"
)

// Matcher holds a deduped, sorted set of ignore patterns. The zero value
// matches nothing.
type Matcher struct {
	patterns [][]string
}

// NewMatcher builds a Matcher from raw pattern strings. Patterns are
// segment-normalized, deduped, and sorted so membership is
// order-independent.
func NewMatcher(patterns []string) *Matcher {
	seen := make(map[string][]string)
	for _, p := range patterns {
		segs := normalizeSegments(p)
		if len(segs) == 0 {
			continue
		}
		seen[strings.Join(segs, "/")] = segs
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return &Matcher{patterns: out}
}

func normalizeSegments(p string) []string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	p = strings.Trim(p, "/")
	raw := strings.Split(p, "/")
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		if s == "" || s == "." {
			continue
		}
		segs = append(segs, s)
	}
	return segs
}

// Match reports whether relPath is ignored: true iff any pattern's
// segment sequence appears contiguously within relPath's segments.
func (m *Matcher) Match(relPath string) bool {
	if m == nil {
		return false
	}
	pathSegs := normalizeSegments(relPath)
	for _, pat := range m.patterns {
		if containsContiguous(pathSegs, pat) {
			return true
		}
	}
	return false
}

func containsContiguous(path, pat []string) bool {
	if len(pat) == 0 || len(pat) > len(path) {
		return false
	}
	for start := 0; start+len(pat) <= len(path); start++ {
		match := true
		for i, seg := range pat {
			if path[start+i] != seg {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// SafeRelativePath converts an arbitrary string into a normalized,
// forward-slash, traversal-free relative path, or an invalid_input
// error.
type SafeRelativePath string

// ToSafeRelativePath normalizes raw and rejects traversal, absolute
// prefixes, NUL bytes, and control characters.
func ToSafeRelativePath(raw string) (SafeRelativePath, error) {
	if raw == "" {
		return "", errs.Expected("PATH", "INVALID_INPUT", "path must not be empty")
	}
	for _, r := range raw {
		if r < 0x20 {
			return "", errs.Expected("PATH", "INVALID_INPUT", "path contains control characters")
		}
	}
	p := strings.ReplaceAll(raw, "\\", "/")
	if strings.HasPrefix(p, "/") || hasWindowsDriveLetter(p) {
		return "", errs.Expected("PATH", "INVALID_INPUT", "path must be relative")
	}
	segs := normalizeSegments(p)
	for _, s := range segs {
		if s == ".." {
			return "", errs.Expected("PATH", "INVALID_INPUT", "path must not traverse above its root")
		}
	}
	if len(segs) == 0 {
		return "", errs.Expected("PATH", "INVALID_INPUT", "path must not be empty after normalization")
	}
	return SafeRelativePath(strings.Join(segs, "/")), nil
}

func hasWindowsDriveLetter(p string) bool {
	return len(p) >= 2 && p[1] == ':' && ((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}
