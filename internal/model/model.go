// Package model holds the data types shared across pipeline stages:
// line spans, languages, code chunks, vector documents, and embedding
// vectors.
package model

import (
	"fmt"

	"github.com/kodesearch/semcode/internal/errs"
)

// MaxChunkChars bounds CodeChunk.Content length.
const MaxChunkChars = 20000

// LineSpan is a 1-indexed, inclusive line range.
type LineSpan struct {
	StartLine int
	EndLine   int
}

// NewLineSpan validates and constructs a LineSpan.
func NewLineSpan(start, end int) (LineSpan, error) {
	if start < 1 || end < start {
		return LineSpan{}, errs.Expected("DOMAIN", "INVALID_SPAN", fmt.Sprintf("invalid line span %d-%d", start, end))
	}
	return LineSpan{StartLine: start, EndLine: end}, nil
}

// Language is a closed enum of supported grammars.
type Language string

const (
	LanguageRust       Language = "rust"
	LanguageTypeScript Language = "typescript"
	LanguageJavaScript Language = "javascript"
	LanguagePython     Language = "python"
	LanguageJava       Language = "java"
	LanguageCPP        Language = "cpp"
	LanguageC          Language = "c"
	LanguageCSharp     Language = "csharp"
	LanguageGo         Language = "go"
	LanguagePHP        Language = "php"
	LanguageRuby       Language = "ruby"
	LanguageSwift      Language = "swift"
	LanguageKotlin     Language = "kotlin"
	LanguageScala      Language = "scala"
	LanguageObjC       Language = "objectivec"
	LanguageJupyter    Language = "jupyter"
	LanguageMarkdown   Language = "markdown"
	LanguageText       Language = "text"
)

var extToLanguage = map[string]Language{
	".rs": LanguageRust, ".ts": LanguageTypeScript, ".tsx": LanguageTypeScript,
	".js": LanguageJavaScript, ".jsx": LanguageJavaScript, ".mjs": LanguageJavaScript,
	".py": LanguagePython, ".java": LanguageJava,
	".cpp": LanguageCPP, ".cc": LanguageCPP, ".cxx": LanguageCPP, ".hpp": LanguageCPP,
	".c": LanguageC, ".h": LanguageC,
	".cs": LanguageCSharp, ".go": LanguageGo, ".php": LanguagePHP, ".rb": LanguageRuby,
	".swift": LanguageSwift, ".kt": LanguageKotlin, ".kts": LanguageKotlin,
	".scala": LanguageScala, ".m": LanguageObjC, ".mm": LanguageObjC,
	".ipynb": LanguageJupyter, ".md": LanguageMarkdown, ".markdown": LanguageMarkdown,
}

// LanguageForExtension maps a file extension (with leading dot, any
// case) to a Language, falling back to LanguageText when unrecognized.
func LanguageForExtension(ext string) Language {
	lang, ok := extToLanguage[lowerASCII(ext)]
	if !ok {
		return LanguageText
	}
	return lang
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// CodeChunk is a contiguous, length-bounded slice of a source file.
type CodeChunk struct {
	Content  string
	Span     LineSpan
	Language Language
	FilePath string
}

// Validate enforces the MaxChunkChars bound and non-empty content.
func (c CodeChunk) Validate() error {
	if c.Content == "" {
		return errs.Expected("SPLITTER", "EMPTY_CHUNK", "chunk content must not be empty")
	}
	if len(c.Content) > MaxChunkChars {
		return errs.Expected("SPLITTER", "CHUNK_TOO_LARGE", fmt.Sprintf("chunk content exceeds %d characters", MaxChunkChars))
	}
	return nil
}

// EmbeddingVector is an owned, immutable float32 vector with fixed
// dimension D > 0.
type EmbeddingVector []float32

// Dimension returns len(v).
func (v EmbeddingVector) Dimension() int { return len(v) }

// Equal reports pointwise equality.
func (v EmbeddingVector) Equal(other EmbeddingVector) bool {
	if len(v) != len(other) {
		return false
	}
	for i := range v {
		if v[i] != other[i] {
			return false
		}
	}
	return true
}

// VectorDocumentMetadata is the metadata attached to a persisted
// VectorDocument.
type VectorDocumentMetadata struct {
	RelativePath  string
	Language      Language
	FileExtension string
	Span          LineSpan
	NodeKind      string
}

// VectorDocument is a persisted embedding plus its content and
// metadata, keyed by content-addressed ChunkId.
type VectorDocument struct {
	ID       string
	Vector   EmbeddingVector
	Content  string
	Metadata VectorDocumentMetadata
}
