// Package splitter implements the splitter port (C6): language-aware
// chunking of file content into line-spanned CodeChunks. Supported
// grammars are parsed with tree-sitter and chunked at top-level symbol
// boundaries; everything else falls back to windowed line chunking.
package splitter

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kodesearch/semcode/internal/errs"
	"github.com/kodesearch/semcode/internal/model"
)

// Options configures chunk size and overlap, both expressed in lines.
// Options are supplied per Split call; a Splitter holds none.
type Options struct {
	TargetChunkLines int
	OverlapLines     int
}

// DefaultOptions gives a reasonable default target chunk size and
// overlap, in lines.
func DefaultOptions() Options {
	return Options{TargetChunkLines: 60, OverlapLines: 5}
}

// Splitter implements the split(ctx, code, language, options) port.
type Splitter struct {
	langs map[model.Language]*sitter.Language
}

// New builds a Splitter with the grammars available in this module's
// dependency set: Go, Python, JavaScript, TypeScript. Other languages
// always use the windowed fallback.
func New() *Splitter {
	return &Splitter{
		langs: map[model.Language]*sitter.Language{
			model.LanguageGo:         golang.GetLanguage(),
			model.LanguagePython:     python.GetLanguage(),
			model.LanguageJavaScript: javascript.GetLanguage(),
			model.LanguageTypeScript: typescript.GetLanguage(),
		},
	}
}

// Split chunks code according to language and options. It never
// panics; malformed input is reported as a splitter/* expected error.
func (s *Splitter) Split(ctx context.Context, code string, language model.Language, opts Options) ([]model.CodeChunk, error) {
	if opts.TargetChunkLines <= 0 {
		return nil, errs.Expected("SPLITTER", "INVALID_OPTIONS", "target chunk lines must be positive")
	}
	if code == "" {
		return nil, nil
	}
	if !validUTF8(code) {
		return nil, errs.Expected("SPLITTER", "INVALID_INPUT", "content is not valid UTF-8")
	}

	if lang, ok := s.langs[language]; ok {
		chunks, err := s.splitWithGrammar(ctx, code, language, lang, opts)
		if err == nil && len(chunks) > 0 {
			return chunks, nil
		}
	}
	return splitWindowed(code, language, opts), nil
}

func validUTF8(s string) bool {
	for _, r := range s {
		if r == '�' {
			return false
		}
	}
	return true
}

func (s *Splitter) splitWithGrammar(ctx context.Context, code string, language model.Language, lang *sitter.Language, opts Options) ([]model.CodeChunk, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	defer parser.Close()

	src := []byte(code)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil || tree == nil {
		return nil, errs.Expected("SPLITTER", "PARSE_FAILED", "tree-sitter parse failed")
	}
	defer tree.Close()

	root := tree.RootNode()
	var chunks []model.CodeChunk
	childCount := int(root.ChildCount())
	for i := 0; i < childCount; i++ {
		node := root.Child(i)
		if node == nil || !node.IsNamed() {
			continue
		}
		start := int(node.StartPoint().Row) + 1
		end := int(node.EndPoint().Row) + 1
		content := string(src[node.StartByte():node.EndByte()])
		if strings.TrimSpace(content) == "" {
			continue
		}
		if end-start+1 > opts.TargetChunkLines*3 {
			sub := splitWindowed(content, language, opts)
			for _, c := range sub {
				c.Span.StartLine += start - 1
				c.Span.EndLine += start - 1
				c.FilePath = ""
				chunks = append(chunks, c)
			}
			continue
		}
		span, spanErr := model.NewLineSpan(start, end)
		if spanErr != nil {
			continue
		}
		chunk := model.CodeChunk{Content: truncate(content), Span: span, Language: language}
		if chunk.Validate() == nil {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

func truncate(s string) string {
	if len(s) <= model.MaxChunkChars {
		return s
	}
	cut := model.MaxChunkChars
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}

// splitWindowed implements the fallback windowed splitter: lines are
// grouped into runs of up to TargetChunkLines, never crossing a blank
// line, with OverlapLines of repeated content between consecutive
// chunks within the same run.
func splitWindowed(code string, language model.Language, opts Options) []model.CodeChunk {
	lines := strings.Split(code, "\n")
	n := len(lines)
	isBlank := func(i int) bool { return strings.TrimSpace(lines[i-1]) == "" }

	var chunks []model.CodeChunk
	pos := 1
	for pos <= n {
		for pos <= n && isBlank(pos) {
			pos++
		}
		if pos > n {
			break
		}
		start := pos
		count := 0
		for pos <= n && count < opts.TargetChunkLines && !isBlank(pos) {
			pos++
			count++
		}
		end := pos - 1
		if end < start {
			break
		}
		content := strings.Join(lines[start-1:end], "\n")
		if strings.TrimSpace(content) != "" {
			span, err := model.NewLineSpan(start, end)
			if err == nil {
				chunk := model.CodeChunk{Content: truncate(content), Span: span, Language: language}
				if chunk.Validate() == nil {
					chunks = append(chunks, chunk)
				}
			}
		}
		if opts.OverlapLines > 0 && pos <= n && !isBlank(pos) && end-opts.OverlapLines+1 > start {
			pos = end - opts.OverlapLines + 1
		}
	}
	return chunks
}

// Close is a no-op: each Split call closes its own parser and tree, and
// Splitter holds no per-instance parser state beyond compiled grammars.
// It is kept for symmetry with the port's lifecycle expectations.
func (s *Splitter) Close() {}
