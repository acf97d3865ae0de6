package splitter

import (
	"context"
	"strings"
	"testing"

	"github.com/kodesearch/semcode/internal/model"
)

func TestSplitWindowedScenario(t *testing.T) {
	fixture := strings.Join([]string{
		"line one",
		"line two",
		"line three",
		"",
		"line five",
		"line six",
		"line seven",
	}, "\n")

	chunks := splitWindowed(fixture, model.LanguageText, Options{TargetChunkLines: 3, OverlapLines: 0})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Span.StartLine != 1 || chunks[0].Span.EndLine != 3 {
		t.Fatalf("unexpected first span: %+v", chunks[0].Span)
	}
	if chunks[1].Span.StartLine != 5 || chunks[1].Span.EndLine != 7 {
		t.Fatalf("unexpected second span: %+v", chunks[1].Span)
	}
}

func TestSplitEmptyInputYieldsNoChunks(t *testing.T) {
	s := New()
	chunks, err := s.Split(context.Background(), "", model.LanguageGo, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected zero chunks for empty input, got %d", len(chunks))
	}
}

func TestSplitNeverCrossesRuneBoundary(t *testing.T) {
	fixture := "// ééé\nfunc f() {}\nééé\nmore text here\n"
	chunks := splitWindowed(fixture, model.LanguageText, Options{TargetChunkLines: 1, OverlapLines: 0})
	for _, c := range chunks {
		if !isValidUTF8(c.Content) {
			t.Fatalf("chunk content is not valid UTF-8: %q", c.Content)
		}
	}
}

func isValidUTF8(s string) bool {
	for _, r := range s {
		if r == '�' {
			return false
		}
	}
	return true
}

func TestSplitGoSourceByGrammar(t *testing.T) {
	src := `package main

func Add(a, b int) int {
	return a + b
}

func Sub(a, b int) int {
	return a - b
}
`
	s := New()
	chunks, err := s.Split(context.Background(), src, model.LanguageGo, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk from grammar-based split")
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Span.StartLine < chunks[i-1].Span.StartLine {
			t.Fatalf("chunks not in source order: %+v", chunks)
		}
	}
}
