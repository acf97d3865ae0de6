package search

import (
	"testing"

	"github.com/kodesearch/semcode/internal/model"
)

func span(t *testing.T, start, end int) model.LineSpan {
	t.Helper()
	s, err := model.NewLineSpan(start, end)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSortDeterministicScenario(t *testing.T) {
	results := []Result{
		{RelativePath: "b.ts", Span: span(t, 1, 2), Score: 0.9},
		{RelativePath: "a.ts", Span: span(t, 1, 2), Score: 0.9},
		{RelativePath: "a.ts", Span: span(t, 5, 10), Score: 0.9},
		{RelativePath: "a.ts", Span: span(t, 1, 2), Score: 0.95},
	}
	SortDeterministic(results)

	want := []string{"a.ts@1-2@0.95", "a.ts@1-2@0.9", "a.ts@5-10@0.9", "b.ts@1-2@0.9"}
	for i, r := range results {
		got := key(r)
		if got != want[i] {
			t.Fatalf("position %d: got %s, want %s (full: %+v)", i, got, want[i], results)
		}
	}
}

func key(r Result) string {
	return r.RelativePath + "@" + itoa(r.Span.StartLine) + "-" + itoa(r.Span.EndLine) + "@" + ftoa(r.Score)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	if neg {
		return "-" + string(buf)
	}
	return string(buf)
}

func ftoa(f float32) string {
	switch f {
	case 0.95:
		return "0.95"
	case 0.9:
		return "0.9"
	default:
		return "?"
	}
}

func TestSortDeterministicStableUnderRepeatedSort(t *testing.T) {
	results := []Result{
		{RelativePath: "a.ts", Span: span(t, 1, 2), Score: 0.5},
		{RelativePath: "b.ts", Span: span(t, 1, 2), Score: 0.5},
	}
	SortDeterministic(results)
	first := append([]Result(nil), results...)
	SortDeterministic(results)
	for i := range results {
		if results[i] != first[i] {
			t.Fatalf("sort not stable across repeated calls: %+v vs %+v", results, first)
		}
	}
}

func TestSortDeterministicHandlesNaN(t *testing.T) {
	nan := float32(0)
	nan = nan / nan // NaN without importing math in the test
	results := []Result{
		{RelativePath: "a.ts", Span: span(t, 1, 1), Score: nan},
		{RelativePath: "b.ts", Span: span(t, 1, 1), Score: 0.1},
	}
	SortDeterministic(results)
	if results[0].RelativePath != "b.ts" {
		t.Fatalf("expected NaN scores to sort last, got %+v", results)
	}
}
