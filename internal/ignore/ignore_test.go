package ignore

import (
	"sort"
	"testing"
)

func TestMatcherScenario(t *testing.T) {
	matcher := NewMatcher([]string{"node_modules/", "target/"})
	files := []string{"README.md", "src/lib.rs", "src/main.rs", "node_modules/x/y.js", "target/z.rs"}

	var kept []string
	for _, f := range files {
		if !matcher.Match(f) {
			kept = append(kept, f)
		}
	}
	sort.Strings(kept)

	want := []string{"README.md", "src/lib.rs", "src/main.rs"}
	if len(kept) != len(want) {
		t.Fatalf("got %v, want %v", kept, want)
	}
	for i := range want {
		if kept[i] != want[i] {
			t.Fatalf("got %v, want %v", kept, want)
		}
	}
}

func TestMatcherOrderIndependent(t *testing.T) {
	a := NewMatcher([]string{"target/", "node_modules/"})
	b := NewMatcher([]string{"node_modules/", "target/"})
	if !a.Match("target/z.rs") || !b.Match("target/z.rs") {
		t.Fatal("pattern order must not affect matching")
	}
}

func TestToSafeRelativePathIdempotent(t *testing.T) {
	paths := []string{"src/lib.rs", "./src/main.rs", "a//b/./c", "dir/"}
	for _, p := range paths {
		once, err := ToSafeRelativePath(p)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", p, err)
		}
		twice, err := ToSafeRelativePath(string(once))
		if err != nil {
			t.Fatalf("unexpected error normalizing twice for %q: %v", p, err)
		}
		if once != twice {
			t.Fatalf("normalize not idempotent: %q -> %q -> %q", p, once, twice)
		}
	}
}

func TestToSafeRelativePathRejectsTraversalAndAbsolute(t *testing.T) {
	cases := []string{"../etc/passwd", "/etc/passwd", "a/../../b", "a\x00b"}
	for _, c := range cases {
		if _, err := ToSafeRelativePath(c); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
}
