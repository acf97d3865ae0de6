package identity

import "testing"

func TestDeriveChunkIDDeterministic(t *testing.T) {
	id1, err := DeriveChunkID("src/lib.rs", 1, 10, "fn main() {}")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := DeriveChunkID("src/lib.rs", 1, 10, "fn main() {}")
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("expected deterministic id, got %s != %s", id1, id2)
	}
}

func TestDeriveChunkIDCollisionAvoidant(t *testing.T) {
	base, _ := DeriveChunkID("src/lib.rs", 1, 10, "same content")
	cases := []struct {
		name                string
		path                string
		start, end          int
		content             string
	}{
		{"different path", "src/main.rs", 1, 10, "same content"},
		{"different start", "src/lib.rs", 2, 10, "same content"},
		{"different end", "src/lib.rs", 1, 11, "same content"},
		{"different content", "src/lib.rs", 1, 10, "different content"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := DeriveChunkID(tc.path, tc.start, tc.end, tc.content)
			if err != nil {
				t.Fatal(err)
			}
			if id == base {
				t.Fatalf("expected distinct id for %s", tc.name)
			}
		})
	}
}

func TestDeriveChunkIDRejectsInvalidSpan(t *testing.T) {
	if _, err := DeriveChunkID("a.go", 0, 1, "x"); err == nil {
		t.Fatal("expected error for startLine < 1")
	}
	if _, err := DeriveChunkID("a.go", 5, 3, "x"); err == nil {
		t.Fatal("expected error for end < start")
	}
}

func TestDeriveCodebaseIDStable(t *testing.T) {
	a, err := DeriveCodebaseID("/Users/dev/Project")
	if err != nil {
		t.Fatal(err)
	}
	b, err := DeriveCodebaseID("/users/dev/project")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("expected case-insensitive stable id, got %s != %s", a, b)
	}
	if len(a) <= len("codebase_") {
		t.Fatalf("expected codebase_ prefixed id, got %s", a)
	}
}

func TestDeriveCollectionNameMatchesPattern(t *testing.T) {
	cb, _ := DeriveCodebaseID("/repo")
	name, err := DeriveCollectionName(cb, IndexModeDense)
	if err != nil {
		t.Fatal(err)
	}
	hybridName, err := DeriveCollectionName(cb, IndexModeHybrid)
	if err != nil {
		t.Fatal(err)
	}
	if name == hybridName {
		t.Fatal("expected different collection names per index mode")
	}
	if len(name) > 255 {
		t.Fatalf("collection name exceeds 255 chars: %d", len(name))
	}
}
