//go:build sqlite_fts5

package index

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/stash/internal/query"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s := Open(filepath.Join(t.TempDir(), "index.db"), testLogger())
	t.Cleanup(func() { s.Close() })
	return s
}

func search(s *Store, raw string) []Result {
	s.Flush()
	return s.Search(query.Parse(raw, query.SortRelevance))
}

func TestStore_UpsertAndSearch(t *testing.T) {
	s := openTestStore(t)
	s.Upsert(Document{
		ID:      "item-1",
		Title:   "Kubernetes networking deep dive",
		Content: "Pods, services and CNI plugins explained.",
		Tags:    []string{"infra", "k8s"},
	})

	res := search(s, "kubernetes")
	if len(res) != 1 {
		t.Fatalf("got %d results, want 1", len(res))
	}
	if res[0].ItemID != "item-1" {
		t.Errorf("item id = %q", res[0].ItemID)
	}
	if res[0].Title != "Kubernetes networking deep dive" {
		t.Errorf("title = %q", res[0].Title)
	}
}

func TestStore_DeleteRemoves(t *testing.T) {
	s := openTestStore(t)
	s.Upsert(Document{ID: "gone", Title: "Ephemeral note"})
	if res := search(s, "ephemeral"); len(res) != 1 {
		t.Fatalf("precondition: got %d results", len(res))
	}

	s.Delete("gone")
	if res := search(s, "ephemeral"); len(res) != 0 {
		t.Errorf("after delete: got %d results, want 0", len(res))
	}
}

func TestStore_UpsertReplacesRow(t *testing.T) {
	s := openTestStore(t)
	s.Upsert(Document{ID: "dup", Title: "First title"})
	s.Upsert(Document{ID: "dup", Title: "Second title"})

	if res := search(s, "first"); len(res) != 0 {
		t.Errorf("old title still indexed: %+v", res)
	}
	res := search(s, "second")
	if len(res) != 1 {
		t.Fatalf("got %d results, want 1", len(res))
	}
	if res[0].ItemID != "dup" {
		t.Errorf("item id = %q", res[0].ItemID)
	}
}

func TestStore_ProtectedContentNotIndexed(t *testing.T) {
	s := openTestStore(t)
	s.Upsert(Document{
		ID:        "secret",
		Title:     "Vault credentials note",
		Content:   "hunter2 is the master password",
		AISummary: "Contains the master password.",
		Protected: true,
	})
	s.Flush()

	// Body and summary text must not be findable.
	if res := search(s, "hunter2"); len(res) != 0 {
		t.Errorf("protected body matched: %+v", res)
	}
	if res := search(s, "master"); len(res) != 0 {
		t.Errorf("protected summary matched: %+v", res)
	}

	// Title stays searchable, and the snippet must not expose body text.
	res := search(s, "vault")
	if len(res) != 1 {
		t.Fatalf("got %d results, want 1", len(res))
	}
	if strings.Contains(res[0].Snippet, "hunter2") {
		t.Errorf("snippet leaks protected content: %q", res[0].Snippet)
	}
}

func TestStore_FilterColumns(t *testing.T) {
	s := openTestStore(t)
	s.Upsert(Document{ID: "a", Title: "Go generics guide", Type: "document", Source: "manual", Tags: []string{"go"}})
	s.Upsert(Document{ID: "b", Title: "Go talk recording", Type: "link", Source: "clipper", Tags: []string{"go", "video"}})
	s.Upsert(Document{ID: "c", Title: "Rust ownership", Type: "document", Collection: "langs"})
	s.Flush()

	cases := []struct {
		raw  string
		want []string
	}{
		{"go type:document", []string{"a"}},
		{"go type:link", []string{"b"}},
		{"tag:video", []string{"b"}},
		{"collection:langs", []string{"c"}},
		{"source:clipper", []string{"b"}},
	}
	for _, c := range cases {
		res := s.Search(query.Parse(c.raw, query.SortRelevance))
		var ids []string
		for _, r := range res {
			ids = append(ids, r.ItemID)
		}
		if len(ids) != len(c.want) {
			t.Errorf("%q: ids = %v, want %v", c.raw, ids, c.want)
			continue
		}
		for i := range ids {
			if ids[i] != c.want[i] {
				t.Errorf("%q: ids = %v, want %v", c.raw, ids, c.want)
			}
		}
	}
}

func TestStore_PhraseAndPrefixMatching(t *testing.T) {
	s := openTestStore(t)
	s.Upsert(Document{ID: "ml", Title: "Machine learning basics"})
	s.Upsert(Document{ID: "mech", Title: "Learning about machines, mechanically"})
	s.Flush()

	// Exact phrase hits only the adjacent words.
	res := s.Search(query.Parse(`"machine learning"`, query.SortRelevance))
	if len(res) != 1 || res[0].ItemID != "ml" {
		t.Errorf("phrase results = %+v", res)
	}

	// Bare terms get prefix expansion.
	res = s.Search(query.Parse("mechan", query.SortRelevance))
	if len(res) != 1 || res[0].ItemID != "mech" {
		t.Errorf("prefix results = %+v", res)
	}
}

func TestStore_TitleOutranksBody(t *testing.T) {
	s := openTestStore(t)
	s.Upsert(Document{ID: "in-title", Title: "Gardening for beginners", Content: "soil and seeds"})
	s.Upsert(Document{ID: "in-body", Title: "Weekend plans", Content: "mostly gardening and errands"})
	s.Flush()

	res := s.Search(query.Parse("gardening", query.SortRelevance))
	if len(res) != 2 {
		t.Fatalf("got %d results, want 2", len(res))
	}
	if res[0].ItemID != "in-title" {
		t.Errorf("first result = %q, want in-title", res[0].ItemID)
	}
}

// A stale schema version triggers a destructive rebuild on open.
func TestStore_SchemaVersionMismatchRebuilds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	s := Open(path, testLogger())
	s.Upsert(Document{ID: "old", Title: "Survivor candidate"})
	s.Flush()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// Pretend the file was written by an older build.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("PRAGMA user_version = 1"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	s = Open(path, testLogger())
	defer s.Close()
	if res := search(s, "survivor"); len(res) != 0 {
		t.Errorf("stale rows survived rebuild: %+v", res)
	}

	// The rebuilt index accepts new writes.
	s.Upsert(Document{ID: "new", Title: "Fresh start"})
	if res := search(s, "fresh"); len(res) != 1 {
		t.Errorf("rebuilt index not writable: %+v", res)
	}
}
