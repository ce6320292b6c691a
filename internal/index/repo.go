package index

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/starford/stash/internal/query"
)

// resultLimit caps a single search. The query language has no paging.
const resultLimit = 100

// rankExpr weights matches by column. Title hits dominate, then tags and
// collection, then body text. bm25 returns lower-is-better scores, so the
// ORDER BY is ascending.
const rankExpr = "bm25(items_fts, 0.0, 10.0, 5.0, 3.0, 1.0, 0.1, 0.5, 0.5, 0.5)"

const searchSQL = `
SELECT id, title, snippet(items_fts, -1, '[', ']', '...', 12)
FROM items_fts
WHERE items_fts MATCH ?
ORDER BY ` + rankExpr + `
LIMIT `

var searchQuerySQL = searchSQL + strconv.Itoa(resultLimit)

// Upsert replaces the indexed row for the document. Protected items keep
// their content and summary out of the index so search cannot leak them;
// title and tags stay searchable.
func (s *Store) Upsert(doc Document) {
	content := doc.Content
	summary := doc.AISummary
	annotations := doc.Annotations
	if doc.Protected {
		content = ""
		summary = ""
		annotations = ""
	}
	tags := strings.Join(doc.Tags, " ")

	s.submit(func(db *sql.DB) {
		if db == nil {
			return
		}
		if _, err := db.Exec("DELETE FROM items_fts WHERE id = ?", doc.ID); err != nil {
			s.logger.Warn("index delete before upsert failed", "id", doc.ID, "error", err)
			return
		}
		_, err := db.Exec(
			`INSERT INTO items_fts (id, title, tags, collection, content, annotations, ai_summary, type, source)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.ID, doc.Title, tags, doc.Collection, content, annotations, summary, doc.Type, doc.Source,
		)
		if err != nil {
			s.logger.Warn("index upsert failed", "id", doc.ID, "error", err)
		}
	})
}

// Delete removes the indexed row for an item. Deleting an unindexed id is a
// no-op.
func (s *Store) Delete(id string) {
	s.submit(func(db *sql.DB) {
		if db == nil {
			return
		}
		if _, err := db.Exec("DELETE FROM items_fts WHERE id = ?", id); err != nil {
			s.logger.Warn("index delete failed", "id", id, "error", err)
		}
	})
}

// Search runs the compiled query and returns ranked results. It executes on
// the writer goroutine, so it observes every previously submitted write. An
// empty query returns nothing.
func (s *Store) Search(q query.SearchQuery) []Result {
	expr := query.Build(q)
	if expr == "" {
		return nil
	}

	reply := make(chan []Result, 1)
	s.submit(func(db *sql.DB) {
		if db == nil {
			reply <- nil
			return
		}
		reply <- s.execSearch(db, expr)
	})
	select {
	case res := <-reply:
		return res
	case <-s.stopCh:
		return nil
	}
}

func (s *Store) execSearch(db *sql.DB, expr string) []Result {
	rows, err := db.Query(searchQuerySQL, expr)
	if err != nil {
		s.logger.Warn("index search failed", "expr", expr, "error", err)
		return nil
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ItemID, &r.Title, &r.Snippet); err != nil {
			s.logger.Warn("index scan failed", "error", err)
			break
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("index rows failed", "expr", expr, "error", err)
	}
	return out
}
