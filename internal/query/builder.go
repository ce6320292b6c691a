package query

import "strings"

// Build compiles a SearchQuery into an FTS5 MATCH expression: free-text
// terms first, then column-scoped filter clauses in filter order, all joined
// with AND. An empty query compiles to the empty string, which callers must
// treat as "no results", never "match everything".
func Build(q SearchQuery) string {
	var clauses []string
	for _, term := range tokenize(q.Text) {
		clauses = append(clauses, escapeTerm(term))
	}
	for _, f := range q.Filters {
		clauses = append(clauses, filterColumns[f.Key]+":"+escapeTerm(f.Value))
	}
	return strings.Join(clauses, " AND ")
}

// escapeTerm applies the shared quoting/prefix rules for free-text terms and
// filter values:
//   - already phrase-quoted: pass through
//   - contains whitespace: wrap as an exact phrase (FTS5 has no prefix
//     matching inside a phrase, so no wildcard is appended)
//   - contains an explicit wildcard: pass through
//   - bare single word: append * for prefix matching
func escapeTerm(v string) string {
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		return v
	}
	if strings.IndexFunc(v, isSpace) >= 0 {
		return `"` + v + `"`
	}
	if strings.Contains(v, "*") {
		return v
	}
	return v + "*"
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
