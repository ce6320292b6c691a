package query

import (
	"strings"
	"unicode"
)

// Parse turns a raw query string into a SearchQuery. It never fails: every
// token that is not a recognized key:value filter survives as free text,
// including tokens with unknown filter keys, which are kept whole.
func Parse(raw string, sort Sort) SearchQuery {
	q := SearchQuery{Sort: sort}

	var terms []string
	for _, tok := range tokenize(raw) {
		if f, ok := parseFilter(tok); ok {
			q.Filters = append(q.Filters, f)
			continue
		}
		terms = append(terms, tok)
	}
	q.Text = strings.Join(terms, " ")
	return q
}

// tokenize splits raw on whitespace, keeping double-quoted segments intact.
// Quote characters toggle the in-quote state and are retained in the emitted
// token, so quoted phrases survive verbatim.
func tokenize(raw string) []string {
	var tokens []string
	var cur strings.Builder
	inQuotes := false

	for _, r := range raw {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case !inQuotes && unicode.IsSpace(r):
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// parseFilter recognizes key:value tokens. The colon must not be the first
// character; the key must be one of the fixed filter keys; the value must be
// non-empty after quote stripping and trimming. Otherwise the whole token
// falls through to free text.
func parseFilter(tok string) (Filter, bool) {
	i := strings.Index(tok, ":")
	if i <= 0 {
		return Filter{}, false
	}

	key := FilterKey(strings.ToLower(tok[:i]))
	if _, ok := filterColumns[key]; !ok {
		return Filter{}, false
	}

	val := tok[i+1:]
	val = strings.TrimPrefix(val, `"`)
	val = strings.TrimSuffix(val, `"`)
	val = strings.TrimSpace(val)
	if val == "" {
		return Filter{}, false
	}
	return Filter{Key: key, Value: val}, true
}
