// Package query implements the search mini-language: free-text terms, quoted
// phrases, and key:value filters, compiled to an FTS5 MATCH expression.
package query

// FilterKey identifies a filterable item attribute.
type FilterKey string

// Recognized filter keys. Anything else stays free text.
const (
	KeyType       FilterKey = "type"
	KeyTag        FilterKey = "tag"
	KeyCollection FilterKey = "collection"
	KeySource     FilterKey = "source"
)

// filterColumns maps filter keys to their index column names.
var filterColumns = map[FilterKey]string{
	KeyType:       "type",
	KeyTag:        "tags",
	KeyCollection: "collection",
	KeySource:     "source",
}

// Sort selects the result ordering.
type Sort string

// Sort orders.
const (
	SortRelevance Sort = "relevance"
	SortRecency   Sort = "recency"
)

// ParseSort maps a raw sort name to a Sort, defaulting to relevance.
func ParseSort(raw string) Sort {
	if Sort(raw) == SortRecency {
		return SortRecency
	}
	return SortRelevance
}

// Filter is a single key:value constraint. Value is non-empty, trimmed, with
// surrounding quotes stripped.
type Filter struct {
	Key   FilterKey
	Value string
}

// SearchQuery is the parsed, normalized user intent.
type SearchQuery struct {
	Text    string
	Filters []Filter
	Sort    Sort
}

// IsEmpty reports whether the query has neither free text nor filters.
func (q SearchQuery) IsEmpty() bool {
	return q.Text == "" && len(q.Filters) == 0
}
