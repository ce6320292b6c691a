package query

import "testing"

func TestBuild_SingleWordPrefix(t *testing.T) {
	got := Build(Parse("hello", SortRelevance))
	if got != "hello*" {
		t.Errorf("expr = %q", got)
	}
}

func TestBuild_QuotedPhrasePassthrough(t *testing.T) {
	got := Build(Parse(`"exact phrase"`, SortRelevance))
	if got != `"exact phrase"` {
		t.Errorf("expr = %q", got)
	}
}

func TestBuild_ExplicitWildcardPassthrough(t *testing.T) {
	got := Build(Parse("wild*card", SortRelevance))
	if got != "wild*card" {
		t.Errorf("expr = %q", got)
	}
}

func TestBuild_TermsJoinedWithAnd(t *testing.T) {
	got := Build(Parse("alpha beta", SortRelevance))
	if got != "alpha* AND beta*" {
		t.Errorf("expr = %q", got)
	}
}

func TestBuild_FilterColumnScoped(t *testing.T) {
	got := Build(Parse("tag:work urgent", SortRelevance))
	if got != "urgent* AND tags:work*" {
		t.Errorf("expr = %q", got)
	}
}

func TestBuild_MultiWordFilterValuePhrased(t *testing.T) {
	q := SearchQuery{Filters: []Filter{{Key: KeyCollection, Value: "reading list"}}}
	got := Build(q)
	if got != `collection:"reading list"` {
		t.Errorf("expr = %q", got)
	}
}

func TestBuild_PhraseAndFilter(t *testing.T) {
	got := Build(Parse(`"machine learning" type:document`, SortRelevance))
	if got != `"machine learning" AND type:document*` {
		t.Errorf("expr = %q", got)
	}
}

func TestBuild_EmptyQueryEmptyExpr(t *testing.T) {
	if got := Build(Parse("", SortRelevance)); got != "" {
		t.Errorf("expr = %q", got)
	}
	if got := Build(Parse("   ", SortRelevance)); got != "" {
		t.Errorf("expr = %q", got)
	}
}

func TestEscapeTerm(t *testing.T) {
	cases := []struct{ in, want string }{
		{"hello", "hello*"},
		{`"exact phrase"`, `"exact phrase"`},
		{"multi word", `"multi word"`},
		{"wild*card", "wild*card"},
		{"trailing*", "trailing*"},
		{`"`, `"*`},
	}
	for _, c := range cases {
		if got := escapeTerm(c.in); got != c.want {
			t.Errorf("escapeTerm(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
