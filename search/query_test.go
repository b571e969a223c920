package search

import (
	"testing"
)

func testLexicon(t *testing.T) *Lexicon {
	t.Helper()
	lex, err := LoadLexicon("")
	if err != nil {
		t.Fatalf("LoadLexicon: %v", err)
	}
	return lex
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}

func TestParseQueryPersonNormalized(t *testing.T) {
	lex := testLexicon(t)
	parsed := ParseQuery(lex, "Расскажи о Васе")

	// Oblique case collapses to the base form.
	if !contains(parsed["person"], "вася") {
		t.Fatalf("person bucket = %v", parsed["person"])
	}
	// The claimed word must not leak into the general bucket.
	if contains(parsed[GeneralBucket], "вася") || contains(parsed[GeneralBucket], "васе") {
		t.Fatalf("general bucket = %v", parsed[GeneralBucket])
	}
}

func TestParseQueryStopWordsFiltered(t *testing.T) {
	lex := testLexicon(t)
	parsed := ParseQuery(lex, "что ты знаешь про машину")

	if !contains(parsed["person"], "машина") && !contains(parsed[GeneralBucket], "машина") {
		t.Fatalf("parsed = %v", parsed)
	}
	for bucket, words := range parsed {
		for _, w := range words {
			if lex.isStopWord(w) {
				t.Fatalf("stop word %q survived in bucket %q", w, bucket)
			}
			if len([]rune(w)) <= 2 {
				t.Fatalf("short word %q survived in bucket %q", w, bucket)
			}
		}
	}
}

func TestParseQueryGeneralBucket(t *testing.T) {
	lex := testLexicon(t)
	parsed := ParseQuery(lex, "молоко и хлеб")

	if !contains(parsed[GeneralBucket], "молоко") {
		t.Fatalf("general = %v", parsed[GeneralBucket])
	}
	if !contains(parsed[GeneralBucket], "хлеб") {
		t.Fatalf("general = %v", parsed[GeneralBucket])
	}
}

func TestParseQueryDeduplicates(t *testing.T) {
	lex := testLexicon(t)
	parsed := ParseQuery(lex, "вася вася вася")

	count := 0
	for _, w := range parsed[GeneralBucket] {
		if w == "вася" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("duplicates survived: %v", parsed[GeneralBucket])
	}
}

func TestAllKeywords(t *testing.T) {
	lex := testLexicon(t)
	parsed := ParseQuery(lex, "расскажи про васю и про машину")
	all := parsed.AllKeywords()

	seen := make(map[string]bool)
	for _, w := range all {
		if seen[w] {
			t.Fatalf("duplicate %q in %v", w, all)
		}
		seen[w] = true
	}
	if !seen["вася"] || !seen["машина"] {
		t.Fatalf("all keywords = %v", all)
	}
}

func TestExpandCompound(t *testing.T) {
	lex := testLexicon(t)
	out := ExpandCompound(lex, []string{"вася иванов", "молоко"})

	for _, want := range []string{"вася иванов", "вася", "иванов", "молоко"} {
		if !contains(out, want) {
			t.Fatalf("missing %q in %v", want, out)
		}
	}
}

func TestMatchPriority(t *testing.T) {
	cases := []struct {
		name string
		kws  []string
		want int
	}{
		{"вася", []string{"вася"}, matchExact},
		{"вася иванов", []string{"вася"}, matchPrefix},
		{"дядя вася", []string{"вася"}, matchSubstring},
		{"молоко", []string{"вася"}, 0},
	}
	for _, c := range cases {
		if got := matchPriority(c.name, c.kws); got != c.want {
			t.Errorf("matchPriority(%q, %v) = %d, want %d", c.name, c.kws, got, c.want)
		}
	}
}
