package aggregator

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/varoOP/niterudb/internal/domain"
)

// stopWords are articles and particles stripped from titles before
// comparison, so "The Promised Neverland" and "Promised Neverland" collide.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {},
	"of": {}, "and": {},
	"no": {}, "wa": {}, "ga": {}, "wo": {}, "ni": {},
}

// MergeKey derives the fuzzy-duplicate key under which near-identical
// records from different sources are grouped: normalized best title, start
// year, and episode count. Unknown year or episode count degrade to
// "unknown" rather than blocking a match.
func MergeKey(r *domain.AnimeRecord) string {
	year := "unknown"
	if y := r.StartYear(); y > 0 {
		year = strconv.Itoa(y)
	}

	episodes := "unknown"
	if r.Episodes > 0 {
		episodes = strconv.Itoa(r.Episodes)
	}

	return normalizeTitle(r.Title.Best()) + "-" + year + "-" + episodes
}

// normalizeTitle lowercases, strips punctuation, and removes stop words.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if _, skip := stopWords[w]; skip {
			continue
		}
		kept = append(kept, w)
	}

	return strings.Join(kept, " ")
}
