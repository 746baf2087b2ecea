package processors

import (
	"sort"
	"strings"

	"pawLingo/core"
)

// minKeywordLen is the token-length floor for keyword matching. Shorter
// tokens ("a", "of", "el") match everywhere and carry no meaning.
const minKeywordLen = 3

// MatchDescription scores every catalog signal against a structured
// free-text body description by keyword overlap. For each non-empty
// description field that contains any keyword of a signal's name or
// description, the signal's intensity is added to its score, so a signal
// matching two fields with intensity 5 scores 10. Zero-score signals are
// excluded; the rest is sorted by score descending, ties keeping catalog
// order. Plain case-insensitive substring tests only, no stemming, no
// fuzzy matching.
func MatchDescription(catalog *core.Catalog, description core.BodyDescription) []core.SignalScore {
	scored := make([]core.SignalScore, 0)
	for _, signal := range catalog.All() {
		keywords := signalKeywords(signal)
		score := 0
		for _, field := range description.Fields() {
			if strings.TrimSpace(field) == "" {
				continue
			}
			if fieldMatches(strings.ToLower(field), keywords) {
				score += signal.Intensity
			}
		}
		if score > 0 {
			scored = append(scored, core.SignalScore{Signal: signal, Score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}

// signalKeywords tokenizes a signal's display name and raw description,
// keeping tokens of minKeywordLen or more.
func signalKeywords(signal core.Signal) []string {
	tokens := strings.Fields(strings.ToLower(signal.DisplayName + " " + signal.RawDescription))
	keywords := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.Trim(tok, ",.;:!?()\"'")
		if len(tok) >= minKeywordLen {
			keywords = append(keywords, tok)
		}
	}
	return keywords
}

func fieldMatches(lowerField string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowerField, kw) {
			return true
		}
	}
	return false
}
