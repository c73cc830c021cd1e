// internal/rank/keyword_scorer.go
package rank

import (
	"strings"

	"vinosuggest-engine/internal/domain"
)

// KeywordScorer counts the keywords that occur anywhere in a wine's
// description, ignoring case. Each keyword counts at most once, but the same
// keyword passed twice counts twice.
type KeywordScorer struct{}

func (KeywordScorer) Score(w domain.Wine, keywords []string) int {
	text := strings.ToLower(w.Description)

	score := 0
	for _, kw := range keywords {
		n := strings.ToLower(strings.TrimSpace(kw))
		if n == "" {
			continue
		}
		if strings.Contains(text, n) {
			score++
		}
	}
	return score
}
