package rank

import "vinosuggest-engine/internal/domain"

type Scorer interface {
	Score(wine domain.Wine, keywords []string) int
}
