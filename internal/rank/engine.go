package rank

import (
	"cmp"
	"context"
	"slices"

	"vinosuggest-engine/internal/domain"
)

const DefaultLimit = 5

// Request is everything a recommendation depends on. Bounds are inclusive.
type Request struct {
	Preferences domain.Preferences `json:"preferences"`
	MinPrice    float64            `json:"min_price"`
	MaxPrice    float64            `json:"max_price"`
}

type Recommendation struct {
	domain.Wine
	Score int `json:"score"`
}

// Engine ranks a fixed catalog. It never mutates the catalog and is safe for
// concurrent use.
type Engine struct {
	wines  []domain.Wine
	scorer Scorer
	limit  int
}

type Option func(*Engine)

func WithScorer(s Scorer) Option {
	return func(e *Engine) { e.scorer = s }
}

// WithLimit shortens the result list. Values outside 1..DefaultLimit are
// ignored.
func WithLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 && n <= DefaultLimit {
			e.limit = n
		}
	}
}

func NewEngine(wines []domain.Wine, opts ...Option) *Engine {
	e := &Engine{
		wines:  slices.Clone(wines),
		scorer: KeywordScorer{},
		limit:  DefaultLimit,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Len() int { return len(e.wines) }

// Recommend filters the catalog to the price range, drops repeated wines
// (first occurrence wins), and orders the rest by score then points. The sort
// is stable, so remaining ties keep catalog order.
func (e *Engine) Recommend(ctx context.Context, req Request) ([]Recommendation, error) {
	keywords := req.Preferences.Keywords()

	seen := make(map[domain.DedupKey]struct{})
	candidates := make([]Recommendation, 0, 64)

	for i, w := range e.wines {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if w.Price < req.MinPrice || w.Price > req.MaxPrice {
			continue
		}
		k := w.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		candidates = append(candidates, Recommendation{Wine: w, Score: e.scorer.Score(w, keywords)})
	}

	slices.SortStableFunc(candidates, func(a, b Recommendation) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(b.Points, a.Points)
	})

	if len(candidates) > e.limit {
		candidates = candidates[:e.limit]
	}
	return slices.Clip(candidates), nil
}
