package domain

// Wine is one row of the static catalog.
type Wine struct {
	Winery      string  `json:"winery"`
	Variety     string  `json:"variety"`
	Country     string  `json:"country"`
	Points      int     `json:"points"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// DedupKey identifies catalog rows that describe the same wine. Price is not
// part of it.
type DedupKey struct {
	Winery      string
	Variety     string
	Country     string
	Points      int
	Description string
}

func (w Wine) Key() DedupKey {
	return DedupKey{
		Winery:      w.Winery,
		Variety:     w.Variety,
		Country:     w.Country,
		Points:      w.Points,
		Description: w.Description,
	}
}
