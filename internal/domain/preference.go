package domain

import (
	"math"
	"strings"
)

type Category struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// Allows reports whether kw is one of the category's offered keywords
// (case-insensitive). Stores do not enforce it.
func (c Category) Allows(kw string) bool {
	for _, k := range c.Keywords {
		if strings.EqualFold(k, strings.TrimSpace(kw)) {
			return true
		}
	}
	return false
}

// Categories is the fixed, ordered set of taste dimensions. Stored records
// depend on this order positionally.
var Categories = []Category{
	{
		Name: "Fruitiness/Flavor Profile",
		Keywords: []string{"Fruit", "Cherry", "Blackberry", "Plum", "Citrus", "Apple", "Peach", "Pear",
			"Pineapple", "Lemon", "Orange", "Melon", "Apricot", "Strawberry", "Raspberry", "Blueberry"},
	},
	{
		Name:     "Oak Influence/Spices",
		Keywords: []string{"Oak", "Spice", "Vanilla", "Chocolate", "Cinnamon", "Tobacco", "Coffee", "Toast", "Mocha", "Caramel"},
	},
	{
		Name:     "Acidity/Freshness",
		Keywords: []string{"Acidity", "Fresh", "Crisp", "Citrus", "Lemon", "Lime", "Grapefruit"},
	},
	{
		Name:     "Tannin Structure/Texture",
		Keywords: []string{"Tannins", "Palate", "Dry", "Soft", "Firm", "Tannic", "Smooth"},
	},
	{
		Name:     "Body/Intensity",
		Keywords: []string{"Rich", "Full", "Medium", "Dense", "Heavy", "Light"},
	},
}

func CategoryNames() []string {
	out := make([]string, len(Categories))
	for i, c := range Categories {
		out[i] = c.Name
	}
	return out
}

func FindCategory(name string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return c, true
		}
	}
	return Category{}, false
}

// Preferences maps a category name to the chosen keyword. Missing and blank
// entries mean "no preference".
type Preferences map[string]string

// Keywords returns the non-blank values, trimmed. A keyword chosen under two
// categories appears twice.
func (p Preferences) Keywords() []string {
	var out []string
	for _, c := range Categories {
		if v := strings.TrimSpace(p[c.Name]); v != "" {
			out = append(out, v)
		}
	}
	// values under any other key still count when scoring
	for k, v := range p {
		if isCategoryName(k) {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func isCategoryName(name string) bool {
	for _, c := range Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (p Preferences) AllBlank() bool {
	for _, v := range p {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Canonical returns a copy keyed by the exact names in Categories, matching
// names case-insensitively. Values are trimmed and unknown names dropped.
func (p Preferences) Canonical() Preferences {
	out := make(Preferences, len(Categories))
	for _, c := range Categories {
		out[c.Name] = ""
	}
	for k, v := range p {
		if c, ok := FindCategory(k); ok {
			out[c.Name] = strings.TrimSpace(v)
		}
	}
	return out
}

// Ordered returns one value per entry of Categories, in order.
func (p Preferences) Ordered() []string {
	out := make([]string, len(Categories))
	for i, c := range Categories {
		out[i] = p[c.Name]
	}
	return out
}

// PreferencesFromOrdered is the inverse of Ordered. Extra values are ignored
// and missing ones become blank.
func PreferencesFromOrdered(values []string) Preferences {
	p := make(Preferences, len(Categories))
	for i, c := range Categories {
		if i < len(values) {
			p[c.Name] = values[i]
		} else {
			p[c.Name] = ""
		}
	}
	return p
}

type PreferenceRecord struct {
	Username    string      `json:"username"`
	Preferences Preferences `json:"preferences"`
	MinPrice    float64     `json:"min_price"`
	MaxPrice    float64     `json:"max_price"`
}

// ValidPriceRange reports whether 0 <= lo <= hi. NaN bounds are rejected.
func ValidPriceRange(lo, hi float64) bool {
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return false
	}
	return lo >= 0 && lo <= hi
}
