package store

import (
	"fmt"
	"strconv"
	"strings"

	"vinosuggest-engine/internal/domain"
)

// recordWidth is username + one value per category + min + max.
func recordWidth() int { return len(domain.Categories) + 3 }

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func encodeRecord(rec domain.PreferenceRecord) []string {
	row := make([]string, 0, recordWidth())
	row = append(row, rec.Username)
	row = append(row, rec.Preferences.Ordered()...)
	row = append(row, formatPrice(rec.MinPrice), formatPrice(rec.MaxPrice))
	return row
}

// decodeRecord reads preferences positionally after the username and the
// bounds from the last two fields.
func decodeRecord(row []string, line int) (domain.PreferenceRecord, error) {
	if len(row) < recordWidth() {
		return domain.PreferenceRecord{}, fmt.Errorf("%w: line %d has %d fields, want %d",
			ErrMalformedRecord, line, len(row), recordWidth())
	}

	n := len(domain.Categories)
	minPrice, err := parsePrice(row[len(row)-2])
	if err != nil {
		return domain.PreferenceRecord{}, fmt.Errorf("%w: line %d min price: %v", ErrMalformedRecord, line, err)
	}
	maxPrice, err := parsePrice(row[len(row)-1])
	if err != nil {
		return domain.PreferenceRecord{}, fmt.Errorf("%w: line %d max price: %v", ErrMalformedRecord, line, err)
	}

	return domain.PreferenceRecord{
		Username:    row[0],
		Preferences: domain.PreferencesFromOrdered(row[1 : 1+n]),
		MinPrice:    minPrice,
		MaxPrice:    maxPrice,
	}, nil
}

func parsePrice(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
