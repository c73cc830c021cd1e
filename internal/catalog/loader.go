// Package catalog reads the static wine list the recommender scores against.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"golang.org/x/sync/errgroup"

	"vinosuggest-engine/internal/domain"
	"vinosuggest-engine/internal/logging"
	"vinosuggest-engine/internal/metrics"
)

// row is the on-disk shape. Points and Price stay strings so a blank price
// can be skipped instead of failing the whole file.
type row struct {
	Winery      string `csv:"Winery"`
	Variety     string `csv:"Variety"`
	Country     string `csv:"Country"`
	Points      string `csv:"Points"`
	Description string `csv:"Description"`
	Price       string `csv:"Price"`
}

type Parser struct {
	filename string
}

func NewParser(filename string) *Parser {
	return &Parser{filename: filename}
}

func (p *Parser) Parse() ([]domain.Wine, error) {
	file, err := os.Open(p.filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer file.Close()

	wines, err := Read(file, p.filename)
	if err != nil {
		return nil, err
	}
	return wines, nil
}

// Read decodes a catalog CSV with a header row. Unknown columns are
// ignored; a missing required column is an error.
func Read(r io.Reader, name string) ([]domain.Wine, error) {
	log := logging.With("catalog")

	decoder, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create CSV decoder for %s: %w", name, err)
	}
	decoder.DisallowMissingColumns = true

	var (
		wines   []domain.Wine
		skipped int
	)
	for n := 1; ; n++ {
		var rec row
		if err := decoder.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode %s record %d: %w", name, n, err)
		}

		points, err := parsePoints(rec.Points)
		if err != nil {
			return nil, fmt.Errorf("%s record %d: bad Points %q: %w", name, n, rec.Points, err)
		}

		price, ok := parsePrice(rec.Price)
		if !ok {
			skipped++
			continue
		}

		wines = append(wines, domain.Wine{
			Winery:      rec.Winery,
			Variety:     rec.Variety,
			Country:     rec.Country,
			Points:      points,
			Description: rec.Description,
			Price:       price,
		})
	}

	if skipped > 0 {
		metrics.CatalogSkippedRows.Add(float64(skipped))
		log.Warn().Str("file", name).Int("skipped", skipped).Msg("rows without a usable price were skipped")
	}
	return wines, nil
}

func parsePoints(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	// exports sometimes write whole numbers as 88.0
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not a whole number")
	}
	return int(f), nil
}

func parsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimPrefix(s, "$"), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// LoadAll parses every path concurrently and concatenates the results in
// argument order, so catalog order is stable across runs.
func LoadAll(ctx context.Context, paths []string) ([]domain.Wine, error) {
	parts := make([][]domain.Wine, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			wines, err := NewParser(p).Parse()
			if err != nil {
				return err
			}
			parts[i] = wines
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, part := range parts {
		total += len(part)
	}
	out := make([]domain.Wine, 0, total)
	for _, part := range parts {
		out = append(out, part...)
	}

	metrics.CatalogWines.Set(float64(len(out)))
	log := logging.With("catalog")
	log.Info().Int("files", len(paths)).Int("wines", len(out)).Msg("catalog loaded")
	return out, nil
}
