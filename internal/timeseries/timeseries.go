// Package timeseries loads the scripted per-round price series files that
// a round plays against. Files are CSV with a header row; the price
// column is required, date and news are optional.
package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoPriceColumn is returned when the CSV header lacks a price column.
var ErrNoPriceColumn = errors.New("timeseries: price column missing")

// Series is one round's scripted market: an asset name (derived from the
// filename), the price path, and the news shown at each step (empty
// strings when the file has no news column).
type Series struct {
	Asset  string
	Prices []float64
	News   []string
}

// Load reads a timeseries CSV file. The asset name is the file's base
// name without the .csv extension.
func Load(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("timeseries: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("timeseries: parse %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("timeseries: %s has no data rows", path)
	}

	header := rows[0]
	priceCol, newsCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "price":
			priceCol = i
		case "news":
			newsCol = i
		}
	}
	if priceCol == -1 {
		return nil, fmt.Errorf("%w in %s", ErrNoPriceColumn, path)
	}

	s := &Series{
		Asset: strings.TrimSuffix(filepath.Base(path), ".csv"),
	}
	for i, row := range rows[1:] {
		if priceCol >= len(row) {
			return nil, fmt.Errorf("timeseries: %s row %d has no price field", path, i+2)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(row[priceCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("timeseries: %s row %d: bad price %q", path, i+2, row[priceCol])
		}
		s.Prices = append(s.Prices, price)

		news := ""
		if newsCol != -1 && newsCol < len(row) {
			news = row[newsCol]
		}
		s.News = append(s.News, news)
	}

	return s, nil
}
