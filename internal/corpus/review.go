// Package corpus reads beer reviews and turns them into a token occurrence stream.
package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Review is one row of the review dataset
type Review struct {
	ID     string  `json:"id"`
	Beer   string  `json:"beer"`
	Style  string  `json:"style"`
	Rating float64 `json:"rating"`
	Rated  bool    `json:"rated"`
	Text   string  `json:"text"`
}

// ErrNoTextColumn is returned when a CSV header has no review text column
var ErrNoTextColumn = errors.New("csv has no review text column")

// accepted header names per field, first match wins
var columnAliases = map[string][]string{
	"id":     {"review_id", "id"},
	"beer":   {"beer_name", "beer", "name"},
	"style":  {"style", "beer_style"},
	"rating": {"rating", "score", "overall"},
	"text":   {"text", "review", "review_text"},
}

// ReadCSV parses a header-addressed review CSV. Rows without an id column get their
// 1-based row number as id.
func ReadCSV(r io.Reader) ([]Review, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	columns := resolveColumns(header)
	if _, ok := columns["text"]; !ok {
		return nil, ErrNoTextColumn
	}

	var reviews []Review
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", row, err)
		}

		review := Review{
			ID:    field(record, columns, "id"),
			Beer:  field(record, columns, "beer"),
			Style: field(record, columns, "style"),
			Text:  field(record, columns, "text"),
		}
		if review.ID == "" {
			review.ID = strconv.Itoa(row)
		}
		if raw := field(record, columns, "rating"); raw != "" {
			if rating, err := strconv.ParseFloat(raw, 64); err == nil {
				review.Rating = rating
				review.Rated = true
			}
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

func resolveColumns(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	columns := make(map[string]int)
	for fieldName, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				columns[fieldName] = i
				break
			}
		}
	}
	return columns
}

func field(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
