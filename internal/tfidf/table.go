package tfidf

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for malformed or out-of-domain input
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError identifies the offending field of a rejected input
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, format string, args ...interface{}) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Occurrence is one token seen once in one document
type Occurrence struct {
	DocumentID string
	Token      string
}

// Key addresses a cell of the frequency table
type Key struct {
	DocumentID string
	Token      string
}

// Counts is a sparse frequency table. Absent keys have count zero.
type Counts map[Key]int

// Score holds the derived values for one (document, token) pair
type Score struct {
	DocumentID string  `json:"document_id"`
	Token      string  `json:"token"`
	N          int     `json:"n"`
	TF         float64 `json:"tf"`
	IDF        float64 `json:"idf"`
	TFIDF      float64 `json:"tf_idf"`
}

// Table is the result of one computation. Rows are ordered by document, then token.
type Table struct {
	Rows       []Score   `json:"rows"`
	Documents  int       `json:"documents"`
	Smoothing  Smoothing `json:"smoothing"`
	Degenerate bool      `json:"degenerate"`
}

// Document returns the rows of one document in token order
func (t *Table) Document(id string) []Score {
	var rows []Score
	for _, r := range t.Rows {
		if r.DocumentID == id {
			rows = append(rows, r)
		}
	}
	return rows
}

// DocumentIDs returns the distinct document ids in ascending order
func (t *Table) DocumentIDs() []string {
	var ids []string
	for i, r := range t.Rows {
		if i == 0 || t.Rows[i-1].DocumentID != r.DocumentID {
			ids = append(ids, r.DocumentID)
		}
	}
	return ids
}

// CountOccurrences aggregates an occurrence stream into a frequency table
func CountOccurrences(occurrences []Occurrence) (Counts, error) {
	counts := make(Counts)
	for i, o := range occurrences {
		if o.DocumentID == "" {
			return nil, invalid("document_id", "missing at row %d", i)
		}
		if o.Token == "" {
			return nil, invalid("token", "missing at row %d", i)
		}
		counts[Key{DocumentID: o.DocumentID, Token: o.Token}]++
	}
	return counts, nil
}

// Validate checks the frequency table invariants
func (c Counts) Validate() error {
	for k, n := range c {
		if k.DocumentID == "" {
			return invalid("document_id", "missing for token %q", k.Token)
		}
		if k.Token == "" {
			return invalid("token", "missing in document %q", k.DocumentID)
		}
		if n < 1 {
			return invalid("n", "count %d for (%q, %q) must be at least 1", n, k.DocumentID, k.Token)
		}
	}
	return nil
}

// Totals returns the number of token occurrences per document
func (c Counts) Totals() map[string]int {
	totals := make(map[string]int)
	for k, n := range c {
		totals[k.DocumentID] += n
	}
	return totals
}

// DocumentFrequency returns, per token, the number of documents containing it
func (c Counts) DocumentFrequency() map[string]int {
	df := make(map[string]int)
	for k := range c {
		df[k.Token]++
	}
	return df
}
