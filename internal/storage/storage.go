package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/knowledge-engine/brewlens/internal/tfidf"
)

// ErrNotFound is returned when no analysis has the requested id
var ErrNotFound = errors.New("analysis not found")

// Analysis is a persisted tf-idf computation and the parameters that produced it
type Analysis struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Source    string       `json:"source"`
	GroupBy   string       `json:"group_by"`
	NGram     int          `json:"ngram"`
	Table     *tfidf.Table `json:"table"`
}

// NewAnalysis wraps a table with a fresh id
func NewAnalysis(source, groupBy string, ngram int, table *tfidf.Table) *Analysis {
	return &Analysis{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Source:    source,
		GroupBy:   groupBy,
		NGram:     ngram,
		Table:     table,
	}
}

// Summary is an analysis without its table
type Summary struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Source     string    `json:"source"`
	GroupBy    string    `json:"group_by"`
	Documents  int       `json:"documents"`
	Degenerate bool      `json:"degenerate"`
}

func (a *Analysis) Summary() Summary {
	s := Summary{ID: a.ID, CreatedAt: a.CreatedAt, Source: a.Source, GroupBy: a.GroupBy}
	if a.Table != nil {
		s.Documents = a.Table.Documents
		s.Degenerate = a.Table.Degenerate
	}
	return s
}

// AnalysisStorage defines the interface for saving computed analyses
type AnalysisStorage interface {
	Save(analysis *Analysis) error
	Get(id string) (*Analysis, error)
	List() ([]Summary, error)
	Close() error
}

// validID guards file names and keys against anything but a uuid
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
