package tfidf

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Smoothing selects how raw counts enter the term frequency
type Smoothing string

const (
	// SmoothingRaw uses n / total
	SmoothingRaw Smoothing = "raw"
	// SmoothingLog uses ln(1+n) / total, with total still the raw token count
	SmoothingLog Smoothing = "log"
)

// ParseSmoothing maps a configuration value to a Smoothing
func ParseSmoothing(s string) (Smoothing, error) {
	switch Smoothing(s) {
	case SmoothingRaw, SmoothingLog:
		return Smoothing(s), nil
	}
	return "", invalid("smoothing", "unknown value %q (want raw or log)", s)
}

func (s Smoothing) apply(n int) float64 {
	if s == SmoothingLog {
		return math.Log1p(float64(n))
	}
	return float64(n)
}

// Engine computes tf-idf tables. It holds configuration only and is safe for concurrent use.
type Engine struct {
	Smoothing Smoothing
	// Workers > 1 splits the term frequency pass across documents
	Workers int
	logger  *logrus.Entry
}

// NewEngine creates an engine with the given smoothing and worker count
func NewEngine(smoothing Smoothing, workers int, logger *logrus.Entry) *Engine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		Smoothing: smoothing,
		Workers:   workers,
		logger:    logger.WithField("component", "tfidf_engine"),
	}
}

// ComputeTermFrequency returns one row per frequency table entry with N and TF set
func ComputeTermFrequency(counts Counts, smoothing Smoothing) ([]Score, error) {
	if _, err := ParseSmoothing(string(smoothing)); err != nil {
		return nil, err
	}
	if err := counts.Validate(); err != nil {
		return nil, err
	}
	docs := partition(counts)
	var rows []Score
	for _, id := range sortedKeys(docs) {
		rows = append(rows, termFrequency(id, docs[id], counts, smoothing)...)
	}
	return rows, nil
}

// ComputeInverseDocumentFrequency returns idf = ln(N_D / df) per token and N_D
func ComputeInverseDocumentFrequency(counts Counts) (map[string]float64, int, error) {
	if err := counts.Validate(); err != nil {
		return nil, 0, err
	}
	nd := len(counts.Totals())
	idf := make(map[string]float64)
	for token, df := range counts.DocumentFrequency() {
		idf[token] = math.Log(float64(nd) / float64(df))
	}
	return idf, nd, nil
}

// Compute joins term and inverse document frequencies into a full table.
// Fewer than two documents is reported through Table.Degenerate, not as an error.
func (e *Engine) Compute(counts Counts) (*Table, error) {
	if _, err := ParseSmoothing(string(e.Smoothing)); err != nil {
		return nil, err
	}
	idf, nd, err := ComputeInverseDocumentFrequency(counts)
	if err != nil {
		return nil, err
	}

	var rows []Score
	if e.Workers > 1 {
		rows, err = e.termFrequencyParallel(counts)
	} else {
		rows, err = ComputeTermFrequency(counts, e.Smoothing)
	}
	if err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].IDF = idf[rows[i].Token]
		rows[i].TFIDF = rows[i].TF * rows[i].IDF
	}

	table := &Table{
		Rows:       rows,
		Documents:  nd,
		Smoothing:  e.Smoothing,
		Degenerate: nd < 2,
	}
	if table.Degenerate {
		e.logger.WithField("documents", nd).Warn("fewer than two documents, every idf and tf-idf is zero")
	}
	e.logger.WithFields(logrus.Fields{
		"documents": nd,
		"rows":      len(rows),
		"smoothing": e.Smoothing,
	}).Debug("Computed tf-idf table")
	return table, nil
}

// ComputeOccurrences counts an occurrence stream and computes its table
func (e *Engine) ComputeOccurrences(occurrences []Occurrence) (*Table, error) {
	counts, err := CountOccurrences(occurrences)
	if err != nil {
		return nil, err
	}
	return e.Compute(counts)
}

// termFrequencyParallel expects validated counts
func (e *Engine) termFrequencyParallel(counts Counts) ([]Score, error) {
	docs := partition(counts)
	ids := sortedKeys(docs)
	results := make([][]Score, len(ids))

	var g errgroup.Group
	g.SetLimit(e.Workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = termFrequency(id, docs[id], counts, e.Smoothing)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []Score
	for _, r := range results {
		rows = append(rows, r...)
	}
	return rows, nil
}

// termFrequency computes the rows of one document, ordered by token
func termFrequency(id string, tokens []string, counts Counts, smoothing Smoothing) []Score {
	total := 0
	for _, t := range tokens {
		total += counts[Key{DocumentID: id, Token: t}]
	}
	rows := make([]Score, 0, len(tokens))
	for _, t := range tokens {
		n := counts[Key{DocumentID: id, Token: t}]
		rows = append(rows, Score{
			DocumentID: id,
			Token:      t,
			N:          n,
			TF:         smoothing.apply(n) / float64(total),
		})
	}
	return rows
}

// partition groups tokens by document, each group sorted
func partition(counts Counts) map[string][]string {
	docs := make(map[string][]string)
	for k := range counts {
		docs[k.DocumentID] = append(docs[k.DocumentID], k.Token)
	}
	for _, tokens := range docs {
		sort.Strings(tokens)
	}
	return docs
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
