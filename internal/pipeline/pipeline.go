package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/brewlens/internal/config"
	"github.com/knowledge-engine/brewlens/internal/corpus"
	"github.com/knowledge-engine/brewlens/internal/storage"
	"github.com/knowledge-engine/brewlens/internal/text"
	"github.com/knowledge-engine/brewlens/internal/tfidf"
)

// ErrNoInput is returned when a request names neither a source nor documents
var ErrNoInput = errors.New("request needs a source or documents")

// ErrSourceNotAllowed is returned for client-supplied sources outside the corpus directory
var ErrSourceNotAllowed = errors.New("source not allowed")

// Pipeline orchestrates loading, tokenizing, scoring and persisting
type Pipeline struct {
	Config    *config.Config
	Logger    *logrus.Entry
	Loader    *corpus.Loader
	Tokenizer *text.Tokenizer
	Storage   storage.AnalysisStorage

	mu    sync.RWMutex
	Stats Stats
}

type Stats struct {
	Analyses  int64
	LastError string
	StartTime time.Time
}

// Request describes one analysis. Empty fields fall back to configuration.
// Documents, when set, maps document ids to raw text and bypasses the corpus loader.
type Request struct {
	Source    string
	Documents map[string]string
	GroupBy   string
	Smoothing string
	NGram     int
}

func NewPipeline(cfg *config.Config, logger *logrus.Entry, store storage.AnalysisStorage) *Pipeline {
	tokenizer := text.NewTokenizer(cfg.Corpus.MinTokenLength, cfg.Corpus.Stem)
	if !cfg.Corpus.StopWords {
		tokenizer.StopWords = nil
	}

	return &Pipeline{
		Config: cfg,
		Logger: logger.WithField("component", "pipeline"),
		Loader: corpus.NewLoader(corpus.LoaderConfig{
			Timeout:       cfg.Corpus.FetchTimeout,
			UserAgent:     cfg.Corpus.UserAgent,
			RespectRobots: cfg.Corpus.RespectRobots,
		}, logger),
		Tokenizer: tokenizer,
		Storage:   store,
		Stats:     Stats{StartTime: time.Now()},
	}
}

// Run computes and stores one analysis
func (p *Pipeline) Run(ctx context.Context, req Request) (*storage.Analysis, error) {
	analysis, err := p.run(ctx, req)

	p.mu.Lock()
	if err != nil {
		p.Stats.LastError = err.Error()
	} else {
		p.Stats.Analyses++
	}
	p.mu.Unlock()

	return analysis, err
}

func (p *Pipeline) run(ctx context.Context, req Request) (*storage.Analysis, error) {
	req = p.withDefaults(req)

	smoothing, err := tfidf.ParseSmoothing(req.Smoothing)
	if err != nil {
		return nil, err
	}
	if req.NGram < 1 {
		return nil, &tfidf.InvalidInputError{Field: "ngram", Reason: fmt.Sprintf("must be positive, got %d", req.NGram)}
	}

	var occurrences []tfidf.Occurrence
	switch {
	case len(req.Documents) > 0:
		req.GroupBy = "document"
		occurrences = p.documentOccurrences(req.Documents, req.NGram)
	case req.Source != "":
		groupBy, err := corpus.ParseGroupBy(req.GroupBy)
		if err != nil {
			return nil, &tfidf.InvalidInputError{Field: "group_by", Reason: err.Error()}
		}
		reviews, err := p.Loader.Load(ctx, req.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to load corpus: %w", err)
		}
		occurrences, err = corpus.Occurrences(reviews, groupBy, p.Tokenizer, req.NGram)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrNoInput
	}

	engine := tfidf.NewEngine(smoothing, p.Config.Engine.Workers, p.Logger)
	table, err := engine.ComputeOccurrences(occurrences)
	if err != nil {
		return nil, err
	}

	analysis := storage.NewAnalysis(req.Source, req.GroupBy, req.NGram, table)
	if err := p.Storage.Save(analysis); err != nil {
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	p.Logger.WithFields(logrus.Fields{
		"id":         analysis.ID,
		"documents":  table.Documents,
		"rows":       len(table.Rows),
		"degenerate": table.Degenerate,
	}).Info("Analysis completed")
	return analysis, nil
}

// AllowedSource maps a client-supplied source onto a path the service may read.
// The configured corpus source is always allowed; anything else must be a relative
// path that stays inside the corpus directory. URLs other than the configured source
// are refused.
func (p *Pipeline) AllowedSource(source string) (string, error) {
	if source == "" || source == p.Config.Corpus.Source {
		return source, nil
	}
	dir := p.Config.Corpus.Dir
	if dir == "" || strings.Contains(source, "://") || !filepath.IsLocal(source) {
		return "", &tfidf.InvalidInputError{Field: "source", Reason: ErrSourceNotAllowed.Error()}
	}
	return filepath.Join(dir, source), nil
}

func (p *Pipeline) withDefaults(req Request) Request {
	if req.GroupBy == "" {
		req.GroupBy = p.Config.Corpus.GroupBy
	}
	if req.Smoothing == "" {
		req.Smoothing = p.Config.Engine.Smoothing
	}
	if req.NGram == 0 {
		req.NGram = p.Config.Corpus.NGram
	}
	return req
}

func (p *Pipeline) documentOccurrences(documents map[string]string, ngram int) []tfidf.Occurrence {
	ids := make([]string, 0, len(documents))
	for id := range documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var occurrences []tfidf.Occurrence
	for _, id := range ids {
		for _, token := range text.NGrams(p.Tokenizer.Tokens(documents[id]), ngram) {
			occurrences = append(occurrences, tfidf.Occurrence{DocumentID: id, Token: token})
		}
	}
	return occurrences
}

// Top ranks a stored analysis. k <= 0 is rejected by the engine.
func (p *Pipeline) Top(id string, k int, field tfidf.Field) (map[string][]tfidf.Score, error) {
	analysis, err := p.Storage.Get(id)
	if err != nil {
		return nil, err
	}
	return tfidf.TopKByDocument(analysis.Table, k, field)
}

// Similar finds the documents of a stored analysis closest to one of its documents
func (p *Pipeline) Similar(id, documentID string, k int) ([]tfidf.Similarity, error) {
	analysis, err := p.Storage.Get(id)
	if err != nil {
		return nil, err
	}
	return tfidf.SimilarDocuments(analysis.Table, documentID, k)
}

// Snapshot returns a copy of the current statistics
func (p *Pipeline) Snapshot() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Stats
}
