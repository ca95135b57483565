// Command tfidf prints the highest scoring tokens of each document of a review corpus.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/brewlens/internal/config"
	"github.com/knowledge-engine/brewlens/internal/corpus"
	"github.com/knowledge-engine/brewlens/internal/text"
	"github.com/knowledge-engine/brewlens/internal/tfidf"
)

func main() {
	cfg := config.Load()

	source := flag.String("source", cfg.Corpus.Source, "review CSV path or http(s) URL")
	group := flag.String("group", cfg.Corpus.GroupBy, "document grouping: style, decile or review")
	smoothing := flag.String("smoothing", cfg.Engine.Smoothing, "term frequency smoothing: raw or log")
	k := flag.Int("k", cfg.Engine.TopK, "tokens per document")
	key := flag.String("key", string(tfidf.FieldTFIDF), "ranking key: tf_idf, tf or idf")
	ngram := flag.Int("ngram", cfg.Corpus.NGram, "n-gram size")
	stem := flag.Bool("stem", cfg.Corpus.Stem, "stem tokens")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	entry := logger.WithField("service", "brewlens-cli")

	if err := run(entry, cfg, *source, *group, *smoothing, *k, *key, *ngram, *stem); err != nil {
		entry.Fatal(err)
	}
}

func run(log *logrus.Entry, cfg *config.Config, source, group, smoothing string, k int, key string, ngram int, stem bool) error {
	if source == "" {
		return fmt.Errorf("-source is required")
	}
	groupBy, err := corpus.ParseGroupBy(group)
	if err != nil {
		return err
	}
	s, err := tfidf.ParseSmoothing(smoothing)
	if err != nil {
		return err
	}
	field, err := tfidf.ParseField(key)
	if err != nil {
		return err
	}

	loader := corpus.NewLoader(corpus.LoaderConfig{
		Timeout:       cfg.Corpus.FetchTimeout,
		UserAgent:     cfg.Corpus.UserAgent,
		RespectRobots: cfg.Corpus.RespectRobots,
	}, log)
	reviews, err := loader.Load(context.Background(), source)
	if err != nil {
		return err
	}

	tokenizer := text.NewTokenizer(cfg.Corpus.MinTokenLength, stem)
	if !cfg.Corpus.StopWords {
		tokenizer.StopWords = nil
	}
	occurrences, err := corpus.Occurrences(reviews, groupBy, tokenizer, ngram)
	if err != nil {
		return err
	}

	table, err := tfidf.NewEngine(s, cfg.Engine.Workers, log).ComputeOccurrences(occurrences)
	if err != nil {
		return err
	}
	top, err := tfidf.TopKByDocument(table, k, field)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(top))
	for id := range top {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOCUMENT\tTOKEN\tN\tTF\tIDF\tTF_IDF")
	for _, id := range ids {
		for _, r := range top[id] {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%.4f\t%.4f\n", r.DocumentID, r.Token, r.N, r.TF, r.IDF, r.TFIDF)
		}
	}
	return w.Flush()
}
