package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/brewlens/internal/api"
	"github.com/knowledge-engine/brewlens/internal/config"
	"github.com/knowledge-engine/brewlens/internal/pipeline"
	"github.com/knowledge-engine/brewlens/internal/storage"
)

func main() {
	// Setup Logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	entry := logger.WithField("service", "brewlens-api")

	entry.Info("Starting brewlens tf-idf service")

	// 1. Config
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		entry.Fatal(err)
	}

	// 2. Storage
	store, err := openStorage(cfg.Storage)
	if err != nil {
		entry.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// 3. Pipeline
	p := pipeline.NewPipeline(cfg, entry, store)
	if cfg.Corpus.Source != "" {
		analysis, err := p.Run(context.Background(), pipeline.Request{Source: cfg.Corpus.Source})
		if err != nil {
			entry.WithError(err).Warn("Initial analysis failed")
		} else {
			entry.WithField("id", analysis.ID).Infof("Pre-computed analysis of %s", cfg.Corpus.Source)
		}
	}

	// 4. API Server
	server := api.NewServer(p, entry)
	if err := server.Start(cfg.Server.Addr); err != nil {
		entry.Fatal(err)
	}
}

func openStorage(cfg config.StorageConfig) (storage.AnalysisStorage, error) {
	if cfg.Driver == "sqlite" {
		return storage.NewSQLiteStorage(cfg.SQLitePath)
	}
	return storage.NewFileStorage(cfg.Dir)
}
