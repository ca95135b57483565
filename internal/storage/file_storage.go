package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStorage implements AnalysisStorage using the local file system
type FileStorage struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStorage creates a new file-based storage
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{
		baseDir: baseDir,
	}, nil
}

// Save writes the analysis to a JSON file named after its id
func (fs *FileStorage) Save(analysis *Analysis) error {
	if !validID(analysis.ID) {
		return fmt.Errorf("invalid analysis id %q", analysis.ID)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	// write then rename so readers never see a partial file
	tmp := fs.path(analysis.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, fs.path(analysis.ID)); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Get retrieves an analysis from disk
func (fs *FileStorage) Get(id string) (*Analysis, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var analysis Analysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}
	return &analysis, nil
}

// List returns summaries of every stored analysis, newest first
func (fs *FileStorage) List() ([]Summary, error) {
	fs.mu.RLock()
	entries, err := os.ReadDir(fs.baseDir)
	fs.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	var summaries []Summary
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		analysis, err := fs.Get(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		summaries = append(summaries, analysis.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// Close is a no-op for file storage
func (fs *FileStorage) Close() error {
	return nil
}

func (fs *FileStorage) path(id string) string {
	return filepath.Join(fs.baseDir, id+".json")
}
