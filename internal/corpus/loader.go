package corpus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

// ErrDisallowed is returned when robots.txt forbids fetching a remote source
var ErrDisallowed = errors.New("source blocked by robots.txt")

// LoaderConfig controls remote fetching
type LoaderConfig struct {
	Timeout       time.Duration
	UserAgent     string
	RespectRobots bool
}

// Loader reads review datasets from local files or http(s) URLs
type Loader struct {
	config LoaderConfig
	client *http.Client
	logger *logrus.Entry
}

func NewLoader(cfg LoaderConfig, logger *logrus.Entry) *Loader {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Loader{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.WithField("component", "corpus_loader"),
	}
}

// Load reads every review from source
func (l *Loader) Load(ctx context.Context, source string) ([]Review, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.fetch(ctx, source)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	reviews, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	l.logger.WithFields(logrus.Fields{"source": source, "reviews": len(reviews)}).Info("Loaded corpus")
	return reviews, nil
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]Review, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if l.config.RespectRobots {
		allowed, err := l.allowed(ctx, parsed)
		if err != nil {
			l.logger.WithError(err).WithField("host", parsed.Host).Warn("Failed to get robots.txt, allowing request")
		} else if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", l.config.UserAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	reviews, err := ReadCSV(resp.Body)
	if err != nil {
		return nil, err
	}
	l.logger.WithFields(logrus.Fields{"source": rawURL, "reviews": len(reviews)}).Info("Fetched corpus")
	return reviews, nil
}

// allowed checks the source path against the host's robots.txt. A missing
// robots.txt allows everything.
func (l *Loader) allowed(ctx context.Context, source *url.URL) (bool, error) {
	robotsURL := url.URL{Scheme: source.Scheme, Host: source.Host, Path: "/robots.txt"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create robots.txt request: %w", err)
	}
	req.Header.Set("User-Agent", l.config.UserAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return true, nil
	}
	robotsData, err := robotstxt.FromResponse(resp)
	if err != nil {
		return false, fmt.Errorf("failed to parse robots.txt: %w", err)
	}

	group := robotsData.FindGroup(l.config.UserAgent)
	if group == nil {
		return true, nil
	}
	return group.Test(source.Path), nil
}
