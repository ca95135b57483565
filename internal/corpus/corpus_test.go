package corpus_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/brewlens/internal/corpus"
	"github.com/knowledge-engine/brewlens/internal/text"
)

const sampleCSV = `review_id,beer_name,style,rating,text
r1,Night Owl,Stout,4.5,"Rich chocolate and coffee, <br>very roasty"
r2,Hop Bomb,IPA,3.0,Hoppy &amp; bitter with citrus
r3,Dark Star,Stout,,Chocolate again
`

func newLoader(robots bool) *corpus.Loader {
	logger, _ := logtest.NewNullLogger()
	return corpus.NewLoader(corpus.LoaderConfig{
		Timeout:       5 * time.Second,
		UserAgent:     "brewlens-test",
		RespectRobots: robots,
	}, logrus.NewEntry(logger))
}

func TestReadCSV(t *testing.T) {
	reviews, err := corpus.ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, reviews, 3)

	assert.Equal(t, "r1", reviews[0].ID)
	assert.Equal(t, "Night Owl", reviews[0].Beer)
	assert.Equal(t, "Stout", reviews[0].Style)
	assert.True(t, reviews[0].Rated)
	assert.Equal(t, 4.5, reviews[0].Rating)
	assert.False(t, reviews[2].Rated)
}

func TestReadCSVAliases(t *testing.T) {
	reviews, err := corpus.ReadCSV(strings.NewReader("Beer_Style,Score,Review\nPorter,3.5,smoky\n"))
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "1", reviews[0].ID)
	assert.Equal(t, "Porter", reviews[0].Style)
	assert.Equal(t, 3.5, reviews[0].Rating)
	assert.Equal(t, "smoky", reviews[0].Text)
}

func TestReadCSVWithoutText(t *testing.T) {
	_, err := corpus.ReadCSV(strings.NewReader("style,rating\nStout,4\n"))
	assert.ErrorIs(t, err, corpus.ErrNoTextColumn)
}

func TestDeciles(t *testing.T) {
	var reviews []corpus.Review
	for i := 0; i < 20; i++ {
		reviews = append(reviews, corpus.Review{Rating: float64(20 - i), Rated: true})
	}
	reviews = append(reviews, corpus.Review{})

	deciles := corpus.Deciles(reviews)
	assert.Equal(t, 10, deciles[0])
	assert.Equal(t, 10, deciles[1])
	assert.Equal(t, 1, deciles[18])
	assert.Equal(t, 1, deciles[19])
	assert.Equal(t, 0, deciles[20])
}

func TestDecilesUnevenBuckets(t *testing.T) {
	rated := func(n int) []corpus.Review {
		reviews := make([]corpus.Review, n)
		for i := range reviews {
			reviews[i] = corpus.Review{Rating: float64(i), Rated: true}
		}
		return reviews
	}

	tests := []struct {
		name string
		n    int
		want []int
	}{
		{"Fewer than ten", 3, []int{1, 2, 3}},
		{"Two larger buckets first", 12, []int{1, 1, 2, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{"Single review", 1, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, corpus.Deciles(rated(tt.n)))
		})
	}
}

func TestOccurrencesByStyle(t *testing.T) {
	reviews, err := corpus.ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	occ, err := corpus.Occurrences(reviews, corpus.GroupByStyle, text.NewTokenizer(3, false), 1)
	require.NoError(t, err)

	counts := map[string]int{}
	for _, o := range occ {
		counts[o.DocumentID+"/"+o.Token]++
	}
	assert.Equal(t, 2, counts["Stout/chocolate"])
	assert.Equal(t, 1, counts["IPA/hoppy"])
	assert.Equal(t, 0, counts["IPA/amp"])
}

func TestOccurrencesByDecileSkipsUnrated(t *testing.T) {
	reviews, err := corpus.ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	occ, err := corpus.Occurrences(reviews, corpus.GroupByDecile, text.NewTokenizer(3, false), 2)
	require.NoError(t, err)

	docs := map[string]bool{}
	for _, o := range occ {
		docs[o.DocumentID] = true
		assert.Contains(t, o.Token, " ")
	}
	assert.Equal(t, map[string]bool{"decile-01": true, "decile-02": true}, docs)
}

func TestParseGroupBy(t *testing.T) {
	g, err := corpus.ParseGroupBy("review")
	require.NoError(t, err)
	assert.Equal(t, corpus.GroupByReview, g)

	_, err = corpus.ParseGroupBy("brewery")
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))

	reviews, err := newLoader(false).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, reviews, 3)

	_, err = newLoader(false).Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestLoaderWithoutLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))

	loader := corpus.NewLoader(corpus.LoaderConfig{Timeout: time.Second, UserAgent: "brewlens-test"}, nil)
	reviews, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, reviews, 3)
}

func TestLoadURLRespectsRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
		default:
			fmt.Fprint(w, sampleCSV)
		}
	}))
	defer server.Close()

	reviews, err := newLoader(true).Load(context.Background(), server.URL+"/data/reviews.csv")
	require.NoError(t, err)
	assert.Len(t, reviews, 3)

	_, err = newLoader(true).Load(context.Background(), server.URL+"/private/reviews.csv")
	assert.ErrorIs(t, err, corpus.ErrDisallowed)

	reviews, err = newLoader(false).Load(context.Background(), server.URL+"/private/reviews.csv")
	require.NoError(t, err)
	assert.Len(t, reviews, 3)
}

func TestLoadURLNon200(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := newLoader(true).Load(context.Background(), server.URL+"/reviews.csv")
	assert.Error(t, err)
}
