package tfidf_test

import (
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/brewlens/internal/tfidf"
)

func scenarioA() tfidf.Counts {
	return tfidf.Counts{
		{DocumentID: "stout", Token: "chocolate"}: 3,
		{DocumentID: "stout", Token: "beer"}:      5,
		{DocumentID: "ipa", Token: "hoppy"}:       4,
		{DocumentID: "ipa", Token: "beer"}:        5,
	}
}

func newEngine(smoothing tfidf.Smoothing, workers int) *tfidf.Engine {
	logger, _ := logtest.NewNullLogger()
	return tfidf.NewEngine(smoothing, workers, logrus.NewEntry(logger))
}

func find(t *testing.T, table *tfidf.Table, doc, token string) tfidf.Score {
	t.Helper()
	for _, r := range table.Rows {
		if r.DocumentID == doc && r.Token == token {
			return r
		}
	}
	t.Fatalf("no row for (%s, %s)", doc, token)
	return tfidf.Score{}
}

func TestComputeScenarioA(t *testing.T) {
	table, err := newEngine(tfidf.SmoothingRaw, 1).Compute(scenarioA())
	require.NoError(t, err)

	assert.Equal(t, 2, table.Documents)
	assert.False(t, table.Degenerate)
	assert.Len(t, table.Rows, 4)

	chocolate := find(t, table, "stout", "chocolate")
	assert.Equal(t, 3, chocolate.N)
	assert.InDelta(t, 3.0/8.0, chocolate.TF, 1e-12)
	assert.InDelta(t, math.Ln2, chocolate.IDF, 1e-12)
	assert.InDelta(t, 0.2599, chocolate.TFIDF, 1e-4)

	for _, doc := range []string{"stout", "ipa"} {
		beer := find(t, table, doc, "beer")
		assert.Equal(t, 0.0, beer.IDF)
		assert.Equal(t, 0.0, beer.TFIDF)
	}
}

func TestComputeRowsAreOrdered(t *testing.T) {
	table, err := newEngine(tfidf.SmoothingRaw, 1).Compute(scenarioA())
	require.NoError(t, err)

	var got []string
	for _, r := range table.Rows {
		got = append(got, r.DocumentID+"/"+r.Token)
	}
	assert.Equal(t, []string{"ipa/beer", "ipa/hoppy", "stout/beer", "stout/chocolate"}, got)
	assert.Equal(t, []string{"ipa", "stout"}, table.DocumentIDs())
	assert.Len(t, table.Document("stout"), 2)
}

func TestTermFrequencyBounds(t *testing.T) {
	counts := tfidf.Counts{
		{DocumentID: "a", Token: "x"}: 1,
		{DocumentID: "a", Token: "y"}: 7,
		{DocumentID: "a", Token: "z"}: 2,
		{DocumentID: "b", Token: "x"}: 9,
	}
	rows, err := tfidf.ComputeTermFrequency(counts, tfidf.SmoothingRaw)
	require.NoError(t, err)

	sums := map[string]float64{}
	for _, r := range rows {
		assert.Greater(t, r.TF, 0.0)
		assert.LessOrEqual(t, r.TF, 1.0)
		sums[r.DocumentID] += r.TF
	}
	for doc, sum := range sums {
		assert.InDelta(t, 1.0, sum, 1e-12, "document %s", doc)
	}
}

func TestTermFrequencyLogSmoothing(t *testing.T) {
	rows, err := tfidf.ComputeTermFrequency(scenarioA(), tfidf.SmoothingLog)
	require.NoError(t, err)

	for _, r := range rows {
		assert.Greater(t, r.TF, 0.0)
		assert.LessOrEqual(t, r.TF, 1.0)
		if r.DocumentID == "stout" && r.Token == "chocolate" {
			assert.InDelta(t, math.Log(4)/8, r.TF, 1e-12)
		}
	}

	// a single-occurrence document still stays within (0, 1]
	rows, err = tfidf.ComputeTermFrequency(tfidf.Counts{{DocumentID: "d", Token: "t"}: 1}, tfidf.SmoothingLog)
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2, rows[0].TF, 1e-12)
}

func TestInverseDocumentFrequencyMonotonic(t *testing.T) {
	counts := tfidf.Counts{
		{DocumentID: "d1", Token: "rare"}:   1,
		{DocumentID: "d1", Token: "common"}: 1,
		{DocumentID: "d2", Token: "common"}: 1,
		{DocumentID: "d3", Token: "common"}: 1,
		{DocumentID: "d1", Token: "mid"}:    1,
		{DocumentID: "d2", Token: "mid"}:    1,
		{DocumentID: "d4", Token: "other"}:  1,
	}
	idf, nd, err := tfidf.ComputeInverseDocumentFrequency(counts)
	require.NoError(t, err)

	assert.Equal(t, 4, nd)
	assert.Greater(t, idf["rare"], idf["mid"])
	assert.Greater(t, idf["mid"], idf["common"])
	assert.InDelta(t, math.Log(4), idf["rare"], 1e-12)
}

func TestUbiquitousTokenHasZeroWeight(t *testing.T) {
	counts := tfidf.Counts{}
	for i, doc := range []string{"stout", "ipa", "lager", "porter"} {
		counts[tfidf.Key{DocumentID: doc, Token: "beer"}] = 10 * (i + 1)
		counts[tfidf.Key{DocumentID: doc, Token: doc}] = 1
	}
	table, err := newEngine(tfidf.SmoothingRaw, 1).Compute(counts)
	require.NoError(t, err)

	for _, r := range table.Rows {
		if r.Token == "beer" {
			assert.Equal(t, 0.0, r.IDF)
			assert.Equal(t, 0.0, r.TFIDF)
		} else {
			assert.InDelta(t, math.Log(4), r.IDF, 1e-12)
		}
	}
}

func TestSingleDocumentIsDegenerate(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	engine := tfidf.NewEngine(tfidf.SmoothingRaw, 1, logrus.NewEntry(logger))

	table, err := engine.Compute(tfidf.Counts{
		{DocumentID: "only", Token: "malty"}: 2,
		{DocumentID: "only", Token: "sweet"}: 1,
	})
	require.NoError(t, err)

	assert.True(t, table.Degenerate)
	assert.Equal(t, 1, table.Documents)
	for _, r := range table.Rows {
		assert.Equal(t, 0.0, r.IDF)
		assert.Equal(t, 0.0, r.TFIDF)
	}
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestEmptyInputIsDegenerate(t *testing.T) {
	table, err := newEngine(tfidf.SmoothingRaw, 1).Compute(tfidf.Counts{})
	require.NoError(t, err)
	assert.True(t, table.Degenerate)
	assert.Empty(t, table.Rows)
}

func TestComputeIsOrderIndependent(t *testing.T) {
	forward := []tfidf.Occurrence{
		{DocumentID: "stout", Token: "roasty"},
		{DocumentID: "stout", Token: "coffee"},
		{DocumentID: "ipa", Token: "citrus"},
		{DocumentID: "stout", Token: "roasty"},
		{DocumentID: "ipa", Token: "pine"},
		{DocumentID: "lager", Token: "crisp"},
		{DocumentID: "ipa", Token: "citrus"},
		{DocumentID: "lager", Token: "coffee"},
	}
	backward := make([]tfidf.Occurrence, len(forward))
	for i, o := range forward {
		backward[len(forward)-1-i] = o
	}

	engine := newEngine(tfidf.SmoothingRaw, 1)
	a, err := engine.ComputeOccurrences(forward)
	require.NoError(t, err)
	b, err := engine.ComputeOccurrences(backward)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	parallel, err := newEngine(tfidf.SmoothingRaw, 4).ComputeOccurrences(backward)
	require.NoError(t, err)
	assert.Equal(t, a, parallel)
}

func TestInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		counts tfidf.Counts
		field  string
	}{
		{"zero count", tfidf.Counts{{DocumentID: "a", Token: "x"}: 0}, "n"},
		{"negative count", tfidf.Counts{{DocumentID: "a", Token: "x"}: -2}, "n"},
		{"missing document", tfidf.Counts{{DocumentID: "", Token: "x"}: 1}, "document_id"},
		{"missing token", tfidf.Counts{{DocumentID: "a", Token: ""}: 1}, "token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := newEngine(tfidf.SmoothingRaw, 1).Compute(tt.counts)
			assert.Nil(t, table)
			require.ErrorIs(t, err, tfidf.ErrInvalidInput)

			var inputErr *tfidf.InvalidInputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}
}

func TestCountOccurrencesRejectsMissingFields(t *testing.T) {
	_, err := tfidf.CountOccurrences([]tfidf.Occurrence{{DocumentID: "a", Token: "x"}, {DocumentID: "a"}})
	assert.ErrorIs(t, err, tfidf.ErrInvalidInput)

	counts, err := tfidf.CountOccurrences([]tfidf.Occurrence{
		{DocumentID: "a", Token: "x"},
		{DocumentID: "a", Token: "x"},
		{DocumentID: "b", Token: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, counts[tfidf.Key{DocumentID: "a", Token: "x"}])
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, counts.Totals())
	assert.Equal(t, map[string]int{"x": 2}, counts.DocumentFrequency())
}

func TestParseSmoothing(t *testing.T) {
	s, err := tfidf.ParseSmoothing("log")
	require.NoError(t, err)
	assert.Equal(t, tfidf.SmoothingLog, s)

	_, err = tfidf.ParseSmoothing("sqrt")
	assert.ErrorIs(t, err, tfidf.ErrInvalidInput)

	_, err = newEngine("", 1).Compute(scenarioA())
	assert.ErrorIs(t, err, tfidf.ErrInvalidInput)
}
