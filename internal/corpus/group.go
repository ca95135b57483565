package corpus

import (
	"fmt"
	"sort"

	"github.com/knowledge-engine/brewlens/internal/text"
	"github.com/knowledge-engine/brewlens/internal/tfidf"
)

// GroupBy chooses what a "document" is for the tf-idf computation
type GroupBy string

const (
	GroupByStyle  GroupBy = "style"
	GroupByDecile GroupBy = "decile"
	GroupByReview GroupBy = "review"
)

// ParseGroupBy validates a configuration value
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(s) {
	case GroupByStyle, GroupByDecile, GroupByReview:
		return GroupBy(s), nil
	}
	return "", fmt.Errorf("unknown grouping %q (want style, decile or review)", s)
}

// DocumentIDs assigns each review its document id. Reviews that cannot be placed
// (no style, or no rating for decile grouping) get an empty id.
func DocumentIDs(reviews []Review, groupBy GroupBy) ([]string, error) {
	ids := make([]string, len(reviews))
	switch groupBy {
	case GroupByStyle:
		for i, r := range reviews {
			ids[i] = r.Style
		}
	case GroupByReview:
		for i, r := range reviews {
			ids[i] = r.ID
		}
	case GroupByDecile:
		for i, d := range Deciles(reviews) {
			if d > 0 {
				ids[i] = fmt.Sprintf("decile-%02d", d)
			}
		}
	default:
		return nil, fmt.Errorf("unknown grouping %q", groupBy)
	}
	return ids, nil
}

// Deciles buckets rated reviews into ten groups by rating, 1 being the lowest.
// Group sizes differ by at most one and the larger groups come first, so fewer than
// ten reviews are numbered 1..n. Equal ratings keep input order. Unrated reviews get 0.
func Deciles(reviews []Review) []int {
	var rated []int
	for i, r := range reviews {
		if r.Rated {
			rated = append(rated, i)
		}
	}
	sort.SliceStable(rated, func(a, b int) bool {
		return reviews[rated[a]].Rating < reviews[rated[b]].Rating
	})

	deciles := make([]int, len(reviews))
	small, large := len(rated)/10, len(rated)%10
	rank := 0
	for bucket := 1; bucket <= 10; bucket++ {
		size := small
		if bucket <= large {
			size++
		}
		for ; size > 0; size-- {
			deciles[rated[rank]] = bucket
			rank++
		}
	}
	return deciles
}

// Occurrences tokenizes every placeable review into the engine's input stream.
// ngram > 1 emits n-grams instead of single tokens.
func Occurrences(reviews []Review, groupBy GroupBy, tokenizer *text.Tokenizer, ngram int) ([]tfidf.Occurrence, error) {
	ids, err := DocumentIDs(reviews, groupBy)
	if err != nil {
		return nil, err
	}

	var occurrences []tfidf.Occurrence
	for i, r := range reviews {
		if ids[i] == "" {
			continue
		}
		for _, token := range text.NGrams(tokenizer.Tokens(r.Text), ngram) {
			occurrences = append(occurrences, tfidf.Occurrence{DocumentID: ids[i], Token: token})
		}
	}
	return occurrences, nil
}
