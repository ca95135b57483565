// Package text normalises review text into tokens for the tf-idf engine.
package text

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// Tokenizer splits text into normalized tokens (lowercase words)
type Tokenizer struct {
	// MinLength drops tokens shorter than this many runes
	MinLength int
	StopWords map[string]struct{}
	// Stem reduces tokens with the english snowball stemmer, after stop word removal
	Stem bool
}

// NewTokenizer returns a tokenizer with the default english stop words
func NewTokenizer(minLength int, stem bool) *Tokenizer {
	return &Tokenizer{
		MinLength: minLength,
		StopWords: DefaultStopWords(),
		Stem:      stem,
	}
}

// Tokens cleans and splits text. Apostrophes inside words are dropped so that
// "don't" and "dont" agree.
func (t *Tokenizer) Tokens(input string) []string {
	f := func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsNumber(c)
	}
	cleaned := strings.NewReplacer("'", "", "’", "").Replace(Clean(input))
	fields := strings.FieldsFunc(cleaned, f)

	var tokens []string
	for _, field := range fields {
		token := strings.ToLower(field)
		if len([]rune(token)) < t.MinLength {
			continue
		}
		if _, stop := t.StopWords[token]; stop {
			continue
		}
		if t.Stem {
			if stemmed, err := snowball.Stem(token, "english", false); err == nil && stemmed != "" {
				token = stemmed
			}
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// NGrams joins each run of n consecutive tokens with a space. n <= 1 returns the input.
func NGrams(tokens []string, n int) []string {
	if n <= 1 {
		return tokens
	}
	if len(tokens) < n {
		return nil
	}
	grams := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		grams = append(grams, strings.Join(tokens[i:i+n], " "))
	}
	return grams
}
