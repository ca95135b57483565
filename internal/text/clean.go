package text

import (
	"strings"

	"golang.org/x/net/html"
)

// Clean strips markup from review text, decodes entities and collapses whitespace.
// Script and style contents are dropped.
func Clean(input string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(input))
	var textBuilder strings.Builder
	inScript := false
	inStyle := false

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			// io.EOF; a string reader has no other failure
			return collapse(textBuilder.String())

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script":
				inScript = tokenType == html.StartTagToken
			case "style":
				inStyle = tokenType == html.StartTagToken
			default:
				// <br>, <p> and friends separate words
				textBuilder.WriteByte(' ')
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script":
				inScript = false
			case "style":
				inStyle = false
			default:
				textBuilder.WriteByte(' ')
			}

		case html.TextToken:
			if !inScript && !inStyle {
				textBuilder.Write(tokenizer.Text())
			}
		}
	}
}

func collapse(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
