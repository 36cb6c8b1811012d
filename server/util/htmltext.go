package util

import (
	"strings"

	"golang.org/x/net/html"
)

// HtmlToText strips markup from an HTML fragment and returns at most maxWords
// whitespace-separated words. A non-positive maxWords returns every word.
func HtmlToText(fragment string, maxWords int) string {
	if fragment == "" {
		return ""
	}

	var words []string
	z := html.NewTokenizer(strings.NewReader(fragment))
	skip := 0

loop:
	for {
		switch z.Next() {
		case html.ErrorToken:
			break loop
		case html.StartTagToken:
			if isInvisible(z) {
				skip++
			}
		case html.EndTagToken:
			if skip > 0 && isInvisible(z) {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			for _, w := range strings.Fields(string(z.Text())) {
				words = append(words, w)
				if maxWords > 0 && len(words) >= maxWords {
					break loop
				}
			}
		}
	}

	return strings.Join(words, " ")
}

func isInvisible(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style", "template":
		return true
	}
	return false
}

// Excerpt returns the plain text of fragment truncated to maxChars runes, with an
// ellipsis when anything was cut.
func Excerpt(fragment string, maxChars int) string {
	text := HtmlToText(fragment, 0)
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return text
	}

	cut := strings.TrimRight(string(runes[:maxChars]), " ")
	return cut + "…"
}
