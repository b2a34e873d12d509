// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package htmltext turns the markup carried by a block into plain text.
//
// Tags are dropped and text is copied through untouched: character
// references such as "&amp;" are not decoded. Line breaks and paragraph ends
// become newlines so block structure survives as whitespace.
package htmltext

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

var (
	// tagSpan matches anything still shaped like a tag after tokenizing,
	// e.g. "< b>", which HTML treats as text.
	tagSpan = regexp.MustCompile(`<[^<>]*>`)

	extraNewlines = regexp.MustCompile(`\n{3,}`)
)

// Extract returns the plain text of markup, trimmed. Markup that is empty or
// holds only tags and whitespace yields "".
func Extract(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return normalize(b.String())
		case html.TextToken:
			b.Write(z.Raw())
		case html.StartTagToken, html.SelfClosingTagToken:
			// Tokenize script/style/title bodies too, so tags inside them are stripped.
			z.NextIsNotRawText()
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			switch name, _ := z.TagName(); string(name) {
			case "p", "br":
				b.WriteByte('\n')
			}
		}
	}
}

func normalize(s string) string {
	s = tagSpan.ReplaceAllString(s, "")
	s = extraNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Markdown renders markup as Markdown. Empty markup yields "".
func Markdown(markup string) (string, error) {
	if strings.TrimSpace(markup) == "" {
		return "", nil
	}
	md, err := htmltomarkdown.ConvertString(markup)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}
