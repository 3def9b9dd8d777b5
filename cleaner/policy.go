// Package cleaner reduces a privacy-policy page to compact Markdown text
// suitable for summarization.
package cleaner

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
)

// PolicyExtractor turns policy HTML into Markdown. It is safe for
// concurrent use.
type PolicyExtractor struct {
	conv *converter.Converter
}

// NewPolicyExtractor creates a PolicyExtractor.
func NewPolicyExtractor() *PolicyExtractor {
	return &PolicyExtractor{conv: newPolicyConverter()}
}

// Text extracts the main content of rawHTML as Markdown, truncated to at
// most maxChars runes. It returns "" when the page has no usable text.
func (p *PolicyExtractor) Text(rawHTML, sourceURL string, maxChars int) string {
	content, _ := mainContent(rawHTML, sourceURL)

	md, err := policyMarkdown(p.conv, content, sourceURL)
	if err != nil {
		slog.Warn("cleaner: markdown conversion failed, using plain text",
			"url", sourceURL, "error", err,
		)
		md = plainText(content)
	}

	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	return Truncate(md, maxChars)
}

// Truncate shortens s to at most n runes without splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// EstimateTokens approximates the token count of text as runes / 3.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(n/3, 1)
}

func plainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
