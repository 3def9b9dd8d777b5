package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the minimum TextContent length (in characters) for
// readability output to be trusted. Short results usually mean the
// algorithm picked a cookie notice or navigation block instead of the
// policy body.
const minContentLength = 200

// mainContent runs the Readability algorithm on rawHTML and returns the
// main content as HTML. ok is false when the whole <body> was used instead.
func mainContent(rawHTML, sourceURL string) (content string, ok bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("readability: invalid source URL, using document body",
			"url", sourceURL, "error", err,
		)
		return bodyHTML(rawHTML), false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Warn("readability: extraction failed, using document body",
			"url", sourceURL, "error", err,
		)
		return bodyHTML(rawHTML), false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Debug("readability: extracted content too short, using document body",
			"url", sourceURL, "length", len(article.TextContent),
		)
		return bodyHTML(rawHTML), false
	}

	return article.Content, true
}

// bodyHTML returns the inner HTML of <body> with scripts and styles removed,
// or rawHTML itself when it cannot be parsed.
func bodyHTML(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}
	doc.Find("script, style, noscript, nav, header, footer").Remove()
	h, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(h) == "" {
		return rawHTML
	}
	return h
}
