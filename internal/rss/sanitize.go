package rss

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// stripHTML flattens a feed summary to plain text. Feed descriptions often
// carry markup and tracking pixels that would pollute keyword matching and
// the persisted summary column.
func stripHTML(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.Contains(raw, "<") {
		return collapseWhitespace(raw)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return collapseWhitespace(raw)
	}
	return collapseWhitespace(doc.Text())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
