package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks returns the raw href targets of every anchor in the given
// DOM snapshot, visible or not. Extraction happens after rendering, so
// dynamically inserted anchors are included. Anchors with absent or empty
// hrefs are skipped; no normalization happens here.
func ExtractLinks(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		links = append(links, href)
	})
	return links
}
