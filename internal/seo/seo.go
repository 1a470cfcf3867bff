// Package seo implements the SEO Analyzer: mechanical extraction of title,
// meta, heading, Open Graph, Twitter Card, and viewport signals from
// rendered HTML, plus a conservative soft-404 heuristic.
package seo

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lovablehtml/prerender-engine/internal/model"
	"github.com/lovablehtml/prerender-engine/internal/utils/markdown"
)

// softNotFoundPhrases are checked against the plain-text rendering of the
// page body. A match is necessary but not sufficient for isSoft404 — it
// must also combine with a low word count.
var softNotFoundPhrases = []string{
	"page not found",
	"404",
	"doesn't exist",
	"does not exist",
	"no longer available",
}

// wordCountSoft404Threshold is the "low word count" side of the AND
// condition; a page with substantial content is never flagged regardless of
// keyword matches.
const wordCountSoft404Threshold = 80

// Analyze parses html and produces the mechanically-derived SEO signals.
// statusCode is used only for the soft-404 verdict: an HTTP 200 response
// whose content indicates the resource is actually absent.
func Analyze(html string, statusCode int) model.SEOSignals {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.SEOSignals{}
	}

	signals := model.SEOSignals{
		Title:              strings.TrimSpace(doc.Find("title").First().Text()),
		MetaDescription:    metaContent(doc, "name", "description"),
		Canonical:          attrValue(doc, `link[rel="canonical"]`, "href"),
		OGTitle:            metaContent(doc, "property", "og:title"),
		OGDescription:      metaContent(doc, "property", "og:description"),
		OGImage:            metaContent(doc, "property", "og:image"),
		OGSiteName:         metaContent(doc, "property", "og:site_name"),
		TwitterTitle:       metaContent(doc, "name", "twitter:title"),
		TwitterDescription: metaContent(doc, "name", "twitter:description"),
		TwitterImage:       metaContent(doc, "name", "twitter:image"),
		Viewport:           metaContent(doc, "name", "viewport"),
	}

	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			signals.H1s = append(signals.H1s, text)
		}
	})

	plainText := markdown.ConvertHTMLToMarkdown(html)
	signals.WordCount = len(strings.Fields(plainText))
	signals.IsSoft404 = statusCode == 200 && signals.WordCount < wordCountSoft404Threshold && containsAny(strings.ToLower(plainText), softNotFoundPhrases)

	return signals
}

func metaContent(doc *goquery.Document, attr, value string) string {
	sel := doc.Find(`meta[` + attr + `="` + value + `"]`).First()
	content, _ := sel.Attr("content")
	return strings.TrimSpace(content)
}

func attrValue(doc *goquery.Document, selector, attr string) string {
	sel := doc.Find(selector).First()
	v, _ := sel.Attr(attr)
	return strings.TrimSpace(v)
}

func containsAny(haystack string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(haystack, p) {
			return true
		}
	}
	return false
}
