package seo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeExtractsCoreSignals(t *testing.T) {
	t.Parallel()
	html := `<html><head>
		<title>  Widgets For Sale  </title>
		<meta name="description" content="Buy widgets">
		<link rel="canonical" href="https://example.com/widgets">
		<meta property="og:title" content="Widgets">
		<meta name="viewport" content="width=device-width">
	</head><body>
		<h1>Widgets</h1>
		<h1>Second heading</h1>
		<p>` + strings.Repeat("word ", 200) + `</p>
	</body></html>`

	signals := Analyze(html, 200)

	assert.Equal(t, "Widgets For Sale", signals.Title)
	assert.Equal(t, "Buy widgets", signals.MetaDescription)
	assert.Equal(t, "https://example.com/widgets", signals.Canonical)
	assert.Equal(t, "Widgets", signals.OGTitle)
	assert.Equal(t, "width=device-width", signals.Viewport)
	assert.Equal(t, []string{"Widgets", "Second heading"}, signals.H1s)
	assert.False(t, signals.IsSoft404)
}

// A 200 page with substantial word count is never flagged soft-404, even
// when it contains a matching keyword.
func TestAnalyzeSoft404ConservatismRequiresLowWordCount(t *testing.T) {
	t.Parallel()
	html := `<html><body><h1>404</h1><p>` + strings.Repeat("legitimate content word ", 100) + `</p></body></html>`

	signals := Analyze(html, 200)

	assert.False(t, signals.IsSoft404)
}

func TestAnalyzeFlagsThinKeywordMatchingPageAsSoft404(t *testing.T) {
	t.Parallel()
	html := `<html><body><h1>404</h1><p>Sorry, this page doesn't exist.</p></body></html>`

	signals := Analyze(html, 200)

	assert.True(t, signals.IsSoft404)
}

func TestAnalyzeNeverFlagsNon200Status(t *testing.T) {
	t.Parallel()
	html := `<html><body><p>Sorry, this page doesn't exist.</p></body></html>`

	signals := Analyze(html, 404)

	assert.False(t, signals.IsSoft404)
}
