package sitemap

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverFlatSitemapAllWindow(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<urlset>
  <url><loc>https://example.com/a</loc><lastmod>2020-01-01</lastmod></url>
  <url><loc>https://example.com/b</loc></url>
</urlset>`))
	}))
	defer srv.Close()

	d := New()
	entries := d.Discover(srv.URL, WindowAll)

	require.Len(t, entries, 2)
	locs := []string{entries[0].Loc, entries[1].Loc}
	assert.Contains(t, locs, "https://example.com/a")
	assert.Contains(t, locs, "https://example.com/b")
}

func TestDiscoverWindowDropsStaleAndUndatedEntries(t *testing.T) {
	t.Parallel()
	recent := time.Now().UTC().Add(-1 * time.Hour).Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<urlset>
  <url><loc>https://example.com/fresh</loc><lastmod>` + recent + `</lastmod></url>
  <url><loc>https://example.com/stale</loc><lastmod>2010-01-01</lastmod></url>
  <url><loc>https://example.com/undated</loc></url>
</urlset>`))
	}))
	defer srv.Close()

	d := New()
	entries := d.Discover(srv.URL, Window1Day)

	require.Len(t, entries, 1)
	assert.Equal(t, "https://example.com/fresh", entries[0].Loc)
}

func TestDiscoverRecursesSitemapIndex(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/child.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<urlset>
  <url><loc>https://example.com/child-page</loc></url>
</urlset>`))
	})
	mux.HandleFunc("/index.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<sitemapindex>
  <sitemap><loc>` + srv.URL + `/child.xml</loc></sitemap>
</sitemapindex>`))
	})

	d := New()
	entries := d.Discover(srv.URL+"/index.xml", WindowAll)

	require.Len(t, entries, 1)
	assert.Equal(t, "https://example.com/child-page", entries[0].Loc)
}

func TestDiscoverFetchFailureReturnsNoURLs(t *testing.T) {
	t.Parallel()
	d := New()

	entries := d.Discover("http://127.0.0.1:1/does-not-exist", WindowAll)

	assert.Empty(t, entries)
}
