// Package sitemap discovers render candidate URLs by streaming a sitemap
// (or sitemap index) over HTTP, filtering by lastmod recency.
package sitemap

import (
	"encoding/xml"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lovablehtml/prerender-engine/internal/logger"
	"github.com/lovablehtml/prerender-engine/internal/model"
)

// Window is the recency filter applied to a sitemap entry's lastmod.
type Window string

const (
	Window1Day   Window = "1d"
	Window3Days  Window = "3d"
	Window7Days  Window = "7d"
	Window30Days Window = "30d"
	WindowAll    Window = "all"
)

// maxSitemapWorkers bounds concurrent recursive sitemap-index fetches.
const maxSitemapWorkers = 10

// fetchTimeout bounds a single sitemap HTTP fetch.
const fetchTimeout = 30 * time.Second

type locEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// Discoverer fetches and decodes sitemap XML.
type Discoverer struct {
	client *http.Client
	log    *logger.Logger
}

// New returns a Discoverer.
func New() *Discoverer {
	return &Discoverer{
		client: &http.Client{Timeout: fetchTimeout},
		log:    logger.New("SitemapDiscoverer"),
	}
}

// Discover fetches sitemapURL (recursing through sitemap-index files) and
// returns every <url> entry whose lastmod falls within window. A fetch
// failure anywhere in the tree is logged and contributes zero URLs from
// that branch — it never fails the caller.
func (d *Discoverer) Discover(sitemapURL string, window Window) []model.SitemapEntry {
	now := time.Now().UTC()
	sem := make(chan struct{}, maxSitemapWorkers)

	var mu sync.Mutex
	var results []model.SitemapEntry

	var wg sync.WaitGroup
	var crawl func(u string)
	crawl = func(u string) {
		defer wg.Done()
		sem <- struct{}{}
		defer func() { <-sem }()

		entries, children := d.fetchOne(u)
		for _, e := range entries {
			if withinWindow(e, window, now) {
				mu.Lock()
				results = append(results, e)
				mu.Unlock()
			}
		}
		for _, child := range children {
			wg.Add(1)
			go crawl(child)
		}
	}

	wg.Add(1)
	go crawl(sitemapURL)
	wg.Wait()

	return results
}

// fetchOne streams a single sitemap document, returning its <url> entries
// and any <sitemap> children (sitemap-index) to recurse into.
func (d *Discoverer) fetchOne(u string) (entries []model.SitemapEntry, children []string) {
	resp, err := d.client.Get(u)
	if err != nil {
		d.log.LogWarnf("fetch sitemap %s: %v", u, err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.log.LogWarnf("fetch sitemap %s: status %d", u, resp.StatusCode)
		return nil, nil
	}

	decoder := xml.NewDecoder(resp.Body)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			d.log.LogWarnf("decode sitemap %s: %v", u, err)
			break
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "sitemap":
			var e locEntry
			if err := decoder.DecodeElement(&e, &se); err == nil && e.Loc != "" {
				children = append(children, e.Loc)
			}
		case "url":
			var e locEntry
			if err := decoder.DecodeElement(&e, &se); err == nil && e.Loc != "" {
				entry := model.SitemapEntry{Loc: e.Loc}
				if lastMod, ok := parseLastMod(e.LastMod); ok {
					entry.LastMod = &lastMod
				}
				entries = append(entries, entry)
			}
		}
	}

	return entries, children
}

// withinWindow reports whether entry's lastmod falls inside window. The
// "all" window keeps everything, including entries with no lastmod. Every
// other window drops entries with no lastmod, since recency can't be
// established for them.
func withinWindow(entry model.SitemapEntry, window Window, now time.Time) bool {
	if window == WindowAll {
		return true
	}
	if entry.LastMod == nil {
		return false
	}
	cutoff := now.Add(-windowDuration(window))
	return !entry.LastMod.Before(cutoff)
}

func windowDuration(window Window) time.Duration {
	switch window {
	case Window1Day:
		return 24 * time.Hour
	case Window3Days:
		return 3 * 24 * time.Hour
	case Window7Days:
		return 7 * 24 * time.Hour
	case Window30Days:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// parseLastMod accepts both RFC 3339 and the bare date form sitemaps
// commonly use.
func parseLastMod(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
