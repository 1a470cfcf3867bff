// Package discovery implements the Link Discoverer: a same-host,
// breadth-first anchor-link crawl used as a fallback when the sitemap
// yields too few candidate URLs.
package discovery

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/lovablehtml/prerender-engine/internal/logger"
)

// Options bounds a link-discovery crawl.
type Options struct {
	MaxDepth          int
	MaxLinks          int
	IncludeSubdomains bool
}

// Discoverer crawls anchor links breadth-first, staying on the seed's
// registered host.
type Discoverer struct {
	log *logger.Logger
}

// New returns a Discoverer.
func New() *Discoverer {
	return &Discoverer{log: logger.New("LinkDiscoverer")}
}

// Discover crawls from seedURL and returns every same-host link found,
// bounded by opts.MaxDepth and opts.MaxLinks. It never crosses subdomains
// unless opts.IncludeSubdomains is set.
func (d *Discoverer) Discover(seedURL string, opts Options) ([]string, error) {
	maxDepth := opts.MaxDepth
	if maxDepth < 1 {
		maxDepth = 1
	}
	maxLinks := opts.MaxLinks

	seedHost := hostOf(seedURL)
	if seedHost == "" {
		return nil, fmt.Errorf("discovery: seed URL %q has no host", seedURL)
	}

	var mu sync.Mutex
	links := make(map[string]struct{})

	c := colly.NewCollector(colly.MaxDepth(maxDepth), colly.Async(true))
	c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 10, RandomDelay: 500 * time.Millisecond})

	c.OnRequest(func(r *colly.Request) {
		mu.Lock()
		reached := maxLinks > 0 && len(links) >= maxLinks
		mu.Unlock()
		if reached {
			r.Abort()
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		d.log.LogWarnf("discovery fetch %s: %v", r.Request.URL, err)
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := normalize(e.Request.AbsoluteURL(e.Attr("href")))
		if link == "" {
			return
		}
		if !hostsMatch(hostOf(link), seedHost, opts.IncludeSubdomains) {
			return
		}

		mu.Lock()
		_, seen := links[link]
		if !seen && maxLinks > 0 && len(links) >= maxLinks {
			mu.Unlock()
			return
		}
		if !seen {
			links[link] = struct{}{}
		}
		reached := maxLinks > 0 && len(links) >= maxLinks
		mu.Unlock()

		if !seen && !reached && e.Request.Depth < maxDepth {
			_ = e.Request.Visit(link)
		}
	})

	if err := c.Visit(seedURL); err != nil {
		return nil, fmt.Errorf("discovery: visit %s: %w", seedURL, err)
	}
	c.Wait()

	out := make([]string, 0, len(links))
	for l := range links {
		out = append(out, l)
	}
	d.log.LogInfof("discovered %d links from %s", len(out), seedURL)
	return out, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

func hostsMatch(candidate, seed string, includeSubdomains bool) bool {
	if candidate == "" || seed == "" {
		return false
	}
	candidate = strings.TrimPrefix(candidate, "www.")
	seed = strings.TrimPrefix(seed, "www.")
	if candidate == seed {
		return true
	}
	if includeSubdomains && (strings.HasSuffix(candidate, "."+seed) || strings.HasSuffix(seed, "."+candidate)) {
		return true
	}
	return false
}
