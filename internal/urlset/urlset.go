// Package urlset builds the deduplicated, order-preserving URL list the
// orchestrator renders, merging seed URLs with sitemap and link-discovery
// output.
package urlset

import (
	"net/url"
	"strings"

	"github.com/lovablehtml/prerender-engine/internal/logger"
	"github.com/lovablehtml/prerender-engine/internal/urlkey"
)

var log = logger.New("URLSetBuilder")

// Build parses every candidate, drops unparseable or off-host entries, and
// deduplicates on the canonical KV key so cosmetically different URLs
// pointing at the same resource render once. Order is preserved across the
// three input slices (seeds first, then sitemap, then fallback) so the
// result is deterministic for a fixed input.
func Build(seeds, sitemapURLs, fallbackURLs []string) []string {
	registeredHost := ""
	for _, s := range seeds {
		if h := hostOf(s); h != "" {
			registeredHost = h
			break
		}
	}

	seen := make(map[string]struct{})
	var out []string

	consume := func(candidates []string) {
		for _, candidate := range candidates {
			host := hostOf(candidate)
			if host == "" {
				log.LogWarnf("dropping unparseable URL %q", candidate)
				continue
			}
			if registeredHost != "" && !sameHost(host, registeredHost) {
				log.LogWarnf("dropping off-host URL %q (expected host %s)", candidate, registeredHost)
				continue
			}

			key, err := urlkey.BuildKVKey(candidate)
			if err != nil {
				log.LogWarnf("dropping unkeyable URL %q: %v", candidate, err)
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, candidate)
		}
	}

	consume(seeds)
	consume(sitemapURLs)
	consume(fallbackURLs)

	return out
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func sameHost(a, b string) bool {
	return strings.EqualFold(a, b)
}
