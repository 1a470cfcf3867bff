// Package urlkey implements the Hasher & URL Canonicalizer: SHA-256 content
// digests and the two canonical cache keys derived from a render target URL.
package urlkey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
)

// CacheVersion is the fixed version tag folded into both cache keys.
const CacheVersion = "v1"

// Blocklist holds the internal query parameters stripped before a key is
// derived. Injecting any of these into a target URL must never change its
// canonical key.
var Blocklist = map[string]struct{}{
	"to_html":              {},
	"cache_invalidate":     {},
	"x-lovablehtml-render": {},
}

// Hasher computes SHA-256 hex digests. Grounded on the same small,
// single-method capability interface the rest of the pipeline uses for
// pluggable, testable dependencies.
type Hasher struct{}

// NewHasher returns a SHA-256 hasher.
func NewHasher() *Hasher { return &Hasher{} }

// Hash returns the lowercase hex SHA-256 digest of data.
func (Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// SHA256Hex hashes the UTF-8 encoding of html and returns the lowercase hex
// digest.
func SHA256Hex(html string) string {
	sum := sha256.Sum256([]byte(html))
	return hex.EncodeToString(sum[:])
}

// BuildKVKey derives the index key for targetURL: "to_html:<version>:<host>:<canonicalPath>".
// It fails closed on an unparseable URL so the URL set builder drops it
// before it reaches the orchestrator, rather than caching under a malformed
// key.
func BuildKVKey(targetURL string) (string, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	canonicalPath := canonicalPathAndQuery(u)
	return fmt.Sprintf("to_html:%s:%s:%s", CacheVersion, u.Host, canonicalPath), nil
}

func canonicalPathAndQuery(u *url.URL) string {
	query := sortedQuery(u.RawQuery)
	if query == "" {
		return u.Path
	}
	return u.Path + "?" + query
}

// sortedQuery drops blocklisted parameters and returns the remaining
// name/value pairs sorted first by name then by value, joined on the raw
// decoded values without re-applying URL-encoding.
func sortedQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ""
	}
	type pair struct{ name, value string }
	var pairs []pair
	for name, vals := range values {
		if _, blocked := Blocklist[name]; blocked {
			continue
		}
		for _, v := range vals {
			pairs = append(pairs, pair{name, v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].name != pairs[j].name {
			return pairs[i].name < pairs[j].name
		}
		return pairs[i].value < pairs[j].value
	})
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.name+"="+p.value)
	}
	return strings.Join(parts, "&")
}

var (
	unsafeHostChar = regexp.MustCompile(`[^a-z0-9.-]`)
	unsafePathChar = regexp.MustCompile(`[^A-Za-z0-9._/-]`)
	repeatedSlash  = regexp.MustCompile(`/+`)
	timestampStrip = strings.NewReplacer(":", "", ".", "")
)

// BuildObjectKey derives the blob key for targetURL and the freshly-computed
// HTML digest, timestamped so that two publishes of the same URL never
// collide.
func BuildObjectKey(targetURL, digest string, now time.Time) (string, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	safeHost := unsafeHostChar.ReplaceAllString(strings.ToLower(u.Host), "-")
	safePath := safePathSegment(u.Path)
	if safePath == "" {
		safePath = "root"
	}
	shortDigest := digest
	if len(shortDigest) > 16 {
		shortDigest = shortDigest[:16]
	}
	ts := timestampStrip.Replace(now.UTC().Format(time.RFC3339Nano))
	return fmt.Sprintf("%s/%s/%s_%s_%s.html", CacheVersion, safeHost, safePath, shortDigest, ts), nil
}

func safePathSegment(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	replaced := unsafePathChar.ReplaceAllString(trimmed, "-")
	collapsed := repeatedSlash.ReplaceAllString(replaced, "/")
	return strings.ReplaceAll(collapsed, "/", "_")
}
