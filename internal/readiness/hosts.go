package readiness

import "strings"

// CanonicalIgnoredHosts lists analytics, font, ad, and error-reporting
// domains whose requests never count toward network idleness.
var CanonicalIgnoredHosts = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"fonts.googleapis.com",
	"fonts.gstatic.com",
	"analytics.google.com",
	"facebook.com",
	"connect.facebook.net",
	"doubleclick.net",
	"googlesyndication.com",
	"hotjar.com",
	"hotjar.io",
	"clarity.ms",
	"segment.io",
	"segment.com",
	"mixpanel.com",
	"amplitude.com",
	"posthog.com",
	"intercom.io",
	"crisp.chat",
	"sentry.io",
}

// isIgnoredHost reports whether host matches an entry in the canonical set
// or an operator-supplied extra set, either exactly or as a sub-domain.
func isIgnoredHost(host string, extra []string) bool {
	host = strings.ToLower(host)
	if matchesAny(host, CanonicalIgnoredHosts) {
		return true
	}
	return matchesAny(host, extra)
}

func matchesAny(host string, set []string) bool {
	for _, entry := range set {
		entry = strings.ToLower(entry)
		if host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}
