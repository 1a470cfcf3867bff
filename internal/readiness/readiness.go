// Package readiness implements the Render Readiness Controller: it decides
// the earliest safe moment to snapshot a dynamically-rendered page by
// combining an application-level ready signal, first-party network
// idleness, and DOM mutation idleness under a hard deadline.
package readiness

import (
	"net/url"
	"sync"
	"time"

	"github.com/lovablehtml/prerender-engine/internal/clock"
	"github.com/lovablehtml/prerender-engine/internal/model"
)

// Normative constants from the readiness algorithm. Not configurable: the
// spec ties every scenario to these exact values.
const (
	HardTimeout       = 15000 * time.Millisecond
	NetworkQuietMS    = 500 * time.Millisecond
	DomStableMS       = 300 * time.Millisecond
	PollInterval      = 100 * time.Millisecond
	MinWaitMS         = 500 * time.Millisecond
	DomExtendedWaitMS = 3000 * time.Millisecond
)

// ResourceType tags a page request the way the browser protocol classifies
// it.
type ResourceType string

const (
	ResourceDocument   ResourceType = "document"
	ResourceScript     ResourceType = "script"
	ResourceXHR        ResourceType = "xhr"
	ResourceFetch      ResourceType = "fetch"
	ResourceStylesheet ResourceType = "stylesheet"
	ResourceImage      ResourceType = "image"
	ResourceFont       ResourceType = "font"
)

// trackedResourceTypes is the set of resource types that count toward
// network idleness when they are otherwise first-party and not ignored.
var trackedResourceTypes = map[ResourceType]struct{}{
	ResourceDocument:   {},
	ResourceScript:     {},
	ResourceXHR:        {},
	ResourceFetch:      {},
	ResourceStylesheet: {},
	ResourceImage:      {},
	ResourceFont:       {},
}

// RequestInfo describes one request lifecycle event.
type RequestInfo struct {
	URL          string
	ResourceType ResourceType
}

// Page is what the controller needs from a live browser tab: the ability to
// subscribe to request lifecycle events and to evaluate JavaScript inside
// the page. The Render Driver's adapter over the real browser client
// satisfies this.
type Page interface {
	OnRequestStarted(handler func(RequestInfo))
	OnRequestFinished(handler func(RequestInfo))
	OnRequestFailed(handler func(RequestInfo))
	Evaluate(script string) (interface{}, error)
}

// state is the readiness bookkeeping for one page. It is mutated from
// whichever goroutine delivers request-lifecycle callbacks and read from the
// polling tick; both must go through the mutex, so there is a single logical
// owner despite two call sites.
type state struct {
	mu sync.Mutex

	appSignaled      bool
	pending          map[string]int
	networkIdleSince *time.Time
	domStableSince   *time.Time
	startedAt        time.Time
}

func newState(startedAt time.Time) *state {
	return &state{pending: make(map[string]int), startedAt: startedAt}
}

func (s *state) requestStarted(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key]++
}

func (s *state) requestSettled(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[key] <= 1 {
		delete(s.pending, key)
		return
	}
	s.pending[key]--
}

func (s *state) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Controller runs the network/DOM-idle polling loop that decides when a
// rendered page is ready to capture.
type Controller struct {
	Clock clock.Clock
	// Sleep is injectable so tests can drive the loop without real
	// wall-clock waits.
	Sleep func(time.Duration)
	// IgnoredHosts extends the canonical ignored-third-party-host set.
	IgnoredHosts []string
}

// New returns a Controller wired to the real clock and time.Sleep.
func New(clk clock.Clock) *Controller {
	return &Controller{Clock: clk, Sleep: time.Sleep}
}

// Run subscribes to page's request lifecycle, polls at PollInterval, and
// returns the first terminal reason to hold. It never returns twice for the
// same subscription.
func (c *Controller) Run(page Page, targetHost string) model.ReadinessReason {
	st := newState(c.Clock.Now())

	track := func(evt RequestInfo, started bool) {
		if !c.isTracked(evt, targetHost) {
			return
		}
		if started {
			st.requestStarted(evt.URL)
		} else {
			st.requestSettled(evt.URL)
		}
	}
	page.OnRequestStarted(func(evt RequestInfo) { track(evt, true) })
	page.OnRequestFinished(func(evt RequestInfo) { track(evt, false) })
	page.OnRequestFailed(func(evt RequestInfo) { track(evt, false) })

	for {
		now := c.Clock.Now()
		elapsed := now.Sub(st.startedAt)

		if elapsed >= HardTimeout {
			return model.HardTimeout
		}

		if evaluateAppSignal(page) {
			return model.AppSignaled
		}

		if st.pendingCount() == 0 {
			st.mu.Lock()
			if st.networkIdleSince == nil {
				t := now
				st.networkIdleSince = &t
			}
			st.mu.Unlock()
		} else {
			st.mu.Lock()
			st.networkIdleSince = nil
			st.mu.Unlock()
		}

		lastDomChange := evaluateLastDomChange(page, now)
		domIdleTime := now.Sub(lastDomChange)
		st.mu.Lock()
		if domIdleTime >= DomStableMS {
			if st.domStableSince == nil {
				t := now
				st.domStableSince = &t
			}
		} else {
			st.domStableSince = nil
		}
		var networkIdleDuration time.Duration
		if st.networkIdleSince != nil {
			networkIdleDuration = now.Sub(*st.networkIdleSince)
		}
		domStable := st.domStableSince != nil
		st.mu.Unlock()

		networkStable := networkIdleDuration >= NetworkQuietMS

		if networkStable && domStable {
			return model.NetworkAndDomStable
		}
		if elapsed >= MinWaitMS && networkStable && elapsed >= MinWaitMS+DomExtendedWaitMS {
			return model.NetworkStableDomTimeout
		}

		c.Sleep(PollInterval)
	}
}

// isTracked decides whether a request counts toward network idleness: a
// tracked resource type on a non-ignored host equal to the target host
// (first-party only).
func (c *Controller) isTracked(evt RequestInfo, targetHost string) bool {
	if _, ok := trackedResourceTypes[evt.ResourceType]; !ok {
		return false
	}
	host := hostOf(evt.URL)
	if host == "" {
		return false
	}
	if isIgnoredHost(host, c.IgnoredHosts) {
		return false
	}
	return host == targetHost
}

func evaluateAppSignal(page Page) bool {
	result, err := page.Evaluate("window.prerenderReady === true || window.htmlSnapshot === true")
	if err != nil {
		return false
	}
	signaled, _ := result.(bool)
	return signaled
}

// evaluateLastDomChange reads __lastDomChange (epoch milliseconds set by the
// pre-navigation instrumentation). A read failure is treated as "now" so the
// DOM appears active rather than falsely idle.
func evaluateLastDomChange(page Page, now time.Time) time.Time {
	result, err := page.Evaluate("window.__lastDomChange")
	if err != nil {
		return now
	}
	millis, ok := toFloat64(result)
	if !ok {
		return now
	}
	return time.UnixMilli(int64(millis))
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
