package readiness

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lovablehtml/prerender-engine/internal/model"
	"github.com/stretchr/testify/assert"
)

// fakeClock is advanced only by fakeClock.advance, letting tests simulate a
// full readiness run without any real wall-clock delay.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// fakePage is a minimal Page whose single synthetic first-party request
// starts immediately on subscription and clears (or never clears) at a
// configured instant, and whose __lastDomChange value is driven by a
// caller-supplied function of the current simulated time.
type fakePage struct {
	mu sync.Mutex

	requestURL      string
	requestKind     ResourceType
	pendingClearAt  *time.Time
	clearedFired    bool
	appSignalAt     *time.Time
	domChangeFn     func(now time.Time) time.Time
	currentNow      time.Time

	onStarted, onFinished, onFailed func(RequestInfo)
}

func (p *fakePage) OnRequestStarted(h func(RequestInfo)) {
	p.onStarted = h
	if p.requestURL != "" {
		h(RequestInfo{URL: p.requestURL, ResourceType: p.requestKind})
	}
}

func (p *fakePage) OnRequestFinished(h func(RequestInfo)) { p.onFinished = h }
func (p *fakePage) OnRequestFailed(h func(RequestInfo))   { p.onFailed = h }

func (p *fakePage) tick(now time.Time) {
	p.mu.Lock()
	p.currentNow = now
	fire := !p.clearedFired && p.pendingClearAt != nil && !now.Before(*p.pendingClearAt)
	if fire {
		p.clearedFired = true
	}
	p.mu.Unlock()
	if fire && p.onFinished != nil {
		p.onFinished(RequestInfo{URL: p.requestURL, ResourceType: p.requestKind})
	}
}

func (p *fakePage) Evaluate(script string) (interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case strings.Contains(script, "prerenderReady"):
		if p.appSignalAt != nil && !p.currentNow.Before(*p.appSignalAt) {
			return true, nil
		}
		return false, nil
	case strings.Contains(script, "__lastDomChange"):
		return float64(p.domChangeFn(p.currentNow).UnixMilli()), nil
	}
	return nil, nil
}

func newHarness(start time.Time, page *fakePage) (*Controller, *fakeClock) {
	page.currentNow = start
	fc := &fakeClock{now: start}
	ctrl := &Controller{
		Clock: fc,
		Sleep: func(d time.Duration) {
			now := fc.advance(d)
			page.tick(now)
		},
	}
	return ctrl, fc
}

func TestReadinessAppSignaled(t *testing.T) {
	t.Parallel()
	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	appAt := start.Add(700 * time.Millisecond)
	page := &fakePage{
		requestURL:  "https://example.com/api",
		requestKind: ResourceXHR,
		appSignalAt: &appAt,
		domChangeFn: func(now time.Time) time.Time { return now },
	}
	ctrl, _ := newHarness(start, page)

	reason := ctrl.Run(page, "example.com")
	assert.Equal(t, model.AppSignaled, reason)
}

func TestReadinessNetworkAndDomStable(t *testing.T) {
	t.Parallel()
	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	clearAt := start.Add(1000 * time.Millisecond)
	freeze := start.Add(1100 * time.Millisecond)
	page := &fakePage{
		requestURL:     "https://example.com/api",
		requestKind:    ResourceXHR,
		pendingClearAt: &clearAt,
		domChangeFn: func(now time.Time) time.Time {
			if now.Before(freeze) {
				return now
			}
			return freeze
		},
	}
	ctrl, _ := newHarness(start, page)

	reason := ctrl.Run(page, "example.com")
	assert.Equal(t, model.NetworkAndDomStable, reason)
}

func TestReadinessNetworkStableDomTimeout(t *testing.T) {
	t.Parallel()
	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	clearAt := start.Add(600 * time.Millisecond)
	page := &fakePage{
		requestURL:     "https://example.com/api",
		requestKind:    ResourceXHR,
		pendingClearAt: &clearAt,
		// DOM keeps "just changing" forever: never idle.
		domChangeFn: func(now time.Time) time.Time { return now },
	}
	ctrl, _ := newHarness(start, page)

	reason := ctrl.Run(page, "example.com")
	assert.Equal(t, model.NetworkStableDomTimeout, reason)
}

func TestReadinessHardTimeout(t *testing.T) {
	t.Parallel()
	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	page := &fakePage{
		requestURL:  "https://example.com/api",
		requestKind: ResourceXHR,
		// pendingClearAt left nil: the request never settles.
		domChangeFn: func(now time.Time) time.Time { return now },
	}
	ctrl, _ := newHarness(start, page)

	reason := ctrl.Run(page, "example.com")
	assert.Equal(t, model.HardTimeout, reason)
}

// Requests to ignored or third-party hosts never affect
// pendingFirstPartyRequests, so a page with only such requests in flight can
// still settle on network+DOM stability.
func TestReadinessIgnoresThirdPartyAndIgnoredHosts(t *testing.T) {
	t.Parallel()
	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	page := &fakePage{
		requestURL:  "https://google-analytics.com/collect",
		requestKind: ResourceXHR,
		domChangeFn: func(now time.Time) time.Time { return start },
	}
	ctrl, _ := newHarness(start, page)

	reason := ctrl.Run(page, "example.com")
	assert.Equal(t, model.NetworkAndDomStable, reason)
}

func TestIsIgnoredHostExactAndSuffix(t *testing.T) {
	t.Parallel()
	assert.True(t, isIgnoredHost("google-analytics.com", nil))
	assert.True(t, isIgnoredHost("www.google-analytics.com", nil))
	assert.False(t, isIgnoredHost("example.com", nil))
	assert.True(t, isIgnoredHost("cdn.internal.example", []string{"internal.example"}))
}
