// Package render implements the Render Driver: it owns the per-URL browser
// tab lifecycle, installs the readiness instrumentation before navigation,
// drives the Readiness Controller, and captures the rendered HTML.
package render

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/lovablehtml/prerender-engine/internal/clock"
	"github.com/lovablehtml/prerender-engine/internal/logger"
	"github.com/lovablehtml/prerender-engine/internal/model"
	"github.com/lovablehtml/prerender-engine/internal/readiness"
)

// NavigationTimeout bounds page navigation itself, independent of the
// readiness poll loop that runs after the page has loaded.
const NavigationTimeout = 2 * readiness.HardTimeout

// Driver drives one render at a time per call; the browser handle is shared
// and owned by the orchestrator, never opened or closed here.
type Driver struct {
	log       *logger.Logger
	browser   playwright.Browser
	userAgent string
	clock     clock.Clock
}

// New returns a Driver bound to a shared, already-launched browser.
func New(browser playwright.Browser, userAgent string, clk clock.Clock) *Driver {
	return &Driver{
		log:       logger.New("RenderDriver"),
		browser:   browser,
		userAgent: userAgent,
		clock:     clk,
	}
}

// Render opens a fresh tab, installs the pre-navigation instrumentation,
// navigates, runs the Readiness Controller, and captures the outcome. The
// tab is closed on every exit path.
func (d *Driver) Render(targetURL string) model.RenderOutcome {
	targetHost, err := hostOf(targetURL)
	if err != nil {
		return model.RenderOutcome{FailureReason: fmt.Sprintf("invalid target url: %v", err)}
	}

	ctx, err := d.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(d.userAgent),
		ExtraHttpHeaders: map[string]string{
			"Accept-Language":      "en-US,en;q=0.9",
			"X-Lovablehtml-Render": "1",
		},
	})
	if err != nil {
		return model.RenderOutcome{FailureReason: fmt.Sprintf("browser context creation failed: %v", err)}
	}
	defer ctx.Close()

	page, err := ctx.NewPage()
	if err != nil {
		return model.RenderOutcome{FailureReason: fmt.Sprintf("page creation failed: %v", err)}
	}
	defer page.Close()

	if err := page.AddInitScript(playwright.Script{Content: playwright.String(readiness.InstrumentationScript)}); err != nil {
		return model.RenderOutcome{FailureReason: fmt.Sprintf("failed to install instrumentation: %v", err)}
	}

	adapter := newPageAdapter(page)

	resp, err := page.Goto(targetURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(NavigationTimeout.Milliseconds())),
	})
	if err != nil {
		return model.RenderOutcome{FailureReason: fmt.Sprintf("Failed to navigate to %s", targetURL)}
	}
	if resp == nil {
		return model.RenderOutcome{FailureReason: fmt.Sprintf("Failed to navigate to %s", targetURL)}
	}

	controller := readiness.New(d.clock)
	reason := controller.Run(adapter, targetHost)

	html, err := page.Content()
	if err != nil {
		return model.RenderOutcome{FailureReason: fmt.Sprintf("failed to capture html: %v", err)}
	}

	statusCode := resp.Status()
	xRobotsTag := ""
	if headers, herr := resp.AllHeaders(); herr == nil {
		for k, v := range headers {
			if strings.EqualFold(k, "x-robots-tag") {
				xRobotsTag = v
				break
			}
		}
	}

	return model.RenderOutcome{
		Success:         true,
		HTML:            html,
		StatusCode:      statusCode,
		FinalURL:        page.URL(),
		XRobotsTag:      xRobotsTag,
		ReadinessReason: reason,
	}
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("url has no host: %s", rawURL)
	}
	return u.Hostname(), nil
}

// pageAdapter satisfies readiness.Page over a real playwright.Page.
type pageAdapter struct {
	page playwright.Page
}

func newPageAdapter(page playwright.Page) *pageAdapter {
	return &pageAdapter{page: page}
}

func (a *pageAdapter) OnRequestStarted(handler func(readiness.RequestInfo)) {
	a.page.On("request", func(req playwright.Request) {
		handler(readiness.RequestInfo{URL: req.URL(), ResourceType: readiness.ResourceType(req.ResourceType())})
	})
}

func (a *pageAdapter) OnRequestFinished(handler func(readiness.RequestInfo)) {
	a.page.On("requestfinished", func(req playwright.Request) {
		handler(readiness.RequestInfo{URL: req.URL(), ResourceType: readiness.ResourceType(req.ResourceType())})
	})
}

func (a *pageAdapter) OnRequestFailed(handler func(readiness.RequestInfo)) {
	a.page.On("requestfailed", func(req playwright.Request) {
		handler(readiness.RequestInfo{URL: req.URL(), ResourceType: readiness.ResourceType(req.ResourceType())})
	})
}

func (a *pageAdapter) Evaluate(script string) (interface{}, error) {
	return a.page.Evaluate(script)
}
