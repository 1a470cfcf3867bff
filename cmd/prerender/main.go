// Command prerender runs one batch job: discover URLs for a site, render
// each through a headless browser, extract SEO signals, publish the result
// to the cache, and report the outcome.
package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/lovablehtml/prerender-engine/internal/clock/system"
	"github.com/lovablehtml/prerender-engine/internal/config"
	"github.com/lovablehtml/prerender-engine/internal/discovery"
	"github.com/lovablehtml/prerender-engine/internal/logger"
	"github.com/lovablehtml/prerender-engine/internal/metrics"
	"github.com/lovablehtml/prerender-engine/internal/model"
	"github.com/lovablehtml/prerender-engine/internal/orchestrator"
	"github.com/lovablehtml/prerender-engine/internal/render"
	"github.com/lovablehtml/prerender-engine/internal/report"
	"github.com/lovablehtml/prerender-engine/internal/seo"
	"github.com/lovablehtml/prerender-engine/internal/sitemap"
	"github.com/lovablehtml/prerender-engine/internal/sync"
	"github.com/lovablehtml/prerender-engine/internal/sync/blobstore"
	"github.com/lovablehtml/prerender-engine/internal/sync/kvstore"
	"github.com/lovablehtml/prerender-engine/internal/urlset"
)

func main() {
	log := logger.New("main")

	cfg, err := config.Load()
	if err != nil {
		log.LogFatal("failed to load configuration", err)
	}

	jobID := cfg.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	log.LogInfof("starting prerender job %s (env=%s, %d seed URLs)", jobID, cfg.AppEnv, len(cfg.SeedURLs))

	ctx := context.Background()
	startedAt := time.Now().UTC()

	urls := buildURLSet(log, cfg)
	log.LogInfof("resolved %d URLs to render", len(urls))

	blobStore, kvStore, err := buildCacheProviders(ctx, cfg)
	if err != nil {
		log.LogFatal("failed to initialize cache providers", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		log.LogFatal("failed to start playwright", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-gpu",
		},
	})
	if err != nil {
		log.LogFatal("failed to launch browser", err)
	}
	defer browser.Close()

	clk := system.New()
	renderDriver := render.New(browser, cfg.UserAgent, clk)
	synchronizer := sync.New(blobStore, kvStore, clk)
	collector := metrics.New()

	orch := orchestrator.New(
		cfg.Concurrency,
		cfg.SkipCacheSync,
		cfg.UserAgent,
		cfg.CacheTTLSeconds,
		func(url string) model.RenderOutcome {
			renderStart := time.Now()
			outcome := renderDriver.Render(url)
			collector.ObserveRender(outcome.Success, time.Since(renderStart).Seconds())
			collector.ObserveReadinessReason(string(outcome.ReadinessReason))
			return outcome
		},
		seo.Analyze,
		func(ctx context.Context, finalURL, html string, signals model.SEOSignals, userAgent string, ttl int) model.SyncResult {
			result := synchronizer.Sync(ctx, finalURL, html, signals, userAgent, ttl)
			collector.ObserveSync(result.KVSynced, result.R2Synced)
			return result
		},
	)

	results := orch.Run(ctx, urls)
	countRendered, countAnalyzed, countKV, countR2, failedRender, failedSync := orchestrator.Aggregate(results, cfg.SkipCacheSync)

	batchReport := model.BatchReport{
		StartedAt:     startedAt,
		FinishedAt:    time.Now().UTC(),
		URLCount:      len(urls),
		CountRendered: countRendered,
		CountAnalyzed: countAnalyzed,
		CountKVSynced: countKV,
		CountR2Synced: countR2,
		FailedRender:  failedRender,
		FailedSync:    failedSync,
	}
	log.LogInfof("job %s finished: rendered=%d analyzed=%d kvSynced=%d r2Synced=%d failedRender=%d failedSync=%d",
		jobID, countRendered, countAnalyzed, countKV, countR2, len(failedRender), len(failedSync))

	reporter := report.New(cfg.SystemAuthSecret)
	reporter.SendWebhook(ctx, cfg.WebhookURL, jobID, batchReport)
	reporter.SendChatNotification(ctx, cfg.ChatWebhookURL, jobID, batchReport)

	collector.Push(cfg.PushgatewayURL, "prerender_"+jobID)

	if closer, ok := kvStore.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	if len(failedRender) > 0 {
		os.Exit(1)
	}
}

// buildURLSet runs sitemap discovery and, if it yields too few candidates,
// the link-discovery fallback, then merges everything with the seed list.
func buildURLSet(log *logger.Logger, cfg config.Config) []string {
	var sitemapURLs []string
	if cfg.SitemapURL != "" && !cfg.SkipSitemapParsing {
		discoverer := sitemap.New()
		entries := discoverer.Discover(cfg.SitemapURL, sitemap.Window(cfg.SitemapUpdatedWithin))
		sitemapURLs = make([]string, 0, len(entries))
		for _, e := range entries {
			sitemapURLs = append(sitemapURLs, e.Loc)
		}
		log.LogInfof("sitemap discovery found %d URLs", len(sitemapURLs))
	}

	var fallbackURLs []string
	if len(sitemapURLs) < cfg.MinSitemapURLs && len(cfg.SeedURLs) > 0 {
		linkDiscoverer := discovery.New()
		links, err := linkDiscoverer.Discover(cfg.SeedURLs[0], discovery.Options{
			MaxDepth: cfg.MaxDiscoveryDepth,
			MaxLinks: cfg.MaxDiscoveryLinks,
		})
		if err != nil {
			log.LogWarnf("link discovery fallback failed: %v", err)
		} else {
			fallbackURLs = links
			log.LogInfof("link discovery fallback found %d URLs", len(fallbackURLs))
		}
	}

	return urlset.Build(cfg.SeedURLs, sitemapURLs, fallbackURLs)
}

// buildCacheProviders wires the blob and KV providers from configuration,
// preferring the production Cloudflare/R2 stack and falling back to Redis
// for local/dev deployments without Cloudflare credentials.
func buildCacheProviders(ctx context.Context, cfg config.Config) (sync.BlobStore, sync.KVStore, error) {
	blobStore, err := blobstore.New(ctx, blobstore.Config{
		AccountID:       cfg.BlobAccountID,
		AccessKeyID:     cfg.BlobAccessKeyID,
		SecretAccessKey: cfg.BlobSecretAccessKey,
		Bucket:          cfg.BlobBucket,
	})
	if err != nil {
		return nil, nil, err
	}

	if cfg.KVAccountID != "" && cfg.KVAPIToken != "" && cfg.KVNamespaceID != "" {
		kv := kvstore.NewCloudflare(kvstore.CloudflareConfig{
			AccountID:   cfg.KVAccountID,
			NamespaceID: cfg.KVNamespaceID,
			APIToken:    cfg.KVAPIToken,
		})
		return blobStore, kv, nil
	}

	kv, err := kvstore.NewRedis(ctx, kvstore.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, err
	}
	return blobStore, kv, nil
}
