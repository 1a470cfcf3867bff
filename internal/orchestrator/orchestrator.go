// Package orchestrator implements the Pipeline Orchestrator: fixed-size
// concurrent batching over a URL set, with a strict barrier between
// batches and a per-URL Render -> Analyze -> Sync sequence.
package orchestrator

import (
	"context"
	"sync"

	"github.com/lovablehtml/prerender-engine/internal/logger"
	"github.com/lovablehtml/prerender-engine/internal/model"
)

// RenderFunc drives one URL through the Render Driver.
type RenderFunc func(url string) model.RenderOutcome

// AnalyzeFunc drives one rendered page through the SEO Analyzer.
type AnalyzeFunc func(html string, statusCode int) model.SEOSignals

// SyncFunc drives one rendered, analyzed page through the Cache
// Synchronizer.
type SyncFunc func(ctx context.Context, finalURL, html string, seo model.SEOSignals, userAgent string, cacheTTLSeconds int) model.SyncResult

// Orchestrator runs the fixed-size-batch render/analyze/sync pipeline.
type Orchestrator struct {
	Concurrency   int
	SkipCacheSync bool
	UserAgent     string
	CacheTTL      int

	Render  RenderFunc
	Analyze AnalyzeFunc
	Sync    SyncFunc

	log *logger.Logger
}

// New returns an Orchestrator. Concurrency below 1 is treated as 1.
func New(concurrency int, skipCacheSync bool, userAgent string, cacheTTL int, render RenderFunc, analyze AnalyzeFunc, sync SyncFunc) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		Concurrency:   concurrency,
		SkipCacheSync: skipCacheSync,
		UserAgent:     userAgent,
		CacheTTL:      cacheTTL,
		Render:        render,
		Analyze:       analyze,
		Sync:          sync,
		log:           logger.New("PipelineOrchestrator"),
	}
}

// Run partitions urls into sequential batches of size Concurrency; within a
// batch every invocation runs concurrently, and the orchestrator waits for
// the whole batch to settle before starting the next one (strict barrier).
func (o *Orchestrator) Run(ctx context.Context, urls []string) []model.PipelineResult {
	results := make([]model.PipelineResult, 0, len(urls))

	for start := 0; start < len(urls); start += o.Concurrency {
		end := start + o.Concurrency
		if end > len(urls) {
			end = len(urls)
		}
		batch := urls[start:end]
		batchResults := make([]model.PipelineResult, len(batch))

		var wg sync.WaitGroup
		for i, u := range batch {
			wg.Add(1)
			go func(i int, u string) {
				defer wg.Done()
				batchResults[i] = o.runOne(ctx, u)
			}(i, u)
		}
		wg.Wait()

		results = append(results, batchResults...)
	}

	return results
}

// runOne runs the Render -> Analyze -> Sync sequence for a single URL. A
// failure at any stage short-circuits the remaining stages.
func (o *Orchestrator) runOne(ctx context.Context, targetURL string) model.PipelineResult {
	result := model.PipelineResult{URL: targetURL}

	outcome := o.Render(targetURL)
	if !outcome.Success {
		o.log.LogErrorf("render failed for %s: %s", targetURL, outcome.FailureReason)
		result.FailureReason = outcome.FailureReason
		return result
	}
	result.IsRendered = true

	seoSignals := o.Analyze(outcome.HTML, outcome.StatusCode)
	result.IsAnalyzed = true

	if o.SkipCacheSync {
		return result
	}

	syncResult := o.Sync(ctx, outcome.FinalURL, outcome.HTML, seoSignals, o.UserAgent, o.CacheTTL)
	result.IsCachedToKV = syncResult.KVSynced
	result.IsCachedToR2 = syncResult.R2Synced

	return result
}

// Aggregate reduces per-URL results into batch counters and failure lists.
// When skipCacheSync is true, sync outcomes are never counted as failures
// since the stage never ran.
func Aggregate(results []model.PipelineResult, skipCacheSync bool) (countRendered, countAnalyzed, countKVSynced, countR2Synced int, failedRender, failedSync []string) {
	for _, r := range results {
		if r.IsRendered {
			countRendered++
		} else {
			failedRender = append(failedRender, r.URL)
			continue
		}
		if r.IsAnalyzed {
			countAnalyzed++
		}
		if r.IsCachedToKV {
			countKVSynced++
		}
		if r.IsCachedToR2 {
			countR2Synced++
		}
		if !skipCacheSync && r.IsAnalyzed && !(r.IsCachedToKV && r.IsCachedToR2) {
			failedSync = append(failedSync, r.URL)
		}
	}
	return
}
