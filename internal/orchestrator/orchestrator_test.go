package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lovablehtml/prerender-engine/internal/model"
)

func renderSuccess(url string) model.RenderOutcome {
	return model.RenderOutcome{Success: true, HTML: "<html></html>", StatusCode: 200, FinalURL: url}
}

func renderFail(url string) model.RenderOutcome {
	return model.RenderOutcome{Success: false, FailureReason: "Failed to navigate to " + url}
}

func analyzeNoop(html string, statusCode int) model.SEOSignals {
	return model.SEOSignals{WordCount: 100}
}

func syncOK(ctx context.Context, finalURL, html string, seo model.SEOSignals, userAgent string, ttl int) model.SyncResult {
	return model.SyncResult{KVSynced: true, R2Synced: true}
}

func syncFail(ctx context.Context, finalURL, html string, seo model.SEOSignals, userAgent string, ttl int) model.SyncResult {
	return model.SyncResult{}
}

func TestRunSuccessPath(t *testing.T) {
	t.Parallel()
	o := New(2, false, "test-agent", 3600, renderSuccess, analyzeNoop, syncOK)

	results := o.Run(context.Background(), []string{"https://a.example/", "https://b.example/"})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.IsRendered)
		assert.True(t, r.IsAnalyzed)
		assert.True(t, r.IsCachedToKV)
		assert.True(t, r.IsCachedToR2)
		assert.Empty(t, r.FailureReason)
	}
}

func TestRunRenderFailureSkipsRemainingStages(t *testing.T) {
	t.Parallel()
	o := New(1, false, "test-agent", 3600, renderFail, analyzeNoop, syncOK)

	results := o.Run(context.Background(), []string{"https://a.example/"})

	require.Len(t, results, 1)
	assert.False(t, results[0].IsRendered)
	assert.False(t, results[0].IsAnalyzed)
	assert.False(t, results[0].IsCachedToKV)
	assert.False(t, results[0].IsCachedToR2)
	assert.NotEmpty(t, results[0].FailureReason)
}

func TestRunSkipCacheSyncNeverInvokesSync(t *testing.T) {
	t.Parallel()
	var calls int32
	sync := func(ctx context.Context, finalURL, html string, seo model.SEOSignals, userAgent string, ttl int) model.SyncResult {
		atomic.AddInt32(&calls, 1)
		return model.SyncResult{KVSynced: true, R2Synced: true}
	}
	o := New(1, true, "test-agent", 3600, renderSuccess, analyzeNoop, sync)

	results := o.Run(context.Background(), []string{"https://a.example/"})

	require.Len(t, results, 1)
	assert.True(t, results[0].IsRendered)
	assert.True(t, results[0].IsAnalyzed)
	assert.False(t, results[0].IsCachedToKV)
	assert.False(t, results[0].IsCachedToR2)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

// TestRunEnforcesBatchBarrier verifies that no URL from batch N+1 starts
// rendering before every URL in batch N has finished, for a concurrency of 2
// over 4 URLs.
func TestRunEnforcesBatchBarrier(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var order []string

	render := func(url string) model.RenderOutcome {
		mu.Lock()
		order = append(order, "start:"+url)
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		order = append(order, "end:"+url)
		mu.Unlock()
		return renderSuccess(url)
	}

	o := New(2, true, "test-agent", 3600, render, analyzeNoop, syncOK)
	urls := []string{"https://a.example/", "https://b.example/", "https://c.example/", "https://d.example/"}

	results := o.Run(context.Background(), urls)
	require.Len(t, results, 4)

	// Both batch-1 URLs must end before either batch-2 URL starts.
	endIndex := map[string]int{}
	startIndex := map[string]int{}
	for i, e := range order {
		if len(e) > 4 && e[:4] == "end:" {
			endIndex[e[4:]] = i
		}
		if len(e) > 6 && e[:6] == "start:" {
			startIndex[e[6:]] = i
		}
	}
	batchOneEnd := max(endIndex["https://a.example/"], endIndex["https://b.example/"])
	batchTwoStart := min(startIndex["https://c.example/"], startIndex["https://d.example/"])
	assert.Less(t, batchOneEnd, batchTwoStart)
}

func TestAggregateCountsAndFailureLists(t *testing.T) {
	t.Parallel()
	results := []model.PipelineResult{
		{URL: "https://a.example/", IsRendered: true, IsAnalyzed: true, IsCachedToKV: true, IsCachedToR2: true},
		{URL: "https://b.example/", IsRendered: false, FailureReason: "Failed to navigate to https://b.example/"},
		{URL: "https://c.example/", IsRendered: true, IsAnalyzed: true, IsCachedToKV: false, IsCachedToR2: true},
	}

	countRendered, countAnalyzed, countKV, countR2, failedRender, failedSync := Aggregate(results, false)

	assert.Equal(t, 2, countRendered)
	assert.Equal(t, 2, countAnalyzed)
	assert.Equal(t, 1, countKV)
	assert.Equal(t, 2, countR2)
	assert.Equal(t, []string{"https://b.example/"}, failedRender)
	assert.Equal(t, []string{"https://c.example/"}, failedSync)
}

func TestAggregateSkipCacheSyncNeverReportsSyncFailures(t *testing.T) {
	t.Parallel()
	results := []model.PipelineResult{
		{URL: "https://a.example/", IsRendered: true, IsAnalyzed: true},
	}

	_, _, _, _, _, failedSync := Aggregate(results, true)

	assert.Empty(t, failedSync)
}
