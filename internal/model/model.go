// Package model holds the data types shared across the prerender pipeline.
package model

import (
	"strconv"
	"time"
)

// ReadinessReason is the terminal classification the Readiness Controller
// assigns to a render.
type ReadinessReason string

const (
	AppSignaled             ReadinessReason = "AppSignaled"
	NetworkAndDomStable     ReadinessReason = "NetworkAndDomStable"
	NetworkStableDomTimeout ReadinessReason = "NetworkStableDomTimeout"
	HardTimeout             ReadinessReason = "HardTimeout"
)

// RenderTarget is a single absolute URL chosen for rendering. Immutable once
// enqueued.
type RenderTarget struct {
	URL string
}

// RenderOutcome is the result of driving one page through the browser.
type RenderOutcome struct {
	Success bool

	HTML            string
	StatusCode      int
	FinalURL        string
	XRobotsTag      string
	ReadinessReason ReadinessReason

	FailureReason string
}

// SEOSignals are the mechanically-derived signals the SEO Analyzer produces
// from a rendered page. They are flattened into blob metadata by the Cache
// Synchronizer.
type SEOSignals struct {
	Title              string
	MetaDescription    string
	H1s                []string
	Canonical          string
	OGTitle            string
	OGDescription      string
	OGImage            string
	OGSiteName         string
	TwitterTitle       string
	TwitterDescription string
	TwitterImage       string
	Viewport           string
	IsSoft404          bool
	WordCount          int
}

// AsMetadata flattens the signals into the flat string map the blob store
// expects. Missing fields become empty strings; booleans and numbers are
// stringified.
func (s SEOSignals) AsMetadata() map[string]string {
	h1 := ""
	if len(s.H1s) > 0 {
		h1 = s.H1s[0]
	}
	boolStr := "false"
	if s.IsSoft404 {
		boolStr = "true"
	}
	return map[string]string{
		"seoTitle":              s.Title,
		"seoMetaDescription":    s.MetaDescription,
		"seoH1":                 h1,
		"seoCanonical":          s.Canonical,
		"seoOgTitle":            s.OGTitle,
		"seoOgDescription":      s.OGDescription,
		"seoOgImage":            s.OGImage,
		"seoOgSiteName":         s.OGSiteName,
		"seoTwitterTitle":       s.TwitterTitle,
		"seoTwitterDescription": s.TwitterDescription,
		"seoTwitterImage":       s.TwitterImage,
		"seoViewport":           s.Viewport,
		"seoIsSoft404":          boolStr,
		"seoWordCount":          strconv.Itoa(s.WordCount),
	}
}

// IndexRecord is the KV value describing the current blob for a canonical
// URL.
type IndexRecord struct {
	URL           string `json:"url"`
	ObjectKey     string `json:"objectKey"`
	Digest        string `json:"digest"`
	CreatedAt     string `json:"createdAt"`
	ContentType   string `json:"contentType"`
	ContentLength int    `json:"contentLength"`
	CacheVersion  string `json:"cacheVersion"`
	UserAgent     string `json:"userAgent"`
	Accept        string `json:"accept,omitempty"`
}

// SyncResult is the outcome of the Cache Synchronizer's ordered publish.
type SyncResult struct {
	KVSynced bool
	R2Synced bool
}

// PipelineResult is the per-URL outcome the orchestrator reports.
type PipelineResult struct {
	URL           string `json:"url"`
	IsRendered    bool   `json:"isRendered"`
	IsAnalyzed    bool   `json:"isAnalyzed"`
	IsCachedToR2  bool   `json:"isCachedToR2"`
	IsCachedToKV  bool   `json:"isCachedToKV"`
	FailureReason string `json:"failureReason,omitempty"`
}

// BatchReport is the aggregate JSON body posted to the reporting webhook at
// the end of a run.
type BatchReport struct {
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
	URLCount      int       `json:"urlCount"`
	CountRendered int       `json:"countRendered"`
	CountAnalyzed int       `json:"countAnalyzed"`
	CountKVSynced int       `json:"countKvSynced"`
	CountR2Synced int       `json:"countR2Synced"`
	FailedRender  []string  `json:"failedRender"`
	FailedSync    []string  `json:"failedSync"`
}

// SitemapEntry is one <url> element decoded from a sitemap document.
type SitemapEntry struct {
	Loc     string
	LastMod *time.Time
}
