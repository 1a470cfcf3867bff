// Package sync implements the Cache Synchronizer: it publishes a rendered
// page's HTML to a blob store, then its index record to a KV store, and
// garbage-collects the blob the previous index record pointed at.
package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lovablehtml/prerender-engine/internal/clock"
	"github.com/lovablehtml/prerender-engine/internal/logger"
	"github.com/lovablehtml/prerender-engine/internal/model"
	"github.com/lovablehtml/prerender-engine/internal/urlkey"
)

// BlobStore is the small capability interface the synchronizer needs from
// the object store. Implementations translate provider-specific errors at
// the boundary; the synchronizer never sees them.
type BlobStore interface {
	Put(ctx context.Context, key string, body []byte, contentType, cacheControl string, metadata map[string]string) error
	Delete(ctx context.Context, key string) error
}

// KVStore is the small capability interface the synchronizer needs from the
// key-value index. Get reports found=false, err=nil for a provider "not
// found" response (a 404 in the Cloudflare KV contract); any other failure
// is returned as err.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Put(ctx context.Context, key, value string, ttlSeconds int) error
}

// Synchronizer runs the ordered publish algorithm.
type Synchronizer struct {
	Blob  BlobStore
	KV    KVStore
	Clock clock.Clock
	log   *logger.Logger
}

// New returns a Synchronizer over the given providers.
func New(blob BlobStore, kv KVStore, clk clock.Clock) *Synchronizer {
	return &Synchronizer{Blob: blob, KV: kv, Clock: clk, log: logger.New("CacheSynchronizer")}
}

// Sync publishes html and its derived SEO signals for finalURL, returning
// which of the two stores were successfully written. Key derivation uses
// finalURL rather than the originally requested target URL, so redirects
// resolve to one canonical cache entry.
func (s *Synchronizer) Sync(ctx context.Context, finalURL, html string, seo model.SEOSignals, userAgent string, cacheTTLSeconds int) model.SyncResult {
	now := s.Clock.Now()

	objectKey, err := urlkey.BuildObjectKey(finalURL, urlkey.SHA256Hex(html), now)
	if err != nil {
		s.log.LogErrorf("sync: parse finalUrl failed: %v", err)
		return model.SyncResult{}
	}

	digest := urlkey.SHA256Hex(html)
	body := []byte(html)
	record := model.IndexRecord{
		URL:           finalURL,
		ObjectKey:     objectKey,
		Digest:        digest,
		CreatedAt:     now.Format("2006-01-02T15:04:05Z07:00"),
		ContentType:   "text/html; charset=utf-8",
		ContentLength: len(body),
		CacheVersion:  urlkey.CacheVersion,
		UserAgent:     userAgent,
	}

	cacheControl := fmt.Sprintf("public, max-age=%d, s-maxage=%d", cacheTTLSeconds, cacheTTLSeconds)
	metadata := blobMetadata(record, seo)

	if err := s.Blob.Put(ctx, objectKey, body, record.ContentType, cacheControl, metadata); err != nil {
		s.log.LogErrorf("sync: blob put failed for %s: %v", objectKey, err)
		return model.SyncResult{}
	}

	kvKey, err := urlkey.BuildKVKey(finalURL)
	if err != nil {
		// finalUrl already parsed successfully to reach this point via
		// BuildObjectKey; this branch is unreachable in practice but kept
		// fail-closed.
		s.log.LogErrorf("sync: build kv key failed: %v", err)
		return model.SyncResult{R2Synced: true}
	}

	s.invalidateStaleBlob(ctx, kvKey, objectKey)

	recordJSON, err := json.Marshal(record)
	if err != nil {
		s.log.LogErrorf("sync: marshal index record failed: %v", err)
		return model.SyncResult{R2Synced: true}
	}

	if err := s.KV.Put(ctx, kvKey, string(recordJSON), cacheTTLSeconds); err != nil {
		s.log.LogErrorf("sync: kv put failed for %s: %v", kvKey, err)
		return model.SyncResult{R2Synced: true}
	}

	return model.SyncResult{KVSynced: true, R2Synced: true}
}

// invalidateStaleBlob is best-effort: every failure here is logged and
// swallowed, never propagated to the caller.
func (s *Synchronizer) invalidateStaleBlob(ctx context.Context, kvKey, newObjectKey string) {
	value, found, err := s.KV.Get(ctx, kvKey)
	if err != nil {
		s.log.LogWarnf("sync: kv read for invalidation failed: %v", err)
		return
	}
	if !found {
		return
	}

	var prior model.IndexRecord
	if err := json.Unmarshal([]byte(value), &prior); err != nil {
		s.log.LogWarnf("sync: prior index record unparseable, skipping invalidation: %v", err)
		return
	}

	if prior.ObjectKey == "" || prior.ObjectKey == newObjectKey {
		return
	}

	if err := s.Blob.Delete(ctx, prior.ObjectKey); err != nil {
		s.log.LogWarnf("sync: failed to delete stale blob %s: %v", prior.ObjectKey, err)
	}
}

func blobMetadata(record model.IndexRecord, seo model.SEOSignals) map[string]string {
	meta := map[string]string{
		"url":          record.URL,
		"digest":       record.Digest,
		"createdAt":    record.CreatedAt,
		"cacheVersion": record.CacheVersion,
		"userAgent":    record.UserAgent,
		"accept":       record.Accept,
	}
	for k, v := range seo.AsMetadata() {
		meta[k] = v
	}
	return meta
}
