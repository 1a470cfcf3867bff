// Package report sends the finished batch's report to a webhook and,
// optionally, a chat-compatible notification endpoint. Both deliveries are
// best-effort: a failure is logged and never retried or propagated.
package report

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lovablehtml/prerender-engine/internal/logger"
	"github.com/lovablehtml/prerender-engine/internal/model"
)

// Reporter delivers a finished BatchReport to external endpoints.
type Reporter struct {
	client           *http.Client
	systemAuthSecret string
	log              *logger.Logger
}

// New returns a Reporter. systemAuthSecret may be empty, in which case
// webhook deliveries carry no HMAC headers.
func New(systemAuthSecret string) *Reporter {
	return &Reporter{
		client:           &http.Client{Timeout: 10 * time.Second},
		systemAuthSecret: systemAuthSecret,
		log:              logger.New("Reporter"),
	}
}

// SendWebhook POSTs the report as JSON to webhookURL, signing the request
// with HMAC-SHA256 over "timestamp+body" when a system auth secret is
// configured.
func (r *Reporter) SendWebhook(ctx context.Context, webhookURL string, jobID string, rep model.BatchReport) {
	if webhookURL == "" {
		return
	}

	payload, err := json.Marshal(rep)
	if err != nil {
		r.log.LogErrorf("failed to marshal batch report for job %s: %v", jobID, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		r.log.LogErrorf("failed to build webhook request for job %s: %v", jobID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Prerender-Job-ID", jobID)

	if r.systemAuthSecret != "" {
		timestamp := strconv.FormatInt(time.Now().Unix(), 10)
		req.Header.Set("X-Prerender-Timestamp", timestamp)
		req.Header.Set("X-Prerender-Signature", r.generateHMACSignature(timestamp, payload))
	} else {
		r.log.LogWarnf("system auth secret not configured, webhook %s may fail authentication", webhookURL)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.LogWarnf("failed to send webhook for job %s to %s: %v", jobID, webhookURL, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.log.LogWarnf("webhook returned status %d for job %s to %s", resp.StatusCode, jobID, webhookURL)
		return
	}
	r.log.LogInfof("sent webhook for job %s to %s (status %d)", jobID, webhookURL, resp.StatusCode)
}

// SendChatNotification POSTs a short human-readable summary of rep to a
// chat-compatible webhook (Slack/Discord-style {"text": "..."} payload).
func (r *Reporter) SendChatNotification(ctx context.Context, chatWebhookURL string, jobID string, rep model.BatchReport) {
	if chatWebhookURL == "" {
		return
	}

	summary := fmt.Sprintf(
		"Prerender job %s finished: %d rendered, %d analyzed, %d synced to KV, %d synced to R2, %d failed render, %d failed sync",
		jobID, rep.CountRendered, rep.CountAnalyzed, rep.CountKVSynced, rep.CountR2Synced, len(rep.FailedRender), len(rep.FailedSync),
	)
	payload, err := json.Marshal(map[string]string{"text": summary})
	if err != nil {
		r.log.LogErrorf("failed to marshal chat notification for job %s: %v", jobID, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chatWebhookURL, bytes.NewReader(payload))
	if err != nil {
		r.log.LogErrorf("failed to build chat notification request for job %s: %v", jobID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.LogWarnf("failed to send chat notification for job %s: %v", jobID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.log.LogWarnf("chat notification returned status %d for job %s", resp.StatusCode, jobID)
	}
}

// generateHMACSignature signs timestamp+payload with the configured system
// auth secret, matching the header shape the outer platform's webhook
// consumers expect.
func (r *Reporter) generateHMACSignature(timestamp string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(r.systemAuthSecret))
	h.Write([]byte(timestamp))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
