// Package config loads the batch job's configuration from environment
// variables, with an optional YAML job manifest for the seed URL list and
// per-run overrides that don't fit comfortably into env vars.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SitemapWindow enumerates the lastmod recency filters applied when
// discovering candidate URLs from a sitemap.
type SitemapWindow string

const (
	Window1Day   SitemapWindow = "1d"
	Window3Days  SitemapWindow = "3d"
	Window7Days  SitemapWindow = "7d"
	Window30Days SitemapWindow = "30d"
	WindowAll    SitemapWindow = "all"
)

// Config carries every setting the batch job entrypoint needs to build its
// providers and drive the orchestrator.
type Config struct {
	AppEnv string

	SeedURLs             []string
	SitemapURL           string
	SitemapUpdatedWithin SitemapWindow
	MinSitemapURLs       int
	MaxDiscoveryDepth    int
	MaxDiscoveryLinks    int
	SkipSitemapParsing   bool

	UserAgent   string
	Concurrency int

	CacheTTLSeconds int
	SkipCacheSync   bool

	BlobAccountID       string
	BlobAccessKeyID     string
	BlobSecretAccessKey string
	BlobBucket          string

	KVAccountID   string
	KVAPIToken    string
	KVNamespaceID string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	WebhookURL       string
	ChatWebhookURL   string
	SystemAuthSecret string
	JobID            string

	PushgatewayURL string
}

// Manifest is the optional YAML job manifest shape: seed URLs and per-run
// overrides that are awkward to express as a flat env var block.
type Manifest struct {
	SeedURLs             []string `yaml:"seedUrls"`
	SitemapURL           string   `yaml:"sitemapUrl"`
	SitemapUpdatedWithin string   `yaml:"sitemapUpdatedWithin"`
	UserAgent            string   `yaml:"userAgent"`
	Concurrency          int      `yaml:"concurrency"`
	CacheTTLSeconds      int      `yaml:"cacheTtlSeconds"`
	SkipCacheSync        bool     `yaml:"skipCacheSync"`
	JobID                string   `yaml:"jobId"`
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// LoadManifest reads and parses a YAML job manifest from path.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read job manifest %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse job manifest %s: %w", path, err)
	}
	return m, nil
}

// Load builds the Config from environment variables, then applies an
// optional job manifest (referenced by JOB_MANIFEST_PATH) on top. Manifest
// values only override the env-derived default when non-zero, so a manifest
// can supply just the seed URL list and leave everything else at its
// env/default value.
func Load() (Config, error) {
	cfg := Config{
		AppEnv: getenv("APP_ENV", "development"),

		SitemapURL:           os.Getenv("SITEMAP_URL"),
		SitemapUpdatedWithin: SitemapWindow(getenv("SITEMAP_UPDATED_WITHIN", string(WindowAll))),
		MinSitemapURLs:       getenvInt("MIN_SITEMAP_URLS", 1),
		MaxDiscoveryDepth:    getenvInt("MAX_DISCOVERY_DEPTH", 2),
		MaxDiscoveryLinks:    getenvInt("MAX_DISCOVERY_LINKS", 500),
		SkipSitemapParsing:   getenvBool("SKIP_SITEMAP_PARSING", false),

		UserAgent:   getenv("USER_AGENT", "Mozilla/5.0 (compatible; LovableHTMLBot/1.0; +https://lovablehtml.com/bot)"),
		Concurrency: getenvInt("CONCURRENCY", 4),

		CacheTTLSeconds: getenvInt("CACHE_TTL_SECONDS", 86400),
		SkipCacheSync:   getenvBool("SKIP_CACHE_SYNC", false),

		BlobAccountID:       os.Getenv("R2_ACCOUNT_ID"),
		BlobAccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		BlobSecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		BlobBucket:          getenv("R2_BUCKET", "prerendered-html"),

		KVAccountID:   os.Getenv("CF_KV_ACCOUNT_ID"),
		KVAPIToken:    os.Getenv("CF_KV_API_TOKEN"),
		KVNamespaceID: os.Getenv("CF_KV_NAMESPACE_ID"),

		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvInt("REDIS_DB", 0),

		WebhookURL:       os.Getenv("WEBHOOK_URL"),
		ChatWebhookURL:   os.Getenv("CHAT_WEBHOOK_URL"),
		SystemAuthSecret: os.Getenv("SYSTEM_AUTH_SECRET"),
		JobID:            os.Getenv("JOB_ID"),

		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
	}

	if seeds := os.Getenv("SEED_URLS"); seeds != "" {
		for _, s := range strings.Split(seeds, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				cfg.SeedURLs = append(cfg.SeedURLs, trimmed)
			}
		}
	}

	if manifestPath := os.Getenv("JOB_MANIFEST_PATH"); manifestPath != "" {
		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			return cfg, err
		}
		applyManifest(&cfg, manifest)
	}

	if len(cfg.SeedURLs) == 0 {
		return cfg, fmt.Errorf("no seed URLs configured: set SEED_URLS or a job manifest's seedUrls")
	}

	return cfg, nil
}

func applyManifest(cfg *Config, m Manifest) {
	if len(m.SeedURLs) > 0 {
		cfg.SeedURLs = m.SeedURLs
	}
	if m.SitemapURL != "" {
		cfg.SitemapURL = m.SitemapURL
	}
	if m.SitemapUpdatedWithin != "" {
		cfg.SitemapUpdatedWithin = SitemapWindow(m.SitemapUpdatedWithin)
	}
	if m.UserAgent != "" {
		cfg.UserAgent = m.UserAgent
	}
	if m.Concurrency > 0 {
		cfg.Concurrency = m.Concurrency
	}
	if m.CacheTTLSeconds > 0 {
		cfg.CacheTTLSeconds = m.CacheTTLSeconds
	}
	if m.SkipCacheSync {
		cfg.SkipCacheSync = true
	}
	if m.JobID != "" {
		cfg.JobID = m.JobID
	}
}
