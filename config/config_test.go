package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/complyscan/models"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Fetch.Timeout != 10*time.Second {
		t.Errorf("Fetch.Timeout = %v, want 10s", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.MaxRetries != 3 {
		t.Errorf("Fetch.MaxRetries = %d, want 3", cfg.Fetch.MaxRetries)
	}
	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
	}
	if cfg.Batch.MaxSize != 10 {
		t.Errorf("Batch.MaxSize = %d, want 10", cfg.Batch.MaxSize)
	}
	if cfg.Scoring.Weights.Sum() != 100 {
		t.Errorf("default weights sum to %d", cfg.Scoring.Weights.Sum())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COMPLYSCAN_FETCH_TIMEOUT", "3s")
	t.Setenv("COMPLYSCAN_API_KEYS", "a, b ,,c")
	t.Setenv("COMPLYSCAN_WEBHOOK_RETRY_DELAYS", "0s,2s")
	t.Setenv("COMPLYSCAN_HISTORY_BACKEND", "Redis")

	cfg := Load()
	if cfg.Fetch.Timeout != 3*time.Second {
		t.Errorf("Fetch.Timeout = %v, want 3s", cfg.Fetch.Timeout)
	}
	if got := strings.Join(cfg.Auth.APIKeys, "|"); got != "a|b|c" {
		t.Errorf("APIKeys = %q", got)
	}
	if len(cfg.Webhook.RetryDelays) != 2 || cfg.Webhook.RetryDelays[1] != 2*time.Second {
		t.Errorf("RetryDelays = %v", cfg.Webhook.RetryDelays)
	}
	if cfg.History.Backend != HistoryRedis {
		t.Errorf("History.Backend = %q", cfg.History.Backend)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"weights sum", func(c *Config) { c.Scoring.Weights.Trackers = 25 }, "sum to 100"},
		{"negative weight", func(c *Config) {
			c.Scoring.Weights.Trackers = -10
			c.Scoring.Weights.ContactInfo = 50
		}, "non-negative"},
		{"grades not descending", func(c *Config) { c.Scoring.Grades.C = 85 }, "grade thresholds"},
		{"grade above 100", func(c *Config) { c.Scoring.Grades.A = 101 }, "grade thresholds"},
		{"status inverted", func(c *Config) { c.Scoring.Status.NeedsImprovement = 90 }, "status thresholds"},
		{"unsorted bands", func(c *Config) {
			c.Scoring.TrackerBands = []TrackerBand{{0, 1}, {4, 0.4}, {2, 0.7}}
		}, "strictly increasing"},
		{"band fraction", func(c *Config) {
			c.Scoring.TrackerBands = []TrackerBand{{0, 1.5}}
		}, "outside [0,1]"},
		{"band start", func(c *Config) {
			c.Scoring.TrackerBands = []TrackerBand{{1, 1}}
		}, "start at 0"},
		{"timeout", func(c *Config) { c.Fetch.Timeout = 0 }, "timeout"},
		{"retries", func(c *Config) { c.Fetch.MaxRetries = -1 }, "retries"},
		{"ttl", func(c *Config) { c.Cache.TTL = 0 }, "TTL"},
		{"batch size", func(c *Config) { c.Batch.MaxSize = 0 }, "batch max size"},
		{"parallelism", func(c *Config) { c.Batch.Parallelism = 0 }, "parallelism"},
		{"backend", func(c *Config) { c.History.Backend = "mongo" }, "unknown history backend"},
		{"postgres url", func(c *Config) { c.History.Backend = HistoryPostgres }, "DATABASE_URL"},
		{"auth keys", func(c *Config) { c.Auth.Enabled = true }, "no API keys"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if models.KindOf(err) != models.ErrKindConfiguration {
				t.Errorf("kind = %s, want CONFIGURATION_ERROR", models.KindOf(err))
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadRules_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
scoring:
  weights:
    consent_banner: 40
    privacy_policy: 30
    contact_info: 10
    trackers: 20
  tracker_bands:
    - {min_count: 0, fraction: 1.0}
    - {min_count: 2, fraction: 0.5}
detection:
  consent_terms: ["utilizamos cookies"]
  trackers:
    - {domain: tracker.example, category: analytics}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load()
	if err := LoadRules(cfg, path); err != nil {
		t.Fatalf("LoadRules: %v", err)
	}

	if cfg.Scoring.Weights.ConsentBanner != 40 || cfg.Scoring.Weights.ContactInfo != 10 {
		t.Errorf("weights not overlaid: %+v", cfg.Scoring.Weights)
	}
	if cfg.Scoring.Grades.A != 90 {
		t.Errorf("grades should keep defaults, got %+v", cfg.Scoring.Grades)
	}
	if len(cfg.Scoring.TrackerBands) != 2 {
		t.Errorf("TrackerBands = %+v", cfg.Scoring.TrackerBands)
	}
	if len(cfg.Detection.Trackers) != 1 || cfg.Detection.Trackers[0].Domain != "tracker.example" {
		t.Errorf("Detection.Trackers = %+v", cfg.Detection.Trackers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("overlaid config should validate: %v", err)
	}
}

func TestLoadRules_BadYAML(t *testing.T) {
	cfg := Load()
	if err := applyRules(cfg, []byte("scoring: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}
