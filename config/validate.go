package config

import (
	"fmt"
	"strings"

	"github.com/use-agent/complyscan/models"
)

// Validate checks the configuration once at startup. Every problem found
// is reported in a single CONFIGURATION_ERROR.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	w := c.Scoring.Weights
	if w.ConsentBanner < 0 || w.PrivacyPolicy < 0 || w.ContactInfo < 0 || w.Trackers < 0 {
		add("category weights must be non-negative")
	}
	if w.Sum() != 100 {
		add("category weights must sum to 100, got %d", w.Sum())
	}

	g := c.Scoring.Grades
	if !(100 >= g.A && g.A > g.B && g.B > g.C && g.C > g.D && g.D >= 0) {
		add("grade thresholds must be strictly descending within [0,100], got A=%d B=%d C=%d D=%d", g.A, g.B, g.C, g.D)
	}

	s := c.Scoring.Status
	if !(100 >= s.Compliant && s.Compliant > s.NeedsImprovement && s.NeedsImprovement >= 0) {
		add("status thresholds must satisfy 100 >= compliant > needs_improvement >= 0, got %d and %d", s.Compliant, s.NeedsImprovement)
	}

	bands := c.Scoring.TrackerBands
	if len(bands) == 0 {
		add("at least one tracker band is required")
	} else if bands[0].MinCount != 0 {
		add("first tracker band must start at 0, got %d", bands[0].MinCount)
	}
	for i, b := range bands {
		if b.Fraction < 0 || b.Fraction > 1 {
			add("tracker band %d fraction %.2f outside [0,1]", i, b.Fraction)
		}
		if i > 0 && b.MinCount <= bands[i-1].MinCount {
			add("tracker bands must be sorted by strictly increasing min_count")
		}
	}

	if c.Fetch.Timeout <= 0 {
		add("fetch timeout must be positive")
	}
	if c.Fetch.MaxRetries < 0 {
		add("max retries must be non-negative")
	}
	if c.Fetch.BackoffFactor < 0 || c.Fetch.BackoffMax < 0 {
		add("backoff durations must be non-negative")
	}
	if c.Fetch.MaxRedirects < 0 {
		add("max redirects must be non-negative")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		add("max body bytes must be positive")
	}
	if c.Cache.TTL <= 0 {
		add("cache TTL must be positive")
	}
	if c.Cache.MaxEntries < 0 {
		add("cache max entries must be non-negative")
	}
	if c.Batch.MaxSize < 1 {
		add("batch max size must be at least 1")
	}
	if c.Batch.Parallelism < 1 {
		add("batch parallelism must be at least 1")
	}
	if c.Summary.MaxPolicyChars < 1 {
		add("max policy chars must be at least 1")
	}

	switch c.History.Backend {
	case HistoryNone, "":
	case HistoryPostgres:
		if c.History.DatabaseURL == "" {
			add("postgres history backend requires COMPLYSCAN_DATABASE_URL")
		}
	case HistoryRedis:
		if c.History.RedisAddr == "" {
			add("redis history backend requires COMPLYSCAN_REDIS_ADDR")
		}
	default:
		add("unknown history backend %q", c.History.Backend)
	}
	if c.History.DefaultLimit < 1 {
		add("history limit must be at least 1")
	}

	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		add("auth is enabled but no API keys are configured")
	}

	for i, t := range c.Detection.Trackers {
		if strings.TrimSpace(t.Domain) == "" {
			add("tracker rule %d has an empty domain", i)
		}
	}

	if len(problems) > 0 {
		return models.NewScanError(models.ErrKindConfiguration, strings.Join(problems, "; "), nil)
	}
	return nil
}
