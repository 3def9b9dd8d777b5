package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Fetch     FetchConfig
	Scoring   ScoringConfig
	Detection DetectionConfig
	Cache     CacheConfig
	Batch     BatchConfig
	Summary   SummaryConfig
	History   HistoryConfig
	Webhook   WebhookConfig

	// RulesFile is an optional YAML file overlaying Scoring and Detection.
	RulesFile string
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// FetchConfig controls how site HTML is retrieved.
type FetchConfig struct {
	// Timeout bounds each individual attempt.
	Timeout time.Duration // default: 10s

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int // default: 3

	// BackoffFactor is the base delay; retry n waits BackoffFactor * 2^(n-1).
	BackoffFactor time.Duration // default: 300ms

	// BackoffMax caps a single backoff delay, including Retry-After.
	BackoffMax time.Duration // default: 10s

	// MaxRedirects is the redirect hop limit.
	MaxRedirects int // default: 10

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64 // default: 10 MiB

	UserAgent string

	// AllowPrivateNetworks disables the loopback/private address guard.
	AllowPrivateNetworks bool // default: false

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool // default: false

	// PerHostRPS throttles requests to a single host; 0 disables throttling.
	PerHostRPS float64 // default: 0
}

// CacheConfig controls the scan result cache.
type CacheConfig struct {
	// TTL is how long a result stays fresh.
	TTL time.Duration // default: 24h

	// MaxEntries bounds the cache; 0 means unbounded.
	MaxEntries int // default: 1000

	// PurgeInterval is how often expired entries are swept; 0 disables it.
	PurgeInterval time.Duration // default: 10m
}

// BatchConfig controls batch scans.
type BatchConfig struct {
	MaxSize     int // default: 10
	Parallelism int // default: 4
}

// SummaryConfig controls the optional AI policy summary.
type SummaryConfig struct {
	APIKey  string
	Model   string // default: "gpt-4o-mini"
	BaseURL string // default: "https://api.openai.com/v1"

	Temperature float64       // default: 0.2
	MaxTokens   int           // default: 1500
	Timeout     time.Duration // default: 60s

	// MaxPolicyChars truncates policy text before it is sent.
	MaxPolicyChars int // default: 8000
}

// Enabled reports whether a summarizer should be wired.
func (s SummaryConfig) Enabled() bool { return s.APIKey != "" }

// History backends.
const (
	HistoryNone     = "none"
	HistoryPostgres = "postgres"
	HistoryRedis    = "redis"
)

// HistoryConfig selects and configures the persistence collaborator.
type HistoryConfig struct {
	// Backend is "none", "postgres" or "redis".
	Backend string // default: "none"

	// DefaultLimit is the number of results returned by history queries.
	DefaultLimit int // default: 20

	DatabaseURL string
	MaxConns    int32 // default: 10

	RedisAddr     string // default: "localhost:6379"
	RedisPassword string
	RedisDB       int
	// RedisMaxEntries caps the per-URL history list.
	RedisMaxEntries int // default: 100
	// RedisRetention expires a URL's list after inactivity.
	RedisRetention time.Duration // default: 2160h (90 days)
}

// WebhookConfig controls batch completion notifications.
type WebhookConfig struct {
	// Secret signs payloads with HMAC-SHA256 when non-empty.
	Secret string

	Timeout     time.Duration   // default: 10s
	RetryDelays []time.Duration // default: [0s, 1s, 5s, 30s]

	// AllowPrivateNetworks permits webhook URLs on loopback and private
	// addresses.
	AllowPrivateNetworks bool // default: false
}

// Load reads configuration from environment variables with sane defaults.
// Call Validate before using the result.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("COMPLYSCAN_HOST", "0.0.0.0"),
			Port: envIntOr("COMPLYSCAN_PORT", 8080),
			Mode: envOr("COMPLYSCAN_MODE", "release"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("COMPLYSCAN_AUTH_ENABLED", false),
			APIKeys: envSliceOr("COMPLYSCAN_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("COMPLYSCAN_RATE_RPS", 2.0),
			Burst:             envIntOr("COMPLYSCAN_RATE_BURST", 5),
		},
		Log: LogConfig{
			Level:  envOr("COMPLYSCAN_LOG_LEVEL", "info"),
			Format: envOr("COMPLYSCAN_LOG_FORMAT", "json"),
		},
		Fetch: FetchConfig{
			Timeout:              envDurationOr("COMPLYSCAN_FETCH_TIMEOUT", 10*time.Second),
			MaxRetries:           envIntOr("COMPLYSCAN_MAX_RETRIES", 3),
			BackoffFactor:        envDurationOr("COMPLYSCAN_BACKOFF_FACTOR", 300*time.Millisecond),
			BackoffMax:           envDurationOr("COMPLYSCAN_BACKOFF_MAX", 10*time.Second),
			MaxRedirects:         envIntOr("COMPLYSCAN_MAX_REDIRECTS", 10),
			MaxBodyBytes:         int64(envIntOr("COMPLYSCAN_MAX_BODY_BYTES", 10<<20)),
			UserAgent:            envOr("COMPLYSCAN_USER_AGENT", DefaultUserAgent),
			AllowPrivateNetworks: envBoolOr("COMPLYSCAN_ALLOW_PRIVATE_NETWORKS", false),
			InsecureSkipVerify:   envBoolOr("COMPLYSCAN_INSECURE_SKIP_VERIFY", false),
			PerHostRPS:           envFloatOr("COMPLYSCAN_PER_HOST_RPS", 0),
		},
		Scoring: ScoringConfig{
			Weights: Weights{
				ConsentBanner: envIntOr("COMPLYSCAN_WEIGHT_CONSENT_BANNER", 30),
				PrivacyPolicy: envIntOr("COMPLYSCAN_WEIGHT_PRIVACY_POLICY", 30),
				ContactInfo:   envIntOr("COMPLYSCAN_WEIGHT_CONTACT_INFO", 20),
				Trackers:      envIntOr("COMPLYSCAN_WEIGHT_TRACKERS", 20),
			},
			Grades: GradeThresholds{
				A: envIntOr("COMPLYSCAN_GRADE_A", 90),
				B: envIntOr("COMPLYSCAN_GRADE_B", 80),
				C: envIntOr("COMPLYSCAN_GRADE_C", 70),
				D: envIntOr("COMPLYSCAN_GRADE_D", 60),
			},
			Status: StatusThresholds{
				Compliant:        envIntOr("COMPLYSCAN_STATUS_COMPLIANT", 80),
				NeedsImprovement: envIntOr("COMPLYSCAN_STATUS_NEEDS_IMPROVEMENT", 60),
			},
			TrackerBands: DefaultTrackerBands(),
		},
		Cache: CacheConfig{
			TTL:           envDurationOr("COMPLYSCAN_CACHE_TTL", 24*time.Hour),
			MaxEntries:    envIntOr("COMPLYSCAN_CACHE_MAX_ENTRIES", 1000),
			PurgeInterval: envDurationOr("COMPLYSCAN_CACHE_PURGE_INTERVAL", 10*time.Minute),
		},
		Batch: BatchConfig{
			MaxSize:     envIntOr("COMPLYSCAN_BATCH_MAX_SIZE", 10),
			Parallelism: envIntOr("COMPLYSCAN_BATCH_PARALLELISM", 4),
		},
		Summary: SummaryConfig{
			APIKey:         os.Getenv("COMPLYSCAN_OPENAI_API_KEY"),
			Model:          envOr("COMPLYSCAN_OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:        envOr("COMPLYSCAN_OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature:    envFloatOr("COMPLYSCAN_OPENAI_TEMPERATURE", 0.2),
			MaxTokens:      envIntOr("COMPLYSCAN_OPENAI_MAX_TOKENS", 1500),
			Timeout:        envDurationOr("COMPLYSCAN_OPENAI_TIMEOUT", 60*time.Second),
			MaxPolicyChars: envIntOr("COMPLYSCAN_MAX_POLICY_CHARS", 8000),
		},
		History: HistoryConfig{
			Backend:         strings.ToLower(envOr("COMPLYSCAN_HISTORY_BACKEND", HistoryNone)),
			DefaultLimit:    envIntOr("COMPLYSCAN_HISTORY_LIMIT", 20),
			DatabaseURL:     os.Getenv("COMPLYSCAN_DATABASE_URL"),
			MaxConns:        int32(envIntOr("COMPLYSCAN_DB_MAX_CONNS", 10)),
			RedisAddr:       envOr("COMPLYSCAN_REDIS_ADDR", "localhost:6379"),
			RedisPassword:   os.Getenv("COMPLYSCAN_REDIS_PASSWORD"),
			RedisDB:         envIntOr("COMPLYSCAN_REDIS_DB", 0),
			RedisMaxEntries: envIntOr("COMPLYSCAN_REDIS_MAX_ENTRIES", 100),
			RedisRetention:  envDurationOr("COMPLYSCAN_REDIS_RETENTION", 90*24*time.Hour),
		},
		Webhook: WebhookConfig{
			Secret:               os.Getenv("COMPLYSCAN_WEBHOOK_SECRET"),
			Timeout:              envDurationOr("COMPLYSCAN_WEBHOOK_TIMEOUT", 10*time.Second),
			RetryDelays:          envDurationSliceOr("COMPLYSCAN_WEBHOOK_RETRY_DELAYS", []time.Duration{0, time.Second, 5 * time.Second, 30 * time.Second}),
			AllowPrivateNetworks: envBoolOr("COMPLYSCAN_WEBHOOK_ALLOW_PRIVATE", false),
		},
		RulesFile: os.Getenv("COMPLYSCAN_RULES_FILE"),
	}
}

// DefaultUserAgent mimics a desktop browser so that sites serve their
// regular markup.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
