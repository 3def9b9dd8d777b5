// Package scanner runs the fetch, detect and score pipeline for single URLs
// and bounded batches, with a result cache in front and optional history and
// summary collaborators behind.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/use-agent/complyscan/cache"
	"github.com/use-agent/complyscan/cleaner"
	"github.com/use-agent/complyscan/config"
	"github.com/use-agent/complyscan/detector"
	"github.com/use-agent/complyscan/fetcher"
	"github.com/use-agent/complyscan/metrics"
	"github.com/use-agent/complyscan/models"
	"github.com/use-agent/complyscan/scorer"
)

// shellDistance is the SimHash bit distance under which policy text counts
// as a copy of the home page text.
const shellDistance = 3

// Fetcher retrieves one page. *fetcher.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, target models.ScanTarget) (*models.FetchResult, error)
}

// Scanner orchestrates scans. It is safe for concurrent use.
type Scanner struct {
	fetcher    Fetcher
	detector   *detector.Detector
	cache      *cache.Cache
	policy     *cleaner.PolicyExtractor
	summarizer Summarizer
	history    HistoryStore
	metrics    *metrics.Metrics

	scoring        config.ScoringConfig
	batch          config.BatchConfig
	maxPolicyChars int
	historyLimit   int

	// flights holds at most one uncached scan per normalized URL.
	flights singleflight.Group
	now     func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithSummarizer sets the policy summarizer. nil means none.
func WithSummarizer(s Summarizer) Option {
	return func(sc *Scanner) {
		if s != nil {
			sc.summarizer = s
		}
	}
}

// WithHistory sets the history store. nil means none.
func WithHistory(h HistoryStore) Option {
	return func(sc *Scanner) {
		if h != nil {
			sc.history = h
		}
	}
}

// WithMetrics records scan and batch outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(sc *Scanner) { sc.metrics = m }
}

// WithClock overrides the timestamp source for ScannedAt.
func WithClock(now func() time.Time) Option {
	return func(sc *Scanner) { sc.now = now }
}

// New creates a Scanner. A nil detector uses the built-in rules.
func New(cfg *config.Config, f Fetcher, det *detector.Detector, c *cache.Cache, opts ...Option) *Scanner {
	if det == nil {
		det = detector.New(nil)
	}
	s := &Scanner{
		fetcher:        f,
		detector:       det,
		cache:          c,
		policy:         cleaner.NewPolicyExtractor(),
		summarizer:     NoSummarizer{},
		history:        NoHistory{},
		scoring:        cfg.Scoring,
		batch:          cfg.Batch,
		maxPolicyChars: cfg.Summary.MaxPolicyChars,
		historyLimit:   cfg.History.DefaultLimit,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan scans rawURL, serving a cached result when one is fresh.
func (s *Scanner) Scan(ctx context.Context, rawURL string) (*models.ScanResult, error) {
	r, _, err := s.ScanURL(ctx, rawURL, false)
	return r, err
}

// ScanURL is Scan with a force flag that drops any cached entry first. The
// boolean result reports whether the result came from the cache.
func (s *Scanner) ScanURL(ctx context.Context, rawURL string, force bool) (*models.ScanResult, bool, error) {
	target, err := models.ParseTarget(rawURL)
	if err != nil {
		s.observe(false, 0, nil, err)
		return nil, false, err
	}
	return s.scan(ctx, target, force)
}

func (s *Scanner) scan(ctx context.Context, target models.ScanTarget, force bool) (*models.ScanResult, bool, error) {
	if force {
		s.cache.Invalidate(target)
	} else if r, ok := s.cache.Get(target); ok {
		slog.Debug("scanner: cache hit", "url", target.String())
		s.observe(true, 0, r, nil)
		return r, true, nil
	}

	// The flight ignores caller cancellation and is bounded by the fetcher's
	// per-attempt timeout. Each caller stops waiting on its own ctx.
	start := time.Now()
	flight := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(target.String(), func() (v any, err error) {
		defer func() {
			if p := recover(); p != nil {
				slog.Error("scanner: scan panic", "url", target.String(), "panic", p)
				err = models.NewScanError(models.ErrKindInternal, "scan panicked", fmt.Errorf("%v", p))
			}
		}()
		return s.scanUncached(flight, target)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			s.observe(false, time.Since(start), nil, res.Err)
			return nil, false, res.Err
		}
		r := res.Val.(*models.ScanResult)
		s.observe(res.Shared, time.Since(start), r, nil)
		return r, false, nil
	case <-ctx.Done():
		err := models.NewScanError(models.ErrKindCanceled, "scan canceled", ctx.Err())
		s.observe(false, time.Since(start), nil, err)
		return nil, false, err
	}
}

// scanUncached runs the pipeline. Fetch and detect failures propagate and
// nothing is cached. Summary and history failures only degrade the result.
func (s *Scanner) scanUncached(ctx context.Context, target models.ScanTarget) (*models.ScanResult, error) {
	fr, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		slog.Warn("scanner: fetch failed", "url", target.String(), "error", err)
		return nil, err
	}
	if !fetcher.IsHTML(fr.ContentType) {
		return nil, models.NewScanError(models.ErrKindEmptyContent,
			fmt.Sprintf("content type %q is not HTML", fr.ContentType), nil)
	}

	base := fr.FinalURL
	if base == "" {
		base = target.String()
	}
	findings, err := s.detector.Detect(fr.HTML, base)
	if err != nil {
		return nil, err
	}
	if fr.Truncated {
		findings.DataQuality = append(findings.DataQuality, models.QualityBodyTruncated)
	}

	result := &models.ScanResult{
		ID:        uuid.NewString(),
		Target:    target.String(),
		FinalURL:  fr.FinalURL,
		Findings:  *findings,
		Breakdown: scorer.Score(findings, s.scoring),
		ScannedAt: s.now().UTC(),
	}
	result.AISummary = s.summarize(ctx, fr.HTML, base, findings.PrivacyPolicy.URL)

	s.cache.Put(target, result)
	if err := s.history.Save(ctx, result); err != nil {
		slog.Warn("scanner: history save failed",
			"url", target.String(),
			"backend", s.history.Name(),
			"error", err,
		)
	}

	slog.Info("scan completed",
		"url", target.String(),
		"score", result.Breakdown.Total,
		"grade", result.Breakdown.Grade,
		"attempts", fr.Attempts,
	)
	return result, nil
}

// summarize fetches the policy page and asks the summarizer for a narrative.
// Any failure returns "". A policy page whose text is a near duplicate of the
// home page (a client-rendered shell, or a link that redirects home) is not
// summarized.
func (s *Scanner) summarize(ctx context.Context, homeHTML, homeURL, policyURL string) string {
	if policyURL == "" || !s.summarizer.Enabled() {
		return ""
	}

	target, err := models.ParseTarget(policyURL)
	if err != nil {
		slog.Warn("scanner: unusable policy URL", "url", policyURL, "error", err)
		return ""
	}
	fr, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		slog.Warn("scanner: policy fetch failed", "url", policyURL, "error", err)
		return ""
	}
	if !fetcher.IsHTML(fr.ContentType) {
		slog.Warn("scanner: policy page is not HTML", "url", policyURL, "content_type", fr.ContentType)
		return ""
	}

	source := fr.FinalURL
	if source == "" {
		source = target.String()
	}
	text := s.policy.Text(fr.HTML, source, s.maxPolicyChars)
	if text == "" {
		slog.Warn("scanner: policy page has no text", "url", policyURL)
		return ""
	}

	home := s.policy.Text(homeHTML, homeURL, s.maxPolicyChars)
	if cleaner.NearDuplicate(cleaner.Fingerprint(home), cleaner.Fingerprint(text), shellDistance) {
		slog.Warn("scanner: policy page repeats the home page, skipping summary", "url", policyURL)
		return ""
	}

	summary, err := s.summarizer.Summarize(ctx, text)
	if err != nil {
		slog.Warn("scanner: policy summary failed", "url", policyURL, "error", err)
		return ""
	}
	return summary
}

// Invalidate drops the cached result for rawURL and reports whether one
// existed.
func (s *Scanner) Invalidate(rawURL string) (bool, error) {
	target, err := models.ParseTarget(rawURL)
	if err != nil {
		return false, err
	}
	return s.cache.Invalidate(target), nil
}

// History returns up to limit past results for rawURL, newest first. A
// non-positive limit uses the configured default.
func (s *Scanner) History(ctx context.Context, rawURL string, limit int) ([]*models.ScanResult, error) {
	target, err := models.ParseTarget(rawURL)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.historyLimit
	}
	return s.history.History(ctx, target.String(), limit)
}

// CacheStats reports the result cache state.
func (s *Scanner) CacheStats() models.CacheStats { return s.cache.Stats() }

// HistoryBackend names the configured history store.
func (s *Scanner) HistoryBackend() string { return s.history.Name() }

// SummarizerEnabled reports whether policy summaries will be attempted.
func (s *Scanner) SummarizerEnabled() bool { return s.summarizer.Enabled() }

func (s *Scanner) observe(cached bool, d time.Duration, r *models.ScanResult, err error) {
	if s.metrics == nil {
		return
	}
	total := 0
	if r != nil {
		total = r.Breakdown.Total
	}
	s.metrics.ObserveScan(cached, d, total, err)
}
