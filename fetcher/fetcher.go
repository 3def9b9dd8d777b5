// Package fetcher retrieves the HTML of a scan target over HTTP with
// bounded retries, redirect limits and private-address protection.
package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/use-agent/complyscan/config"
	"github.com/use-agent/complyscan/models"
)

// ErrBlockedAddress is returned for loopback, private and link-local
// destinations.
var ErrBlockedAddress = errors.New("destination address is not allowed")

var errTooManyRedirects = errors.New("too many redirects")

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// AttemptObserver is told the outcome of every attempt: "success" or a
// models.FetchErrorKind.
type AttemptObserver func(outcome string)

// Fetcher performs GET requests through a shared, pooled client.
// It is safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	cfg     config.FetchConfig
	limiter *hostLimiter
	sleep   SleepFunc
	observe AttemptObserver
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithSleep replaces the backoff sleep.
func WithSleep(fn SleepFunc) Option {
	return func(f *Fetcher) { f.sleep = fn }
}

// WithAttemptObserver registers a per-attempt callback.
func WithAttemptObserver(fn AttemptObserver) Option {
	return func(f *Fetcher) { f.observe = fn }
}

// New creates a Fetcher from cfg.
func New(cfg config.FetchConfig, opts ...Option) *Fetcher {
	dialer := &net.Dialer{
		Timeout:   cfg.Timeout,
		KeepAlive: 30 * time.Second,
	}
	if !cfg.AllowPrivateNetworks {
		dialer.Control = DialControl
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	maxRedirects := cfg.MaxRedirects
	f := &Fetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return errTooManyRedirects
				}
				return nil
			},
		},
		cfg:     cfg,
		sleep:   sleepCtx,
		observe: func(string) {},
	}
	if cfg.PerHostRPS > 0 {
		f.limiter = newHostLimiter(cfg.PerHostRPS, 1, 10*time.Minute)
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Close releases idle connections and stops background work.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
	if f.limiter != nil {
		f.limiter.Stop()
	}
}

// Fetch retrieves target. Connection failures, timeouts, 429 and 5xx
// responses are retried up to MaxRetries times with exponential backoff.
// Other 4xx responses, TLS failures, unknown hosts, blocked addresses and
// redirect loops fail immediately.
//
// The returned FetchResult is always non-nil. On failure the error is a
// *models.ScanError of kind NETWORK_ERROR, INVALID_URL (blocked literal
// address) or CANCELED.
func (f *Fetcher) Fetch(ctx context.Context, target models.ScanTarget) (*models.FetchResult, error) {
	if !f.cfg.AllowPrivateNetworks && IsBlockedHost(target.Host()) {
		return &models.FetchResult{Status: models.FetchFailure, ErrorKind: models.FetchErrBlockedAddress},
			models.NewScanError(models.ErrKindInvalidURL, "address '"+target.Host()+"' is not allowed", ErrBlockedAddress)
	}

	maxAttempts := f.cfg.MaxRetries + 1
	var (
		last    *attempt
		lastErr error
		made    int
	)

	for n := 1; n <= maxAttempts; n++ {
		if n > 1 {
			delay := f.backoff(n-1, last.retryAfter)
			slog.Debug("fetcher: retrying",
				"url", target.String(),
				"attempt", n,
				"delay", delay,
				"reason", last.kind,
			)
			if err := f.sleep(ctx, delay); err != nil {
				return canceled(n-1, err)
			}
		}

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, target.Host()); err != nil {
				return canceled(n-1, err)
			}
		}

		a := f.do(ctx, target.String())
		made = n
		if ctx.Err() != nil {
			return canceled(n, ctx.Err())
		}

		if a.err == nil {
			f.observe("success")
			a.result.Attempts = n
			return a.result, nil
		}

		f.observe(string(a.kind))
		last, lastErr = a, a.err
		if !a.retryable {
			break
		}
	}

	res := &models.FetchResult{
		Status:     models.FetchFailure,
		HTTPStatus: last.status,
		ErrorKind:  last.kind,
		Attempts:   made,
		FetchedAt:  time.Now().UTC(),
	}
	msg := fmt.Sprintf("failed to fetch %s (%s)", target.String(), last.kind)
	if last.status != 0 {
		msg = fmt.Sprintf("failed to fetch %s (HTTP %d)", target.String(), last.status)
	}
	return res, models.NewScanError(models.ErrKindNetwork, msg, lastErr)
}

// attempt is the outcome of a single request.
type attempt struct {
	result     *models.FetchResult
	status     int
	kind       models.FetchErrorKind
	retryable  bool
	retryAfter time.Duration
	err        error
}

func (f *Fetcher) do(ctx context.Context, rawURL string) *attempt {
	actx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &attempt{kind: models.FetchErrConnection, err: err}
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		kind, retryable := classify(err)
		return &attempt{kind: kind, retryable: retryable, err: err}
	}
	defer resp.Body.Close()

	// A 3xx that was not followed (no Location, or 304) ends the chain and
	// counts as fetched.
	if resp.StatusCode < 200 || resp.StatusCode > 399 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &attempt{
			status:     resp.StatusCode,
			kind:       models.FetchErrHTTPStatus,
			retryable:  retryableStatus(resp.StatusCode),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		kind, retryable := classify(err)
		if kind == models.FetchErrConnection {
			kind = models.FetchErrReadBody
		}
		return &attempt{status: resp.StatusCode, kind: kind, retryable: retryable, err: err}
	}
	truncated := int64(len(raw)) > f.cfg.MaxBodyBytes
	if truncated {
		raw = raw[:f.cfg.MaxBodyBytes]
	}

	ct := resp.Header.Get("Content-Type")
	return &attempt{
		status: resp.StatusCode,
		result: &models.FetchResult{
			Status:      models.FetchSuccess,
			HTML:        decode(raw, ct),
			HTTPStatus:  resp.StatusCode,
			ContentType: ct,
			FinalURL:    resp.Request.URL.String(),
			Truncated:   truncated,
			FetchedAt:   time.Now().UTC(),
		},
	}
}

// backoff returns the delay before retry n (1-based). A Retry-After hint
// within the cap takes precedence.
func (f *Fetcher) backoff(n int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 && (f.cfg.BackoffMax <= 0 || retryAfter <= f.cfg.BackoffMax) {
		return retryAfter
	}
	d := f.cfg.BackoffFactor << (n - 1)
	if f.cfg.BackoffMax > 0 && (d > f.cfg.BackoffMax || d < 0) {
		d = f.cfg.BackoffMax
	}
	return d
}

func canceled(attempts int, err error) (*models.FetchResult, error) {
	return &models.FetchResult{Status: models.FetchFailure, Attempts: attempts},
		models.NewScanError(models.ErrKindCanceled, "scan canceled", err)
}

// classify maps a transport error to a fetch error kind and whether the
// failure is worth retrying.
func classify(err error) (models.FetchErrorKind, bool) {
	if errors.Is(err, ErrBlockedAddress) {
		return models.FetchErrBlockedAddress, false
	}
	if errors.Is(err, errTooManyRedirects) {
		return models.FetchErrTooManyRedirects, false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return models.FetchErrDNS, !dnsErr.IsNotFound
	}

	var (
		certErr  *tls.CertificateVerificationError
		recErr   tls.RecordHeaderError
		alertErr tls.AlertError
	)
	if errors.As(err, &certErr) || errors.As(err, &recErr) || errors.As(err, &alertErr) ||
		strings.Contains(err.Error(), "x509:") || strings.Contains(err.Error(), "tls:") {
		return models.FetchErrTLS, false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.FetchErrTimeout, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.FetchErrTimeout, true
	}

	return models.FetchErrConnection, true
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// decode converts body to UTF-8 using the declared or sniffed charset.
func decode(body []byte, contentType string) string {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return string(body)
	}
	return string(out)
}

// IsHTML reports whether a Content-Type header denotes an HTML document.
// A missing header is treated as HTML.
func IsHTML(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" {
		return true
	}
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DialControl is a net.Dialer Control func that rejects connections to
// loopback, private, link-local and unspecified addresses after DNS
// resolution.
func DialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); ip != nil && isBlockedIP(ip) {
		return ErrBlockedAddress
	}
	return nil
}

// IsBlockedHost reports whether host is localhost or a literal address
// that DialControl would reject.
func IsBlockedHost(host string) bool {
	h := strings.ToLower(strings.Trim(host, "[]"))
	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return true
	}
	if ip := net.ParseIP(h); ip != nil {
		return isBlockedIP(ip)
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast()
}
