package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/use-agent/complyscan/config"
	"github.com/use-agent/complyscan/fetcher"
	"github.com/use-agent/complyscan/models"
)

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-Complyscan-Signature"

// EventBatchCompleted is sent when a batch scan finishes.
const EventBatchCompleted = "batch.completed"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	BatchID   string `json:"batch_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// BatchSummary is the data of a batch.completed event.
type BatchSummary struct {
	Status    string                `json:"status"`
	Total     int                   `json:"total"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
	Outcomes  []BatchOutcomeSummary `json:"outcomes"`
}

// BatchOutcomeSummary is one slot of a batch, without the full findings.
type BatchOutcomeSummary struct {
	URL    string                  `json:"url"`
	Score  *int                    `json:"score,omitempty"`
	Grade  string                  `json:"grade,omitempty"`
	Status models.ComplianceStatus `json:"status,omitempty"`
	Error  *models.ErrorDetail     `json:"error,omitempty"`
}

// NewBatchCompleted builds a batch.completed event from a batch result.
func NewBatchCompleted(b *models.BatchResult) *Event {
	sum := BatchSummary{
		Status:    b.Status,
		Total:     b.Total,
		Succeeded: b.Succeeded,
		Failed:    b.Failed,
		Outcomes:  make([]BatchOutcomeSummary, 0, len(b.Outcomes)),
	}
	for _, o := range b.Outcomes {
		summary := BatchOutcomeSummary{URL: o.URL, Error: o.Error}
		if o.Result != nil {
			total := o.Result.Breakdown.Total
			summary.Score = &total
			summary.Grade = o.Result.Breakdown.Grade
			summary.Status = o.Result.Breakdown.Status
		}
		sum.Outcomes = append(sum.Outcomes, summary)
	}
	return &Event{
		Type:      EventBatchCompleted,
		BatchID:   b.ID,
		Timestamp: time.Now().Unix(),
		Data:      sum,
	}
}

// Notifier delivers signed webhook events.
type Notifier struct {
	secret       string
	delays       []time.Duration
	client       *http.Client
	allowPrivate bool
	sleep        func(time.Duration)
	wg           sync.WaitGroup
}

// NewNotifier creates a Notifier from cfg.
func NewNotifier(cfg config.WebhookConfig) *Notifier {
	delays := cfg.RetryDelays
	if len(delays) == 0 {
		delays = []time.Duration{0}
	}
	dialer := &net.Dialer{Timeout: cfg.Timeout, KeepAlive: 30 * time.Second}
	if !cfg.AllowPrivateNetworks {
		dialer.Control = fetcher.DialControl
	}
	return &Notifier{
		secret: cfg.Secret,
		delays: delays,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{DialContext: dialer.DialContext, Proxy: http.ProxyFromEnvironment},
		},
		allowPrivate: cfg.AllowPrivateNetworks,
		sleep:        time.Sleep,
	}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends a webhook event synchronously.
// The request body is signed with HMAC-SHA256 if a secret is configured.
// Loopback and private destinations fail with fetcher.ErrBlockedAddress
// unless allowed by config.
func (n *Notifier) Deliver(ctx context.Context, endpoint string, event *Event) error {
	if err := n.checkDestination(endpoint); err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Complyscan-Webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func (n *Notifier) checkDestination(rawURL string) error {
	if n.allowPrivate {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("webhook: parse url: %w", err)
	}
	if fetcher.IsBlockedHost(u.Hostname()) {
		return fmt.Errorf("webhook: %s: %w", u.Hostname(), fetcher.ErrBlockedAddress)
	}
	return nil
}

// DeliverAsync sends event in the background, retrying after each
// configured delay. Blocked destinations are not retried.
func (n *Notifier) DeliverAsync(endpoint string, event *Event) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for attempt, delay := range n.delays {
			if delay > 0 {
				n.sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout+time.Second)
			err := n.Deliver(ctx, endpoint, event)
			cancel()
			if err == nil {
				slog.Info("webhook delivered",
					"url", endpoint,
					"event", event.Type,
					"batch_id", event.BatchID,
					"attempt", attempt+1,
				)
				return
			}
			slog.Warn("webhook delivery failed",
				"url", endpoint,
				"event", event.Type,
				"batch_id", event.BatchID,
				"attempt", attempt+1,
				"error", err,
			)
			if errors.Is(err, fetcher.ErrBlockedAddress) {
				return
			}
		}
		slog.Error("webhook delivery exhausted all retries",
			"url", endpoint,
			"event", event.Type,
			"batch_id", event.BatchID,
		)
	}()
}

// Wait blocks until all background deliveries have finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
