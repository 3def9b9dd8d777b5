package scanner

import (
	"context"

	"github.com/use-agent/complyscan/models"
)

// HistoryStore persists completed scans. *postgres.Store and *redis.Store
// implement it.
type HistoryStore interface {
	Save(ctx context.Context, r *models.ScanResult) error
	History(ctx context.Context, target string, limit int) ([]*models.ScanResult, error)
	Name() string
}

// NoHistory is the HistoryStore used when persistence is not configured.
type NoHistory struct{}

func (NoHistory) Save(context.Context, *models.ScanResult) error { return nil }

func (NoHistory) History(context.Context, string, int) ([]*models.ScanResult, error) {
	return []*models.ScanResult{}, nil
}

func (NoHistory) Name() string { return "none" }

// Summarizer turns privacy-policy text into a narrative. *llm.Client
// implements it.
type Summarizer interface {
	Enabled() bool
	Summarize(ctx context.Context, policyText string) (string, error)
}

// NoSummarizer is the Summarizer used when no AI service is configured.
type NoSummarizer struct{}

func (NoSummarizer) Enabled() bool { return false }

func (NoSummarizer) Summarize(context.Context, string) (string, error) { return "", nil }
