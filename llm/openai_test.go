package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/complyscan/config"
	"github.com/use-agent/complyscan/models"
)

func testSummaryConfig(baseURL string) config.SummaryConfig {
	return config.SummaryConfig{
		APIKey:         "sk-test",
		Model:          "gpt-4o-mini",
		BaseURL:        baseURL,
		Temperature:    0.2,
		MaxTokens:      500,
		Timeout:        5 * time.Second,
		MaxPolicyChars: 8000,
	}
}

func TestSummarize_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != "gpt-4o-mini" || len(req.Messages) != 2 {
			t.Errorf("request = %+v", req)
		}
		if !strings.Contains(req.Messages[1].Content, "We collect email addresses") {
			t.Error("policy text missing from prompt")
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Compliance Summary: fine.  "}}],"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	c := NewClient(testSummaryConfig(srv.URL+"/"), nil)
	got, err := c.Summarize(context.Background(), "We collect email addresses.")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "Compliance Summary: fine." {
		t.Errorf("summary = %q", got)
	}
}

func TestSummarize_ProviderErrors(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusUnauthorized, "rejected credentials"},
		{http.StatusTooManyRequests, "rate limited"},
		{http.StatusInternalServerError, "returned 500"},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
		}))

		c := NewClient(testSummaryConfig(srv.URL), nil)
		_, err := c.Summarize(context.Background(), "policy")
		srv.Close()

		if models.KindOf(err) != models.ErrKindAIService {
			t.Errorf("status %d: kind = %s, want AI_SERVICE_ERROR", tt.status, models.KindOf(err))
			continue
		}
		if !strings.Contains(err.Error(), tt.want) || !strings.Contains(err.Error(), "nope") {
			t.Errorf("status %d: error = %v", tt.status, err)
		}
	}
}

func TestSummarize_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(testSummaryConfig(srv.URL), nil).Summarize(context.Background(), "policy")
	if models.KindOf(err) != models.ErrKindAIService {
		t.Errorf("kind = %s, want AI_SERVICE_ERROR", models.KindOf(err))
	}
}

func TestSummarize_Disabled(t *testing.T) {
	cfg := testSummaryConfig("http://unused")
	cfg.APIKey = ""
	c := NewClient(cfg, nil)
	if c.Enabled() {
		t.Fatal("client without key should be disabled")
	}
	if _, err := c.Summarize(context.Background(), "policy"); models.KindOf(err) != models.ErrKindAIService {
		t.Errorf("kind = %s", models.KindOf(err))
	}
}
