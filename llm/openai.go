// Package llm summarizes privacy policies through an OpenAI-compatible
// chat completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/use-agent/complyscan/cleaner"
	"github.com/use-agent/complyscan/config"
	"github.com/use-agent/complyscan/models"
)

// Client is a lightweight OpenAI-compatible client.
// It uses net/http directly.
type Client struct {
	httpClient *http.Client
	cfg        config.SummaryConfig
}

// NewClient creates a Client. Pass a nil httpClient to get one bounded by
// cfg.Timeout.
func NewClient(cfg config.SummaryConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{httpClient: httpClient, cfg: cfg}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.cfg.APIKey != "" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

const systemPrompt = `You are a privacy compliance expert specializing in GDPR and CCPA. ` +
	`You review website privacy policies and give concise, practical assessments.`

// Summarize asks the model for a GDPR/CCPA compliance review of policyText.
// Failures are returned as AI_SERVICE_ERROR.
func (c *Client) Summarize(ctx context.Context, policyText string) (string, error) {
	if !c.Enabled() {
		return "", models.NewScanError(models.ErrKindAIService, "summarizer is not configured", nil)
	}

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(policyText)},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	slog.Debug("llm: requesting policy summary",
		"model", c.cfg.Model,
		"estimated_tokens", cleaner.EstimateTokens(policyText),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", models.NewScanError(models.ErrKindAIService, "summary request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", models.NewScanError(models.ErrKindAIService, "failed to read summary response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyLLMError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", models.NewScanError(models.ErrKindAIService, "failed to parse summary response", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", models.NewScanError(models.ErrKindAIService, "model returned no choices", nil)
	}

	summary := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if summary == "" {
		return "", models.NewScanError(models.ErrKindAIService, "model returned an empty summary", nil)
	}

	slog.Debug("llm: summary received", "total_tokens", chatResp.Usage.TotalTokens)
	return summary, nil
}

func buildUserPrompt(policyText string) string {
	return fmt.Sprintf(`Analyze the following privacy policy for GDPR and CCPA compliance.

Structure your answer with these sections:
1. Compliance Summary: overall assessment in two or three sentences.
2. Strengths: what the policy does well.
3. Gaps: missing or unclear disclosures (lawful basis, data subject rights, retention, transfers, opt-out of sale).
4. Recommendations: concrete changes, most important first.
5. Risk Level: Low, Medium or High, with a one-line reason.

Privacy policy:
%s`, policyText)
}

// classifyLLMError maps provider status codes to error messages.
func classifyLLMError(statusCode int, body []byte) *models.ScanError {
	var errResp chatErrorResponse
	msg := "summary API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.NewScanError(models.ErrKindAIService, "summary API rejected credentials: "+msg, nil)
	case http.StatusTooManyRequests:
		return models.NewScanError(models.ErrKindAIService, "summary API rate limited: "+msg, nil)
	default:
		return models.NewScanError(models.ErrKindAIService, fmt.Sprintf("summary API returned %d: %s", statusCode, msg), nil)
	}
}
