package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/complyscan/models"
)

func main() {
	apiURL := os.Getenv("COMPLYSCAN_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("COMPLYSCAN_API_KEY")

	s := server.NewMCPServer(
		"complyscan",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scanSiteTool := mcp.NewTool("scan_site",
		mcp.WithDescription("Scan a website's home page for GDPR/CCPA compliance signals (cookie consent banner, privacy policy link, contact details, third-party trackers) and return a 0-100 score with a letter grade."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The site to scan, e.g. 'example.com' or 'https://example.com'"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Ignore any cached result and scan again"),
		),
	)
	s.AddTool(scanSiteTool, handleScanSite(apiURL, apiKey))

	batchScanTool := mcp.NewTool("batch_scan",
		mcp.WithDescription("Scan several websites at once. Each site gets its own result or error; one failing site does not affect the others."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of sites to scan (the server enforces a maximum batch size)"),
		),
	)
	s.AddTool(batchScanTool, handleBatchScan(apiURL, apiKey))

	historyTool := mcp.NewTool("scan_history",
		mcp.WithDescription("List past scan results for a site, newest first. Requires a history backend on the server."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The site whose history to list"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: server setting)"),
		),
	)
	s.AddTool(historyTool, handleScanHistory(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiDo sends a request to the complyscan API and returns the response body.
// payload, when non-nil, is sent as JSON.
func apiDo(ctx context.Context, client *http.Client, method, endpoint, apiKey string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleScanSite(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := models.ScanRequest{URL: target, Force: request.GetBool("force", false)}
		respBody, err := apiDo(ctx, client, http.MethodPost, apiURL+"/api/v1/scan", apiKey, payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scan request failed: %v", err)), nil
		}

		var resp models.ScanResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success || resp.Result == nil {
			return mcp.NewToolResultError(errorText("scan failed", resp.Error)), nil
		}

		return mcp.NewToolResultText(formatResult(resp.Result, resp.CacheStatus)), nil
	}
}

func handleBatchScan(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		respBody, err := apiDo(ctx, client, http.MethodPost, apiURL+"/api/v1/batch", apiKey, models.BatchRequest{URLs: urls})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}

		var envelope struct {
			models.BatchResult
			Error *models.ErrorDetail `json:"error"`
		}
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch response: %v", err)), nil
		}
		if envelope.Error != nil {
			return mcp.NewToolResultError(errorText("batch failed", envelope.Error)), nil
		}

		return mcp.NewToolResultText(formatBatch(&envelope.BatchResult)), nil
	}
}

func handleScanHistory(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		q := url.Values{"url": {target}}
		if limit := request.GetInt("limit", 0); limit > 0 {
			q.Set("limit", fmt.Sprint(limit))
		}

		respBody, err := apiDo(ctx, client, http.MethodGet, apiURL+"/api/v1/history?"+q.Encode(), apiKey, nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("history request failed: %v", err)), nil
		}

		var resp models.HistoryResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse history response: %v", err)), nil
		}
		if resp.Error != nil {
			return mcp.NewToolResultError(errorText("history failed", resp.Error)), nil
		}

		return mcp.NewToolResultText(formatHistory(target, resp.Results)), nil
	}
}
