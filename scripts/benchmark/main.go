// Command benchmark measures cold and cached scan latency against a running
// complyscan API and checks that repeated scans of a site score the same.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/use-agent/complyscan/models"
)

var (
	apiURL = flag.String("api-url", "http://localhost:8080", "complyscan API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of forced (cold) scans per site")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Sites covering a spread of consent and tracker setups.
var sites = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Docs", "https://go.dev"},
	{"News", "https://www.bbc.com"},
	{"Retail", "https://www.ikea.com"},
	{"Code host", "https://github.com"},
}

type runResult struct {
	Run        int    `json:"run"`
	Cached     bool   `json:"cached"`
	DurationMs int64  `json:"duration_ms"`
	Score      int    `json:"score"`
	Grade      string `json:"grade"`
	Trackers   int    `json:"trackers"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type siteResult struct {
	URL         string      `json:"url"`
	Label       string      `json:"label"`
	Runs        []runResult `json:"runs"`
	AvgColdMs   float64     `json:"avg_cold_ms"`
	CachedMs    int64       `json:"cached_ms"`
	ScoreStable bool        `json:"score_stable"`
}

type benchmarkReport struct {
	Timestamp  string       `json:"timestamp"`
	APIURL     string       `json:"api_url"`
	RunsPerURL int          `json:"runs_per_url"`
	Results    []siteResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== complyscan benchmark ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/site: %d cold + 1 cached\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 120 * time.Second}
	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, s := range sites {
		fmt.Printf("Benchmarking [%s] %s ...\n", s.Label, s.URL)
		sr := siteResult{URL: s.URL, Label: s.Label}

		for i := 1; i <= *runs; i++ {
			rr := scanOnce(client, s.URL, true)
			rr.Run = i
			printRun(rr)
			sr.Runs = append(sr.Runs, rr)
		}
		warm := scanOnce(client, s.URL, false)
		warm.Run = *runs + 1
		printRun(warm)
		sr.Runs = append(sr.Runs, warm)

		summarize(&sr)
		report.Results = append(report.Results, sr)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func scanOnce(client *http.Client, url string, force bool) runResult {
	var rr runResult

	body, err := json.Marshal(models.ScanRequest{URL: url, Force: force})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}
	req, err := http.NewRequest(http.MethodPost, *apiURL+"/api/v1/scan", bytes.NewReader(body))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var sr models.ScanResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.DurationMs = sr.DurationMs
	rr.Cached = sr.CacheStatus == "hit"
	if sr.Error != nil {
		rr.Error = fmt.Sprintf("[%s] %s", sr.Error.Code, sr.Error.Message)
	}
	if sr.Success && sr.Result != nil {
		rr.Success = true
		rr.Score = sr.Result.Breakdown.Total
		rr.Grade = sr.Result.Breakdown.Grade
		rr.Trackers = sr.Result.Findings.Trackers.Count
	}
	return rr
}

func printRun(rr runResult) {
	kind := "cold"
	if rr.Cached {
		kind = "cached"
	}
	if rr.Success {
		fmt.Printf("  Run %d (%s) ... OK  %dms  score %d (%s)\n", rr.Run, kind, rr.DurationMs, rr.Score, rr.Grade)
		return
	}
	fmt.Printf("  Run %d (%s) ... FAILED: %s\n", rr.Run, kind, rr.Error)
}

// summarize fills the per-site aggregates from the runs.
func summarize(sr *siteResult) {
	var (
		cold  int
		total int64
		score = -1
	)
	sr.ScoreStable = true
	for _, r := range sr.Runs {
		if !r.Success {
			continue
		}
		if score == -1 {
			score = r.Score
		} else if r.Score != score {
			sr.ScoreStable = false
		}
		if r.Cached {
			sr.CachedMs = r.DurationMs
			continue
		}
		cold++
		total += r.DurationMs
	}
	if cold > 0 {
		sr.AvgColdMs = float64(total) / float64(cold)
	}
	if score == -1 {
		sr.ScoreStable = false
	}
}

func printTable(results []siteResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Site\tAvg Cold\tCached\tScore\tStable\n")
	fmt.Fprintf(w, "────\t────────\t──────\t─────\t──────\n")

	for _, r := range results {
		last := lastSuccess(r.Runs)
		if last == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}
		fmt.Fprintf(w, "%s\t%dms\t%dms\t%d %s\t%v\n",
			truncateURL(r.URL, 40),
			int64(r.AvgColdMs),
			r.CachedMs,
			last.Score, last.Grade,
			r.ScoreStable,
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func lastSuccess(runs []runResult) *runResult {
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].Success {
			return &runs[i]
		}
	}
	return nil
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
