package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/complyscan/models"
)

func TestObserveScan(t *testing.T) {
	m := New(nil)

	m.ObserveScan(false, time.Second, 84, nil)
	m.ObserveScan(true, 0, 84, nil)
	m.ObserveScan(false, 0, 0, models.NewScanError(models.ErrKindNetwork, "boom", errors.New("x")))

	body := scrape(t, m)
	for _, want := range []string{
		`complyscan_scans_total{kind="",outcome="success"} 1`,
		`complyscan_scans_total{kind="",outcome="cache_hit"} 1`,
		`complyscan_scans_total{kind="NETWORK_ERROR",outcome="error"} 1`,
		"complyscan_scan_duration_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestHandler_ExposesCacheStats(t *testing.T) {
	m := New(func() models.CacheStats { return models.CacheStats{Entries: 3, Hits: 7} })
	m.ObserveFetchAttempt("success")

	body := scrape(t, m)
	for _, want := range []string{
		"complyscan_cache_entries 3",
		"complyscan_cache_hits_total 7",
		`complyscan_fetch_attempts_total{result="success"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
