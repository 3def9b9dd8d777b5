package main

import (
	"fmt"
	"strings"

	"github.com/use-agent/complyscan/models"
)

func errorText(fallback string, e *models.ErrorDetail) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// formatResult renders one scan as a short report.
func formatResult(r *models.ScanResult, cacheStatus string) string {
	var sb strings.Builder
	f := r.Findings

	fmt.Fprintf(&sb, "Site: %s\n", r.Target)
	fmt.Fprintf(&sb, "Score: %d/100 (grade %s, %s)\n", r.Breakdown.Total, r.Breakdown.Grade, r.Breakdown.Status)
	fmt.Fprintf(&sb, "Scanned: %s", r.ScannedAt.Format("2006-01-02 15:04 MST"))
	if cacheStatus == "hit" {
		sb.WriteString(" (cached)")
	}
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "- Cookie consent banner: %s", yesNo(f.ConsentBanner.Present))
	if len(f.ConsentBanner.MatchedTerms) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(f.ConsentBanner.MatchedTerms, ", "))
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "- Privacy policy: %s", yesNo(f.PrivacyPolicy.Present))
	if f.PrivacyPolicy.URL != "" {
		fmt.Fprintf(&sb, " (%s)", f.PrivacyPolicy.URL)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "- Contact: email %s, phone %s\n", yesNo(f.ContactInfo.EmailFound), yesNo(f.ContactInfo.PhoneFound))

	fmt.Fprintf(&sb, "- Trackers: %d", f.Trackers.Count)
	if len(f.Trackers.Matches) > 0 {
		parts := make([]string, 0, len(f.Trackers.Matches))
		for _, m := range f.Trackers.Matches {
			parts = append(parts, fmt.Sprintf("%s [%s]", m.Domain, m.Category))
		}
		fmt.Fprintf(&sb, " (%s)", strings.Join(parts, ", "))
	}
	sb.WriteString("\n")

	if len(f.DataQuality) > 0 {
		fmt.Fprintf(&sb, "- Data quality: %s\n", strings.Join(f.DataQuality, ", "))
	}
	if r.AISummary != "" {
		sb.WriteString("\nPolicy summary:\n")
		sb.WriteString(r.AISummary)
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatBatch renders a batch as one line per input.
func formatBatch(b *models.BatchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Batch %s: %s (%d ok, %d failed of %d)\n\n", b.ID, b.Status, b.Succeeded, b.Failed, b.Total)
	for i, o := range b.Outcomes {
		if o.Result != nil {
			fmt.Fprintf(&sb, "[%d] %s: %d/100 grade %s (%s)\n", i+1, o.URL,
				o.Result.Breakdown.Total, o.Result.Breakdown.Grade, o.Result.Breakdown.Status)
			continue
		}
		fmt.Fprintf(&sb, "[%d] %s: FAILED %s\n", i+1, o.URL, errorText("unknown error", o.Error))
	}
	return sb.String()
}

// formatHistory renders past results newest first.
func formatHistory(target string, results []*models.ScanResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No scan history for %s.", target)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "History for %s (%d results):\n\n", target, len(results))
	for _, r := range results {
		fmt.Fprintf(&sb, "%s  %3d/100  %s  %s\n",
			r.ScannedAt.Format("2006-01-02 15:04"), r.Breakdown.Total, r.Breakdown.Grade, r.Breakdown.Status)
	}
	return sb.String()
}
