// Package scorer turns detection findings into a weighted compliance score.
package scorer

import (
	"math"

	"github.com/use-agent/complyscan/config"
	"github.com/use-agent/complyscan/models"
)

// Score computes the per-category points, total, grade and status for f.
//
// Consent banner and privacy policy are all-or-nothing. Contact info awards
// half its weight per sub-signal (email, phone). Trackers award the band
// fraction of their weight selected by the tracker count.
func Score(f *models.Findings, cfg config.ScoringConfig) models.ScoreBreakdown {
	w := cfg.Weights
	points := make(map[string]float64, len(models.Categories))

	points[models.CategoryConsentBanner] = 0
	if f.ConsentBanner.Present {
		points[models.CategoryConsentBanner] = float64(w.ConsentBanner)
	}

	points[models.CategoryPrivacyPolicy] = 0
	if f.PrivacyPolicy.Present {
		points[models.CategoryPrivacyPolicy] = float64(w.PrivacyPolicy)
	}

	half := float64(w.ContactInfo) / 2
	contact := 0.0
	if f.ContactInfo.EmailFound {
		contact += half
	}
	if f.ContactInfo.PhoneFound {
		contact += half
	}
	points[models.CategoryContactInfo] = contact

	points[models.CategoryTrackers] = float64(w.Trackers) * TrackerFraction(f.Trackers.Count, cfg.TrackerBands)

	sum := 0.0
	for _, p := range points {
		sum += p
	}
	total := clamp(int(math.Round(sum)), 0, 100)

	return models.ScoreBreakdown{
		Points: points,
		Total:  total,
		Grade:  Grade(total, cfg.Grades),
		Status: Status(total, cfg.Status),
	}
}

// TrackerFraction returns the fraction of the tracker weight awarded for
// count trackers. Bands are lower-inclusive; with no matching band the
// result is 0.
func TrackerFraction(count int, bands []config.TrackerBand) float64 {
	frac := 0.0
	for _, b := range bands {
		if count >= b.MinCount {
			frac = b.Fraction
		}
	}
	return frac
}

// Grade maps a total score to a letter grade.
func Grade(total int, g config.GradeThresholds) string {
	switch {
	case total >= g.A:
		return "A"
	case total >= g.B:
		return "B"
	case total >= g.C:
		return "C"
	case total >= g.D:
		return "D"
	default:
		return "F"
	}
}

// Status maps a total score to a compliance status.
func Status(total int, s config.StatusThresholds) models.ComplianceStatus {
	switch {
	case total >= s.Compliant:
		return models.StatusCompliant
	case total >= s.NeedsImprovement:
		return models.StatusNeedsImprovement
	default:
		return models.StatusNonCompliant
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
