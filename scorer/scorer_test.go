package scorer

import (
	"math"
	"testing"

	"github.com/use-agent/complyscan/config"
	"github.com/use-agent/complyscan/models"
)

func defaultScoring() config.ScoringConfig {
	return config.Load().Scoring
}

func TestScore_EndToEndExample(t *testing.T) {
	f := &models.Findings{
		ConsentBanner: models.ConsentFinding{Present: true, MatchedTerms: []string{"cookie"}},
		PrivacyPolicy: models.PolicyFinding{Present: true, URL: "https://example.com/privacy"},
		ContactInfo:   models.ContactFinding{EmailFound: true},
		Trackers:      models.TrackerFinding{Count: 1, MatchedDomains: []string{"google-analytics.com"}},
	}

	b := Score(f, defaultScoring())

	want := map[string]float64{
		models.CategoryConsentBanner: 30,
		models.CategoryPrivacyPolicy: 30,
		models.CategoryContactInfo:   10,
		models.CategoryTrackers:      14,
	}
	for k, v := range want {
		if math.Abs(b.Points[k]-v) > 1e-9 {
			t.Errorf("Points[%s] = %v, want %v", k, b.Points[k], v)
		}
	}
	if b.Total != 84 {
		t.Errorf("Total = %d, want 84", b.Total)
	}
	if b.Grade != "B" {
		t.Errorf("Grade = %s, want B", b.Grade)
	}
	if b.Status != models.StatusCompliant {
		t.Errorf("Status = %s, want Compliant", b.Status)
	}
}

func TestScore_Extremes(t *testing.T) {
	cfg := defaultScoring()

	empty := Score(&models.Findings{}, cfg)
	// No trackers still earns the full tracker weight.
	if empty.Total != 20 || empty.Grade != "F" || empty.Status != models.StatusNonCompliant {
		t.Errorf("empty findings = %+v", empty)
	}

	full := Score(&models.Findings{
		ConsentBanner: models.ConsentFinding{Present: true},
		PrivacyPolicy: models.PolicyFinding{Present: true},
		ContactInfo:   models.ContactFinding{EmailFound: true, PhoneFound: true},
	}, cfg)
	if full.Total != 100 || full.Grade != "A" {
		t.Errorf("full findings = %+v", full)
	}
}

func TestTrackerPoints_Bands(t *testing.T) {
	cfg := defaultScoring()
	tests := []struct {
		count int
		want  float64
	}{
		{0, 20}, {1, 14}, {3, 14}, {4, 8}, {6, 8}, {7, 4}, {50, 4},
	}
	for _, tt := range tests {
		f := &models.Findings{Trackers: models.TrackerFinding{Count: tt.count}}
		got := Score(f, cfg).Points[models.CategoryTrackers]
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("count %d: tracker points = %v, want %v", tt.count, got, tt.want)
		}
	}
}

func TestGradeAndStatus_Boundaries(t *testing.T) {
	cfg := defaultScoring()
	grades := map[int]string{100: "A", 90: "A", 89: "B", 80: "B", 79: "C", 70: "C", 69: "D", 60: "D", 59: "F", 0: "F"}
	for total, want := range grades {
		if got := Grade(total, cfg.Grades); got != want {
			t.Errorf("Grade(%d) = %s, want %s", total, got, want)
		}
	}

	statuses := map[int]models.ComplianceStatus{
		80: models.StatusCompliant,
		79: models.StatusNeedsImprovement,
		60: models.StatusNeedsImprovement,
		59: models.StatusNonCompliant,
	}
	for total, want := range statuses {
		if got := Status(total, cfg.Status); got != want {
			t.Errorf("Status(%d) = %s, want %s", total, got, want)
		}
	}
}

func TestScore_TotalIsRoundedSumWithinRange(t *testing.T) {
	cfg := defaultScoring()
	// Odd contact weight produces fractional points.
	cfg.Weights = config.Weights{ConsentBanner: 33, PrivacyPolicy: 33, ContactInfo: 17, Trackers: 17}

	for mask := 0; mask < 16; mask++ {
		for _, n := range []int{0, 2, 5, 9} {
			f := &models.Findings{
				ConsentBanner: models.ConsentFinding{Present: mask&1 != 0},
				PrivacyPolicy: models.PolicyFinding{Present: mask&2 != 0},
				ContactInfo:   models.ContactFinding{EmailFound: mask&4 != 0, PhoneFound: mask&8 != 0},
				Trackers:      models.TrackerFinding{Count: n},
			}
			b := Score(f, cfg)

			sum := 0.0
			for _, p := range b.Points {
				sum += p
			}
			if b.Total != int(math.Round(sum)) {
				t.Errorf("mask %d trackers %d: total %d != round(%v)", mask, n, b.Total, sum)
			}
			if b.Total < 0 || b.Total > 100 {
				t.Errorf("total %d out of range", b.Total)
			}
			if b.Grade != Grade(b.Total, cfg.Grades) || b.Status != Status(b.Total, cfg.Status) {
				t.Errorf("grade/status inconsistent with total %d", b.Total)
			}
		}
	}
}

func TestScore_CustomBands(t *testing.T) {
	cfg := defaultScoring()
	cfg.TrackerBands = []config.TrackerBand{{MinCount: 0, Fraction: 1}, {MinCount: 2, Fraction: 0}}

	one := Score(&models.Findings{Trackers: models.TrackerFinding{Count: 1}}, cfg)
	two := Score(&models.Findings{Trackers: models.TrackerFinding{Count: 2}}, cfg)
	if one.Points[models.CategoryTrackers] != 20 || two.Points[models.CategoryTrackers] != 0 {
		t.Errorf("custom bands: one=%v two=%v", one.Points, two.Points)
	}
}
