package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights are the maximum points per category. They must sum to 100.
type Weights struct {
	ConsentBanner int `yaml:"consent_banner"`
	PrivacyPolicy int `yaml:"privacy_policy"`
	ContactInfo   int `yaml:"contact_info"`
	Trackers      int `yaml:"trackers"`
}

// Sum returns the total of all category weights.
func (w Weights) Sum() int {
	return w.ConsentBanner + w.PrivacyPolicy + w.ContactInfo + w.Trackers
}

// GradeThresholds are the inclusive lower bounds of grades A through D.
// Anything below D is F.
type GradeThresholds struct {
	A int `yaml:"a"`
	B int `yaml:"b"`
	C int `yaml:"c"`
	D int `yaml:"d"`
}

// StatusThresholds are the inclusive lower bounds of the compliance statuses.
type StatusThresholds struct {
	Compliant        int `yaml:"compliant"`
	NeedsImprovement int `yaml:"needs_improvement"`
}

// TrackerBand awards Fraction of the tracker weight when the tracker count
// is at least MinCount. Bands are ordered by MinCount and the last band
// whose MinCount is reached wins.
type TrackerBand struct {
	MinCount int     `yaml:"min_count"`
	Fraction float64 `yaml:"fraction"`
}

// DefaultTrackerBands: 0 trackers 100%, 1-3 70%, 4-6 40%, 7+ 20%.
func DefaultTrackerBands() []TrackerBand {
	return []TrackerBand{
		{MinCount: 0, Fraction: 1.0},
		{MinCount: 1, Fraction: 0.7},
		{MinCount: 4, Fraction: 0.4},
		{MinCount: 7, Fraction: 0.2},
	}
}

// ScoringConfig is the declarative scoring model.
type ScoringConfig struct {
	Weights      Weights          `yaml:"weights"`
	Grades       GradeThresholds  `yaml:"grades"`
	Status       StatusThresholds `yaml:"status"`
	TrackerBands []TrackerBand    `yaml:"tracker_bands"`
}

// TrackerRule adds a tracking domain to the built-in table.
type TrackerRule struct {
	Domain   string `yaml:"domain"`
	Category string `yaml:"category"`
}

// DetectionConfig extends the built-in detection rules. Entries are
// appended after the defaults, so built-in ordering is preserved.
type DetectionConfig struct {
	ConsentTerms     []string      `yaml:"consent_terms"`
	ConsentSelectors []string      `yaml:"consent_selectors"`
	PrivacyKeywords  []string      `yaml:"privacy_keywords"`
	ContactKeywords  []string      `yaml:"contact_keywords"`
	Trackers         []TrackerRule `yaml:"trackers"`
}

type rulesFile struct {
	Scoring   ScoringConfig   `yaml:"scoring"`
	Detection DetectionConfig `yaml:"detection"`
}

// LoadRules overlays the YAML file at path onto cfg.Scoring and
// cfg.Detection. Keys absent from the file keep their current values.
func LoadRules(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}
	return applyRules(cfg, data)
}

func applyRules(cfg *Config, data []byte) error {
	rf := rulesFile{Scoring: cfg.Scoring, Detection: cfg.Detection}
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return fmt.Errorf("parse rules file: %w", err)
	}
	cfg.Scoring = rf.Scoring
	cfg.Detection = rf.Detection
	return nil
}
