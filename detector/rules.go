package detector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"

	"github.com/use-agent/complyscan/config"
)

// RuleSet is the declarative detection table. Each category is an ordered
// list of rules; evidence is reported in rule order.
type RuleSet struct {
	// ConsentTerms are matched against the visible page text.
	ConsentTerms []string
	// ConsentAttrTerms are matched against id and class attributes of
	// container elements.
	ConsentAttrTerms []string
	// ConsentSelectors match known consent-platform containers.
	ConsentSelectors []SelectorRule

	// PrivacyKeywords are matched against link text and href.
	PrivacyKeywords []string
	// ContactKeywords locate a contact page link.
	ContactKeywords []string

	Email *regexp.Regexp
	Phone []*regexp.Regexp

	Trackers []Tracker
}

// SelectorRule is a compiled CSS selector with its source text as label.
type SelectorRule struct {
	Source string
	Sel    cascadia.Sel
}

var defaultConsentTerms = []string{
	"cookie",
	"consent",
	"gdpr",
	"privacy notice",
	"we use cookies",
	"accept cookies",
	"cookie policy",
	"cookie banner",
	"cookie settings",
	"manage preferences",
}

var defaultConsentAttrTerms = []string{
	"cookie",
	"consent",
	"gdpr",
	"cmp",
}

var defaultConsentSelectors = []string{
	"#onetrust-banner-sdk",
	"#onetrust-consent-sdk",
	"#CybotCookiebotDialog",
	"#cookie-law-info-bar",
	"#usercentrics-root",
	"#didomi-host",
	"#truste-consent-track",
	".cc-window",
	".cky-consent-container",
	".qc-cmp2-container",
	"[data-cookieconsent]",
}

var defaultPrivacyKeywords = []string{
	"privacy",
	"privacy policy",
	"privacy notice",
	"data protection",
	"data privacy",
	"privacy statement",
	"privacy center",
	"data policy",
	"gdpr",
	"ccpa",
	"politica de privacidad",
	"política de privacidad",
	"politique de confidentialite",
	"politique de confidentialité",
	"informativa privacy",
	"datenschutz",
	"privacyverklaring",
	"aviso de privacidad",
	"politica de privacidade",
	"política de privacidade",
}

var defaultContactKeywords = []string{
	"contact",
	"kontakt",
	"contacto",
	"contatti",
	"get in touch",
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// North American style and international forms with a leading plus.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:\+?1[\s.-]?)?\(?\b\d{3}\)?[\s.-]\d{3}[\s.-]\d{4}\b`),
		regexp.MustCompile(`\+\d{1,3}(?:[\s.-]?\(?\d{1,4}\)?){2,5}\b`),
	}
)

// DefaultRules returns the built-in rule set.
func DefaultRules() *RuleSet {
	sels := make([]SelectorRule, 0, len(defaultConsentSelectors))
	for _, s := range defaultConsentSelectors {
		sel, err := cascadia.Parse(s)
		if err != nil {
			panic(fmt.Sprintf("detector: bad built-in selector %q: %v", s, err))
		}
		sels = append(sels, SelectorRule{Source: s, Sel: sel})
	}
	return &RuleSet{
		ConsentTerms:     clone(defaultConsentTerms),
		ConsentAttrTerms: clone(defaultConsentAttrTerms),
		ConsentSelectors: sels,
		PrivacyKeywords:  clone(defaultPrivacyKeywords),
		ContactKeywords:  clone(defaultContactKeywords),
		Email:            emailPattern,
		Phone:            phonePatterns,
		Trackers:         append([]Tracker(nil), defaultTrackers...),
	}
}

// Extend returns a copy of r with cfg's entries appended. Duplicate
// entries are ignored, and invalid selectors are reported as errors.
func (r *RuleSet) Extend(cfg config.DetectionConfig) (*RuleSet, error) {
	out := *r
	out.ConsentTerms = appendUnique(clone(r.ConsentTerms), cfg.ConsentTerms)
	out.PrivacyKeywords = appendUnique(clone(r.PrivacyKeywords), cfg.PrivacyKeywords)
	out.ContactKeywords = appendUnique(clone(r.ContactKeywords), cfg.ContactKeywords)

	out.ConsentSelectors = append([]SelectorRule(nil), r.ConsentSelectors...)
	for _, s := range cfg.ConsentSelectors {
		sel, err := cascadia.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("consent selector %q: %w", s, err)
		}
		out.ConsentSelectors = append(out.ConsentSelectors, SelectorRule{Source: s, Sel: sel})
	}

	out.Trackers = append([]Tracker(nil), r.Trackers...)
	known := make(map[string]struct{}, len(out.Trackers))
	for _, t := range out.Trackers {
		known[t.Domain] = struct{}{}
	}
	for _, t := range cfg.Trackers {
		domain := strings.ToLower(strings.TrimSpace(t.Domain))
		if domain == "" {
			continue
		}
		if _, ok := known[domain]; ok {
			continue
		}
		known[domain] = struct{}{}
		category := t.Category
		if category == "" {
			category = CategoryAnalytics
		}
		out.Trackers = append(out.Trackers, Tracker{Domain: domain, Category: category})
	}
	return &out, nil
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}

func appendUnique(dst, extra []string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, s := range dst {
		seen[s] = struct{}{}
	}
	for _, s := range extra {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		dst = append(dst, s)
	}
	return dst
}
