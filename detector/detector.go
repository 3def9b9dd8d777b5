// Package detector extracts compliance evidence from a page's HTML.
package detector

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/use-agent/complyscan/models"
)

// Detector applies a RuleSet to HTML documents. It holds no per-call state
// and is safe for concurrent use.
type Detector struct {
	rules *RuleSet
}

// New creates a Detector. A nil rules uses DefaultRules.
func New(rules *RuleSet) *Detector {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Detector{rules: rules}
}

// Rules returns the rule set in use.
func (d *Detector) Rules() *RuleSet { return d.rules }

// Detect analyses rawHTML fetched from baseURL. Relative links are resolved
// against baseURL.
//
// Empty input or input without markup yields an EMPTY_CONTENT error.
// A document that cannot be analysed yields degraded Findings flagged with
// models.QualityParseFailed rather than an error.
func (d *Detector) Detect(rawHTML, baseURL string) (f *models.Findings, err error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, models.NewScanError(models.ErrKindEmptyContent, "document is empty", nil)
	}
	if !strings.Contains(rawHTML, "<") {
		return nil, models.NewScanError(models.ErrKindEmptyContent, "document contains no markup", nil)
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("detector: analysis aborted", "url", baseURL, "panic", r)
			f, err = degradedFindings(), nil
		}
	}()

	doc, perr := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if perr != nil || len(doc.Nodes) == 0 {
		slog.Warn("detector: parse failed", "url", baseURL, "error", perr)
		return degradedFindings(), nil
	}

	base, _ := url.Parse(baseURL)
	text := visibleText(doc.Nodes[0])

	return &models.Findings{
		ConsentBanner: d.detectConsent(doc, text),
		PrivacyPolicy: d.detectPolicy(doc, base),
		ContactInfo:   d.detectContact(doc, text, base),
		Trackers:      d.detectTrackers(doc, base),
		DataQuality:   []string{},
	}, nil
}

func degradedFindings() *models.Findings {
	return &models.Findings{
		ConsentBanner: models.ConsentFinding{MatchedTerms: []string{}},
		Trackers:      models.TrackerFinding{MatchedDomains: []string{}, Matches: []models.TrackerMatch{}},
		DataQuality:   []string{models.QualityParseFailed},
	}
}

func (d *Detector) detectConsent(doc *goquery.Document, text string) models.ConsentFinding {
	var matched []string
	for _, term := range d.rules.ConsentTerms {
		if strings.Contains(text, term) {
			matched = append(matched, term)
		}
	}

	attrHits := make(map[string]bool)
	doc.Find("[id], [class]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		class, _ := s.Attr("class")
		combined := strings.ToLower(id + " " + class)
		if strings.TrimSpace(combined) == "" {
			return
		}
		for _, term := range d.rules.ConsentAttrTerms {
			if strings.Contains(combined, term) {
				attrHits[term] = true
			}
		}
	})
	for _, term := range d.rules.ConsentAttrTerms {
		if attrHits[term] {
			matched = append(matched, "attr:"+term)
		}
	}

	root := doc.Nodes[0]
	for _, rule := range d.rules.ConsentSelectors {
		if cascadia.Query(root, rule.Sel) != nil {
			matched = append(matched, "selector:"+rule.Source)
		}
	}

	if matched == nil {
		matched = []string{}
	}
	return models.ConsentFinding{Present: len(matched) > 0, MatchedTerms: matched}
}

func (d *Detector) detectPolicy(doc *goquery.Document, base *url.URL) models.PolicyFinding {
	var finding models.PolicyFinding

	doc.Find(`a[href], link[rel="privacy-policy"][href]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		hrefLower := strings.ToLower(strings.TrimSpace(href))
		if strings.HasPrefix(hrefLower, "mailto:") || strings.HasPrefix(hrefLower, "tel:") {
			return true
		}

		rel, _ := s.Attr("rel")
		label := linkLabel(s)
		if !strings.EqualFold(rel, "privacy-policy") &&
			!containsAny(label, d.rules.PrivacyKeywords) &&
			!containsAny(hrefLower, d.rules.PrivacyKeywords) {
			return true
		}

		finding.Present = true
		if abs := resolveHTTP(base, href); abs != "" {
			finding.URL = abs
			return false
		}
		return true
	})

	return finding
}

func (d *Detector) detectContact(doc *goquery.Document, text string, base *url.URL) models.ContactFinding {
	var finding models.ContactFinding

	for _, m := range d.rules.Email.FindAllString(text, -1) {
		if !looksLikeAsset(m) {
			finding.EmailFound = true
			break
		}
	}
	for _, re := range d.rules.Phone {
		if re.MatchString(text) {
			finding.PhoneFound = true
			break
		}
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		hrefLower := strings.ToLower(strings.TrimSpace(href))
		switch {
		case strings.HasPrefix(hrefLower, "mailto:"):
			if len(hrefLower) > len("mailto:") {
				finding.EmailFound = true
			}
			return
		case strings.HasPrefix(hrefLower, "tel:"):
			if len(hrefLower) > len("tel:") {
				finding.PhoneFound = true
			}
			return
		}

		if finding.ContactPageURL != "" {
			return
		}
		if containsAny(linkLabel(s), d.rules.ContactKeywords) || containsAny(hrefLower, d.rules.ContactKeywords) {
			finding.ContactPageURL = resolveHTTP(base, href)
		}
	})

	return finding
}

func (d *Detector) detectTrackers(doc *goquery.Document, base *url.URL) models.TrackerFinding {
	found := make(map[string]bool)

	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		host := hostOf(base, src)
		if host == "" {
			return
		}
		for _, t := range d.rules.Trackers {
			if domainMatches(host, t.Domain) {
				found[t.Domain] = true
				break
			}
		}
	})

	doc.Find("script:not([src])").Each(func(_ int, s *goquery.Selection) {
		body := strings.ToLower(s.Text())
		if body == "" {
			return
		}
		for _, t := range d.rules.Trackers {
			if strings.Contains(body, t.Domain) {
				found[t.Domain] = true
			}
		}
	})

	var siteHost string
	if base != nil {
		siteHost = strings.ToLower(base.Hostname())
	}

	finding := models.TrackerFinding{MatchedDomains: []string{}, Matches: []models.TrackerMatch{}}
	for _, t := range d.rules.Trackers {
		if !found[t.Domain] {
			continue
		}
		// A site's own analytics domain is first-party.
		if siteHost != "" && domainMatches(siteHost, t.Domain) {
			continue
		}
		finding.MatchedDomains = append(finding.MatchedDomains, t.Domain)
		finding.Matches = append(finding.Matches, models.TrackerMatch{Domain: t.Domain, Category: t.Category})
	}
	finding.Count = len(finding.MatchedDomains)
	return finding
}

// visibleText returns the lowercased text content of n, skipping elements
// whose content is never rendered as text.
func visibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template", "svg", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.ToLower(strings.Join(strings.Fields(b.String()), " "))
}

func linkLabel(s *goquery.Selection) string {
	title, _ := s.Attr("title")
	aria, _ := s.Attr("aria-label")
	return strings.ToLower(strings.Join(strings.Fields(s.Text()+" "+title+" "+aria), " "))
}

func containsAny(s string, terms []string) bool {
	if s == "" {
		return false
	}
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// resolveHTTP resolves href against base and returns it only if the result
// is an absolute http(s) URL.
func resolveHTTP(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if (ref.Scheme != "http" && ref.Scheme != "https") || ref.Host == "" {
		return ""
	}
	return ref.String()
}

func hostOf(base *url.URL, src string) string {
	ref, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	return strings.ToLower(ref.Hostname())
}

// domainMatches reports whether host is domain or a subdomain of it.
func domainMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

var assetSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".avif"}

// looksLikeAsset filters retina image names such as logo@2x.png that the
// email pattern would otherwise accept.
func looksLikeAsset(s string) bool {
	lower := strings.ToLower(s)
	for _, suf := range assetSuffixes {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}
