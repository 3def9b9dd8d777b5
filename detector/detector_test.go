package detector

import (
	"strings"
	"testing"

	"github.com/use-agent/complyscan/config"
	"github.com/use-agent/complyscan/models"
)

const examplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Example</title>
  <script src="https://www.google-analytics.com/analytics.js"></script>
</head>
<body>
  <div id="cookie-banner">We use cookies to improve your experience.</div>
  <main><h1>Welcome</h1></main>
  <footer>
    <a href="/privacy">Privacy Policy</a>
    <p>Write to us: hello@example.com</p>
  </footer>
</body>
</html>`

func TestDetect_EndToEndExample(t *testing.T) {
	f, err := New(nil).Detect(examplePage, "https://example.com")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if !f.ConsentBanner.Present {
		t.Error("expected consent banner")
	}
	if len(f.ConsentBanner.MatchedTerms) == 0 || f.ConsentBanner.MatchedTerms[0] != "cookie" {
		t.Errorf("MatchedTerms = %v, want rule order starting with cookie", f.ConsentBanner.MatchedTerms)
	}
	if !f.PrivacyPolicy.Present || f.PrivacyPolicy.URL != "https://example.com/privacy" {
		t.Errorf("PrivacyPolicy = %+v", f.PrivacyPolicy)
	}
	if !f.ContactInfo.EmailFound || f.ContactInfo.PhoneFound {
		t.Errorf("ContactInfo = %+v", f.ContactInfo)
	}
	if f.Trackers.Count != 1 || f.Trackers.MatchedDomains[0] != "google-analytics.com" {
		t.Errorf("Trackers = %+v", f.Trackers)
	}
	if f.Trackers.Matches[0].Category != CategoryAnalytics {
		t.Errorf("category = %s", f.Trackers.Matches[0].Category)
	}
	if f.Degraded() {
		t.Error("findings should not be degraded")
	}
}

func TestDetect_EmptyContent(t *testing.T) {
	for _, in := range []string{"", "   \n\t", "just some words"} {
		_, err := New(nil).Detect(in, "https://example.com")
		if models.KindOf(err) != models.ErrKindEmptyContent {
			t.Errorf("Detect(%q) kind = %s, want EMPTY_CONTENT", in, models.KindOf(err))
		}
	}
}

func TestDetect_MalformedMarkupStillAnalysed(t *testing.T) {
	page := `<html><body><div class="consent-wrapper"><p>Accept cookies<a href="/privacy-policy">Privacy</div></p>`
	f, err := New(nil).Detect(page, "https://example.com")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !f.ConsentBanner.Present || !f.PrivacyPolicy.Present {
		t.Errorf("findings = %+v", f)
	}
}

func TestDetect_NothingPresent(t *testing.T) {
	page := `<html><body><h1>Plain page</h1><p>Nothing to see here.</p></body></html>`
	f, err := New(nil).Detect(page, "https://example.com")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if f.ConsentBanner.Present || f.PrivacyPolicy.Present || f.ContactInfo.EmailFound || f.ContactInfo.PhoneFound {
		t.Errorf("expected nothing, got %+v", f)
	}
	if f.Trackers.Count != 0 || f.Trackers.MatchedDomains == nil {
		t.Errorf("Trackers = %+v, want empty non-nil list", f.Trackers)
	}
	if f.ConsentBanner.MatchedTerms == nil {
		t.Error("MatchedTerms should be an empty list, not nil")
	}
}

func TestDetect_ConsentEvidenceSources(t *testing.T) {
	page := `<html><body><div id="onetrust-banner-sdk" class="otFlat"></div></body></html>`
	f, err := New(nil).Detect(page, "https://example.com")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !f.ConsentBanner.Present {
		t.Fatal("expected selector evidence")
	}
	want := "selector:#onetrust-banner-sdk"
	found := false
	for _, term := range f.ConsentBanner.MatchedTerms {
		if term == want {
			found = true
		}
	}
	if !found {
		t.Errorf("MatchedTerms = %v, want %q", f.ConsentBanner.MatchedTerms, want)
	}
}

func TestDetect_IgnoresScriptText(t *testing.T) {
	page := `<html><body><p>Hello</p><script>var cookie = "consent"; var mail = "x@example.com";</script></body></html>`
	f, err := New(nil).Detect(page, "https://example.com")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if f.ConsentBanner.Present {
		t.Errorf("script text must not count as consent evidence: %v", f.ConsentBanner.MatchedTerms)
	}
	if f.ContactInfo.EmailFound {
		t.Error("script text must not count as an email")
	}
}

func TestDetect_ContactSignals(t *testing.T) {
	page := `<html><body>
		<a href="mailto:team@example.org">Email</a>
		<a href="tel:+15551234567">Call</a>
		<a href="/contact-us">Contact us</a>
	</body></html>`
	f, err := New(nil).Detect(page, "https://example.com/about")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !f.ContactInfo.EmailFound || !f.ContactInfo.PhoneFound {
		t.Errorf("ContactInfo = %+v", f.ContactInfo)
	}
	if f.ContactInfo.ContactPageURL != "https://example.com/contact-us" {
		t.Errorf("ContactPageURL = %q", f.ContactInfo.ContactPageURL)
	}
}

func TestDetect_PhoneInText(t *testing.T) {
	for _, text := range []string{"Call us at (555) 123-4567", "Tel: +44 20 7946 0958"} {
		page := "<html><body><p>" + text + "</p></body></html>"
		f, err := New(nil).Detect(page, "https://example.com")
		if err != nil {
			t.Fatalf("Detect: %v", err)
		}
		if !f.ContactInfo.PhoneFound {
			t.Errorf("%q: expected phone", text)
		}
	}
}

func TestDetect_AssetNamesAreNotEmails(t *testing.T) {
	page := `<html><body><p>logo@2x.png</p></body></html>`
	f, err := New(nil).Detect(page, "https://example.com")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if f.ContactInfo.EmailFound {
		t.Error("image asset name should not count as an email")
	}
}

func TestDetect_TrackersDedupedInTableOrder(t *testing.T) {
	page := `<html><head>
		<script src="https://static.hotjar.com/c/hotjar.js"></script>
		<script src="//www.googletagmanager.com/gtm.js?id=GTM-X"></script>
		<script src="https://www.google-analytics.com/analytics.js"></script>
		<script src="https://www.google-analytics.com/plugins/ua/ec.js"></script>
		<script>(function(){ var s = "https://connect.facebook.net/en_US/fbevents.js"; })();</script>
	</head><body><p>hi</p></body></html>`
	f, err := New(nil).Detect(page, "https://shop.example.com")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	want := []string{"google-analytics.com", "googletagmanager.com", "facebook.net", "hotjar.com"}
	if strings.Join(f.Trackers.MatchedDomains, ",") != strings.Join(want, ",") {
		t.Errorf("MatchedDomains = %v, want %v", f.Trackers.MatchedDomains, want)
	}
	if f.Trackers.Count != len(want) {
		t.Errorf("Count = %d", f.Trackers.Count)
	}
}

func TestDetect_FirstPartyExcluded(t *testing.T) {
	page := `<html><head><script src="https://script.hotjar.com/modules.js"></script></head><body><p>hi</p></body></html>`
	f, err := New(nil).Detect(page, "https://www.hotjar.com")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if f.Trackers.Count != 0 {
		t.Errorf("first-party domain counted: %v", f.Trackers.MatchedDomains)
	}
}

func TestDetect_PolicyLinkVariants(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"localized text", `<a href="/legal/ds">Datenschutz</a>`, "https://example.com/legal/ds"},
		{"href keyword", `<a href="/gdpr">Your rights</a>`, "https://example.com/gdpr"},
		{"rel link", `<link rel="privacy-policy" href="https://example.com/pp">`, "https://example.com/pp"},
		{"skips mailto", `<a href="mailto:privacy@example.com">privacy team</a><a href="/privacy">Privacy</a>`, "https://example.com/privacy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := "<html><body>" + tt.body + "</body></html>"
			f, err := New(nil).Detect(page, "https://example.com")
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if !f.PrivacyPolicy.Present || f.PrivacyPolicy.URL != tt.want {
				t.Errorf("PrivacyPolicy = %+v, want %s", f.PrivacyPolicy, tt.want)
			}
		})
	}
}

func TestRuleSet_Extend(t *testing.T) {
	rules, err := DefaultRules().Extend(config.DetectionConfig{
		ConsentTerms:     []string{"Utilizamos Cookies"},
		ConsentSelectors: []string{"#my-cmp"},
		Trackers: []config.TrackerRule{
			{Domain: "Tracker.Example"},
			{Domain: "hotjar.com", Category: "analytics"},
		},
	})
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if len(rules.Trackers) != len(defaultTrackers)+1 {
		t.Errorf("duplicate tracker should be ignored, got %d entries", len(rules.Trackers))
	}
	if len(DefaultRules().Trackers) != len(defaultTrackers) {
		t.Error("Extend must not mutate the receiver")
	}

	page := `<html><head><script src="https://cdn.tracker.example/t.js"></script></head><body><div id="my-cmp"></div></body></html>`
	f, err := New(rules).Detect(page, "https://example.com")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if f.Trackers.Count != 1 || f.Trackers.Matches[0].Category != CategoryAnalytics {
		t.Errorf("Trackers = %+v", f.Trackers)
	}
	if !f.ConsentBanner.Present {
		t.Error("custom selector should detect consent container")
	}

	if _, err := DefaultRules().Extend(config.DetectionConfig{ConsentSelectors: []string{"div[["}}); err == nil {
		t.Error("invalid selector should be rejected")
	}
}

func TestDetect_ConsentVocabulary(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"gdpr text", `<p>This site is GDPR compliant.</p>`, "gdpr"},
		{"attribute on any element", `<span id="cookie-notice"></span>`, "attr:cookie"},
		{"class on a list", `<ul class="gdpr-choices"><li>Necessary</li></ul>`, "attr:gdpr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := "<html><body>" + tt.body + "</body></html>"
			f, err := New(nil).Detect(page, "https://example.com")
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if !f.ConsentBanner.Present {
				t.Fatalf("consent not detected in %s", tt.body)
			}
			found := false
			for _, term := range f.ConsentBanner.MatchedTerms {
				if term == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("MatchedTerms = %v, want %q", f.ConsentBanner.MatchedTerms, tt.want)
			}
		})
	}
}

func TestDetect_OnlyScriptsCountAsTrackers(t *testing.T) {
	page := `<html><body>
		<img src="https://bat.bing.com/action/0?ti=1" alt="">
		<iframe src="https://www.googletagmanager.com/ns.html?id=GTM-X"></iframe>
		<img src="https://px.ads.linkedin.com/collect/?pid=1" alt="">
		<p>hello</p>
	</body></html>`
	f, err := New(nil).Detect(page, "https://example.com")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if f.Trackers.Count != 0 {
		t.Errorf("Count = %d (%v), want 0 for image and iframe pixels", f.Trackers.Count, f.Trackers.MatchedDomains)
	}
}
