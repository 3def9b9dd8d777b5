package cleaner

import (
	"strings"
	"testing"
	"unicode/utf8"
)

const policyPage = `<html><head><title>Privacy Policy</title><script>track()</script></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Privacy Policy</h1>
<p>This privacy policy explains how Example Ltd collects, uses and shares personal data
when you use our website. We process data on the basis of consent and legitimate interest.</p>
<h2>Your rights</h2>
<p>Under the GDPR you may request access to, rectification of, or erasure of your personal data.
California residents have additional rights under the CCPA, including the right to opt out of sale.</p>
<table><tr><th>Data</th><th>Retention</th></tr><tr><td>Account</td><td>2 years</td></tr></table>
</article>
<footer>Copyright Example</footer>
</body></html>`

func TestPolicyExtractor_Text(t *testing.T) {
	p := NewPolicyExtractor()
	text := p.Text(policyPage, "https://example.com/privacy", 8000)

	if !strings.Contains(text, "Your rights") || !strings.Contains(text, "CCPA") {
		t.Errorf("policy body missing from output: %q", text)
	}
	if strings.Contains(text, "track()") {
		t.Error("script content leaked into policy text")
	}
}

func TestPolicyExtractor_Truncates(t *testing.T) {
	p := NewPolicyExtractor()
	text := p.Text(policyPage, "https://example.com/privacy", 40)
	if n := utf8.RuneCountInString(text); n > 40 {
		t.Errorf("length = %d runes, want <= 40", n)
	}
}

func TestPolicyExtractor_EmptyPage(t *testing.T) {
	p := NewPolicyExtractor()
	if text := p.Text("<html><body></body></html>", "https://example.com/privacy", 8000); text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"datenschutzerklärung", 19, "datenschutzerklärun"},
		{"äöü", 2, "äö"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 || EstimateTokens("a") != 1 || EstimateTokens("abcdef") != 2 {
		t.Error("unexpected token estimates")
	}
}

func TestPolicyMarkdown_DropsMediaAndBlankRuns(t *testing.T) {
	conv := newPolicyConverter()
	md, err := policyMarkdown(conv,
		`<div><p>We store cookies.</p><img src="/banner.png" alt="banner"><form><button>Accept</button></form><p></p><p></p><p>Contact our DPO.</p></div>`,
		"https://example.com/privacy")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(md, "banner") || strings.Contains(md, "Accept") {
		t.Errorf("media or form content leaked: %q", md)
	}
	if strings.Contains(md, "\n\n\n") {
		t.Errorf("blank-line run not collapsed: %q", md)
	}
	if !strings.Contains(md, "We store cookies.") || !strings.Contains(md, "Contact our DPO.") {
		t.Errorf("policy wording missing: %q", md)
	}
}
