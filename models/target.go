package models

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

// hostnamePattern accepts DNS labels separated by dots. IP literals are
// checked separately.
var hostnamePattern = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)*[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// ScanTarget is a normalized absolute http(s) URL. It is the cache key and
// the detector's entry point. The zero value is not a valid target.
type ScanTarget struct {
	url  string
	host string
}

// ParseTarget normalizes raw into a ScanTarget:
//
//   - surrounding whitespace is trimmed
//   - a missing scheme defaults to https
//   - scheme and host are lower-cased, default ports are dropped
//   - the fragment and any trailing slash on the path are removed
//
// It fails with ErrKindInvalidURL when the result is not a well-formed
// absolute http(s) URL.
func ParseTarget(raw string) (ScanTarget, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ScanTarget{}, NewScanError(ErrKindInvalidURL, "URL cannot be empty", nil)
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return ScanTarget{}, NewScanError(ErrKindInvalidURL, "malformed URL", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ScanTarget{}, NewScanError(ErrKindInvalidURL, "unsupported scheme '"+u.Scheme+"'", nil)
	}
	if u.User != nil {
		return ScanTarget{}, NewScanError(ErrKindInvalidURL, "credentials in URL are not allowed", nil)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ScanTarget{}, NewScanError(ErrKindInvalidURL, "missing domain", nil)
	}
	if net.ParseIP(host) == nil && !hostnamePattern.MatchString(strings.TrimSuffix(host, ".")) {
		return ScanTarget{}, NewScanError(ErrKindInvalidURL, "malformed domain '"+host+"'", nil)
	}
	host = strings.TrimSuffix(host, ".")

	port := u.Port()
	if (scheme == "https" && port == "443") || (scheme == "http" && port == "80") {
		port = ""
	}

	hostPort := host
	switch {
	case port != "":
		hostPort = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		hostPort = "[" + host + "]"
	}

	norm := url.URL{
		Scheme:   scheme,
		Host:     hostPort,
		Path:     strings.TrimRight(u.Path, "/"),
		RawQuery: u.RawQuery,
	}
	if u.RawPath != "" {
		norm.RawPath = strings.TrimRight(u.RawPath, "/")
	}

	return ScanTarget{url: norm.String(), host: host}, nil
}

// String returns the normalized URL.
func (t ScanTarget) String() string { return t.url }

// Host returns the lower-cased hostname without port.
func (t ScanTarget) Host() string { return t.host }

// IsZero reports whether t was never successfully parsed.
func (t ScanTarget) IsZero() bool { return t.url == "" }
