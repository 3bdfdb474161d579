package urlutil

import (
	"errors"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var (
	ErrEmptyURL          = errors.New("empty url")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrMissingHost       = errors.New("missing host")
)

// Parse parses raw into an absolute http(s) URL. Surrounding whitespace is ignored.
func Parse(raw string) (url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return url.URL{}, ErrEmptyURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return url.URL{}, err
	}
	scheme := lowerASCII(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return url.URL{}, ErrUnsupportedScheme
	}
	if u.Hostname() == "" {
		return url.URL{}, ErrMissingHost
	}
	return *u, nil
}

// Canonicalize applies a deterministic normalization to a URL, producing the
// key under which resolutions are cached and deduplicated.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased
//   - Path is cleaned (trailing slashes removed, except for root "/")
//   - Fragments are removed
//   - Query parameters are kept; they select content (search terms, video ids)
//   - Default ports are omitted (e.g., :80 for http, :443 for https)
//
// Canonicalize(Canonicalize(u)) == Canonicalize(u)
func Canonicalize(sourceUrl url.URL) url.URL {
	canonical := sourceUrl

	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
		}
	}

	if len(canonical.Path) > 1 {
		canonical.Path = stripTrailingSlash(canonical.Path)
		if canonical.RawPath != "" {
			canonical.RawPath = stripTrailingSlash(canonical.RawPath)
		}
	}

	canonical.Fragment = ""
	canonical.RawFragment = ""
	if canonical.RawQuery == "" {
		canonical.ForceQuery = false
	}

	return canonical
}

// CanonicalKey parses and canonicalizes raw in one step.
func CanonicalKey(raw string) (string, error) {
	u, err := Parse(raw)
	if err != nil {
		return "", err
	}
	c := Canonicalize(u)
	return c.String(), nil
}

// Host returns the lowercased hostname without port.
func Host(u url.URL) string {
	return lowerASCII(u.Hostname())
}

// DisplayHost strips a leading "www." from the host.
func DisplayHost(u url.URL) string {
	return strings.TrimPrefix(Host(u), "www.")
}

// FallbackTitle derives a title from the URL alone: the host, joined with
// the last path segment when there is one ("a.test / x").
func FallbackTitle(u url.URL) string {
	host := DisplayHost(u)
	segment := LastPathSegment(u)
	if segment == "" {
		return host
	}
	if host == "" {
		return segment
	}
	return host + " / " + segment
}

// FallbackTitleFromString is FallbackTitle for unparsed input. Unparseable
// input is returned trimmed so a title is never empty for non-empty input.
func FallbackTitleFromString(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return strings.TrimSpace(raw)
	}
	return FallbackTitle(*u)
}

// LastPathSegment returns the unescaped last non-empty path segment.
func LastPathSegment(u url.URL) string {
	p := stripTrailingSlash(u.Path)
	if p == "" || p == "/" {
		return ""
	}
	return path.Base(p)
}

// RegistrableDomain returns the eTLD+1 of host ("news.bbc.co.uk" -> "bbc.co.uk").
// Hosts without a registrable domain (IPs, bare suffixes, localhost) are returned as-is.
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(lowerASCII(host), ".")
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// HostMatches reports whether host equals domain or is a subdomain of it.
func HostMatches(host string, domain string) bool {
	host = lowerASCII(host)
	domain = lowerASCII(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// SiteNameFromHost derives a human-readable site name from the registrable
// domain's leading label ("docs.github.com" -> "Github").
func SiteNameFromHost(host string) string {
	domain := RegistrableDomain(host)
	if domain == "" {
		return ""
	}
	label := domain
	if suffix, _ := publicsuffix.PublicSuffix(domain); suffix != "" && suffix != domain {
		label = strings.TrimSuffix(domain, "."+suffix)
	}
	if label == "" {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// lowerASCII converts ASCII characters to lowercase without allocating
// when the input is already lowercase.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func stripTrailingSlash(path string) string {
	for len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return path
}
