package discovery

import (
	"net/url"
	"strings"
)

// trackingParams are stripped so the same article keeps one canonical link.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "ocid",
}

// NormalizeLink resolves href against base and returns an absolute http(s)
// URL without fragment or tracking parameters. ok is false for anything
// that cannot serve as a canonical article link.
func NormalizeLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}

	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	if ref.Host == "" {
		return "", false
	}

	ref.Fragment = ""
	ref.RawFragment = ""
	if ref.RawQuery != "" {
		q := ref.Query()
		for _, p := range trackingParams {
			q.Del(p)
		}
		ref.RawQuery = q.Encode()
	}
	ref.Host = strings.ToLower(ref.Host)

	return ref.String(), true
}
