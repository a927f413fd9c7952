package entity

import (
	"net/url"
	"regexp"
	"strings"
)

var amazonHosts = []string{
	"amazon.com",
	"amazon.com.mx",
	"amazon.co",
	"amzn.to",
	"a.co",
}

var asinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/dp/([A-Z0-9]{10})`),
	regexp.MustCompile(`/gp/product/([A-Z0-9]{10})`),
	regexp.MustCompile(`/([A-Z0-9]{10})(?:/|$|\?)`),
}

// IsAmazonURL reports whether raw points at an Amazon storefront or short link.
// Matching is on the host so that query strings mentioning amazon do not count.
func IsAmazonURL(raw string) bool {
	host := hostOf(raw)
	if host == "" {
		return false
	}
	host = strings.TrimPrefix(host, "www.")
	for _, h := range amazonHosts {
		if host == h || strings.HasSuffix(host, "."+h) || strings.HasPrefix(host, h+".") {
			return true
		}
	}
	return false
}

// ExtractASIN returns the 10-character product identifier from an Amazon URL, or "".
func ExtractASIN(raw string) string {
	if !IsAmazonURL(raw) {
		return ""
	}
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	}
	for _, re := range asinPatterns {
		if m := re.FindStringSubmatch(path); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
