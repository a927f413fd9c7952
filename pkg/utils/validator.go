package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// ValidateProductURL accepts absolute http and https URLs only
func ValidateProductURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https: %s", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url has no host: %s", raw)
	}
	return nil
}

// SanitizeString trims surrounding space and removes control characters,
// keeping tabs and newlines
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
