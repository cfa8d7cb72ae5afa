package utils

import (
	"net/url"
	"strings"
)

// EncodeURLWithSpaces re-encodes a URL that may contain raw spaces. Stream
// URLs coming back from addons are sometimes built from filenames and arrive
// unescaped; they need %20 encoding before being stored or redirected to.
func EncodeURLWithSpaces(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	encoded := parsed.Scheme + "://" + parsed.Host + parsed.EscapedPath()
	if parsed.RawQuery != "" {
		encoded += "?" + strings.ReplaceAll(parsed.RawQuery, " ", "%20")
	}
	return encoded, nil
}
