// Package match implements the tolerant comparisons used to decide whether a
// persisted registration still points at the expected target.
package match

import (
	"net/url"
	"strings"
)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
}

// URLsEqual compares two URLs ignoring case and a trailing slash on the path.
// Component-wise comparison only happens when both sides parse as absolute
// URLs with a host; otherwise the trimmed strings are compared literally.
func URLsEqual(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return a == b
	}

	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil || !isAbsolute(ua) || !isAbsolute(ub) {
		return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
	}

	schemeA := strings.ToLower(ua.Scheme)
	schemeB := strings.ToLower(ub.Scheme)
	if schemeA != schemeB {
		return false
	}
	if !strings.EqualFold(ua.Hostname(), ub.Hostname()) {
		return false
	}
	if effectivePort(schemeA, ua.Port()) != effectivePort(schemeB, ub.Port()) {
		return false
	}
	if !strings.EqualFold(trimPath(ua.EscapedPath()), trimPath(ub.EscapedPath())) {
		return false
	}
	return ua.RawQuery == ub.RawQuery
}

func isAbsolute(u *url.URL) bool {
	return u.IsAbs() && u.Host != ""
}

func effectivePort(scheme, port string) string {
	if port != "" {
		return port
	}
	return defaultPorts[scheme]
}

func trimPath(p string) string {
	return strings.TrimRight(p, "/")
}

// PathsEqual compares filesystem paths or package source tokens ignoring
// case, separator style, surrounding quotes and trailing separators.
func PathsEqual(a, b string) bool {
	return NormalizePath(a) == NormalizePath(b)
}

// NormalizePath returns the comparison form used by PathsEqual.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.Trim(p, `"'`)
	p = strings.ReplaceAll(p, `\`, "/")
	if trimmed := strings.TrimRight(p, "/"); trimmed != "" {
		p = trimmed
	}
	return strings.ToLower(p)
}
