// Package scan holds the small text scanners used to pull registration
// details out of launcher argument lists, CLI output and flat table files.
// Each scanner is self-contained so a stricter parser can replace it without
// touching callers.
package scan

import (
	"strings"
	"unicode"

	"mcpreg/internal/registration"
)

// FromArgs returns the value following the --from flag in an argument list.
// Both "--from value" and "--from=value" forms are accepted.
func FromArgs(args []string) (string, bool) {
	for i, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == registration.FromFlag {
			if i+1 < len(args) {
				return unquote(strings.TrimSpace(args[i+1])), true
			}
			return "", false
		}
		if value, ok := strings.CutPrefix(arg, registration.FromFlag+"="); ok {
			return unquote(value), true
		}
	}
	return "", false
}

// FromText scans free-form text for the --from flag and returns the quoted or
// unquoted value that follows it.
func FromText(text string) (string, bool) {
	rest := text
	for {
		idx := strings.Index(rest, registration.FromFlag)
		if idx < 0 {
			return "", false
		}
		before := idx == 0 || unicode.IsSpace(rune(rest[idx-1])) || rest[idx-1] == '"' || rest[idx-1] == '\''
		rest = rest[idx+len(registration.FromFlag):]
		if !before || rest == "" {
			continue
		}
		if rest[0] != '=' && !unicode.IsSpace(rune(rest[0])) {
			continue
		}
		value, ok := readValue(strings.TrimLeft(rest[1:], " \t"))
		if ok {
			return value, true
		}
	}
}

// readValue reads one token that is either wrapped in matching quotes or
// terminated by whitespace.
func readValue(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	if q := s[0]; q == '"' || q == '\'' {
		end := strings.IndexByte(s[1:], q)
		if end < 0 {
			return "", false
		}
		return s[1 : end+1], true
	}
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		end = len(s)
	}
	value := strings.TrimRight(s[:end], ",")
	return value, value != ""
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

var transportMarkers = []struct {
	marker    string
	transport string
}{
	{"type: http", "http"},
	{"type: sse", "http"},
	{"type: stdio", "stdio"},
}

// TransportFromText returns the transport kind named by a "Type: ..." marker
// in CLI detail output.
func TransportFromText(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, m := range transportMarkers {
		if strings.Contains(lower, m.marker) {
			return m.transport, true
		}
	}
	return "", false
}

// ContainsName reports whether any of names appears in text, ignoring case.
func ContainsName(text string, names ...string) bool {
	lower := strings.ToLower(text)
	for _, name := range names {
		if name == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(name)) {
			return true
		}
	}
	return false
}
