package tools

import (
	"regexp"
	"strconv"
	"strings"
)

var versionRegex = regexp.MustCompile(`([0-9]+)(?:\.([0-9]+))?(?:\.([0-9]+))?`)

// semver is a major.minor.patch triple; missing components are zero.
type semver [3]int

func parseSemver(text string) (semver, bool) {
	m := versionRegex.FindStringSubmatch(text)
	if m == nil {
		return semver{}, false
	}
	var v semver
	for i := range v {
		if m[i+1] != "" {
			v[i], _ = strconv.Atoi(m[i+1])
		}
	}
	return v, true
}

func (v semver) less(o semver) bool {
	for i := range v {
		if v[i] != o[i] {
			return v[i] < o[i]
		}
	}
	return false
}

// normalizeVersion pulls the dotted version out of the first line of tool
// output such as "1.0.35 (Claude Code)" or "uvx 0.4.18 (Homebrew 2024-10-01)".
func normalizeVersion(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	if match := versionRegex.FindString(line); match != "" {
		return match
	}
	return line
}

func meetsMinimum(version, minimum string) bool {
	if minimum == "" {
		return true
	}
	have, ok := parseSemver(version)
	if !ok {
		return false
	}
	want, ok := parseSemver(minimum)
	if !ok {
		return true
	}
	return !have.less(want)
}
