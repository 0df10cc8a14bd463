package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"mcpreg/internal/registration"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// localHosts never trigger the remote host warning.
var localHosts = map[string]bool{
	"127.0.0.1": true,
	"localhost": true,
	"::1":       true,
	"0.0.0.0":   true,
}

// Validate runs every check against the config. knownClients is the set of
// client ids overrides may refer to.
func (c Config) Validate(knownClients []string) []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateVersion()...)
	results = append(results, c.validateServer()...)
	results = append(results, c.validateLaunch()...)
	results = append(results, c.validatePreferences()...)
	results = append(results, c.validateClients(knownClients)...)
	results = append(results, c.validateExtraPaths()...)
	results = append(results, c.validateLogLevel()...)
	return results
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

func (c Config) validateVersion() []ValidationResult {
	if c.Version > 1 {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("config version %d is newer than this build supports", c.Version),
		}}
	}
	return nil
}

func (c Config) validateServer() []ValidationResult {
	var results []ValidationResult
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("server port %d out of range", c.Server.Port),
		})
	}

	raw := c.Server.EffectiveURL()
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("server url %q is not an absolute http(s) url", raw),
		})
	}
	if host := u.Hostname(); !isLocalHost(host) {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: fmt.Sprintf("server host %q is not local; registered clients will send requests to another machine", host),
		})
	}
	return results
}

func isLocalHost(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if localHosts[host] {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (c Config) validateLaunch() []ValidationResult {
	var results []ValidationResult
	fields := []struct {
		name  string
		value string
	}{
		{"launch.executable", c.Launch.Executable},
		{"launch.package_source", c.Launch.PackageSource},
		{"launch.package_name", c.Launch.PackageName},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: f.name + " must not be empty",
			})
		}
	}
	return results
}

func (c Config) validatePreferences() []ValidationResult {
	if _, err := registration.ParseTransport(c.Preferences.Transport); err != nil {
		return []ValidationResult{{Level: "error", Message: "preferences.transport: " + err.Error()}}
	}
	return nil
}

func (c Config) validateClients(known []string) []ValidationResult {
	if len(c.Clients) == 0 {
		return nil
	}
	knownSet := make(map[string]bool, len(known))
	for _, id := range known {
		knownSet[strings.ToLower(id)] = true
	}

	ids := make([]string, 0, len(c.Clients))
	for id := range c.Clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var results []ValidationResult
	for _, id := range ids {
		if !knownSet[strings.ToLower(id)] {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("clients.%s does not match any known client", id),
			})
		}
	}
	return results
}

func (c Config) validateExtraPaths() []ValidationResult {
	var results []ValidationResult
	for _, dir := range c.ExtraPaths {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("extra path %q is not a directory", dir),
			})
		}
	}
	return results
}

func (c Config) validateLogLevel() []ValidationResult {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return []ValidationResult{{Level: "error", Message: "log_level: " + err.Error()}}
	}
	return nil
}
