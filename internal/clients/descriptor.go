package clients

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Kind is how a client persists its registration.
type Kind int

const (
	StructuredFile Kind = iota
	FlatTextFile
	CliManaged
)

func (k Kind) String() string {
	switch k {
	case StructuredFile:
		return "structured-file"
	case FlatTextFile:
		return "flat-text-file"
	case CliManaged:
		return "cli-managed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// AnyOS keys the path used when no OS-specific path is registered.
const AnyOS = "*"

// ProjectToken in a path template is replaced with the host project directory.
const ProjectToken = "{project}"

var (
	// ErrManagedExternally is returned when a client has no local artifact.
	ErrManagedExternally = errors.New("registration is managed by an external tool")
	// ErrUnsupportedOS is returned when a client has no path for this OS.
	ErrUnsupportedOS = errors.New("client not supported on this platform")
	// ErrNoProjectDir is returned for project-scoped clients without a project.
	ErrNoProjectDir = errors.New("project directory required")
)

// Descriptor is the static description of one client application.
type Descriptor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	// Paths maps GOOS (or AnyOS) to a path template. Templates may start
	// with "~", reference $APPDATA / $LOCALAPPDATA / $XDG_CONFIG_HOME, or
	// contain ProjectToken. Empty for CliManaged clients.
	Paths map[string]string `json:"paths,omitempty"`

	SupportsHTTP  bool `json:"supports_http"`
	SupportsStdio bool `json:"supports_stdio"`

	// Key is the registration name; LegacyKey an older casing still honored
	// when reading and removed when writing.
	Key       string `json:"key"`
	LegacyKey string `json:"legacy_key,omitempty"`

	// Locations lists the dotted container paths holding registrations. The
	// first is written to; the rest are only read.
	Locations []string `json:"locations,omitempty"`
	// URLField is the field written for HTTP entries; "url" and "serverUrl"
	// are both accepted on read.
	URLField string `json:"url_field,omitempty"`
	// TypeField adds an explicit "type" to written entries.
	TypeField bool `json:"type_field,omitempty"`

	// Tool is the CLI executable for CliManaged clients.
	Tool string `json:"tool,omitempty"`
	// ToolPath overrides lookup of Tool on the search path.
	ToolPath string `json:"tool_path,omitempty"`

	DocsURL string `json:"docs_url,omitempty"`
}

// Keys returns the registration key followed by the legacy alias, if any.
func (d Descriptor) Keys() []string {
	keys := []string{d.Key}
	if d.LegacyKey != "" && d.LegacyKey != d.Key {
		keys = append(keys, d.LegacyKey)
	}
	return keys
}

// ProjectScoped reports whether the artifact lives inside the host project.
func (d Descriptor) ProjectScoped() bool {
	for _, p := range d.Paths {
		if strings.Contains(p, ProjectToken) {
			return true
		}
	}
	return false
}

// WithPath returns a copy whose artifact path is fixed to path on every OS.
func (d Descriptor) WithPath(path string) Descriptor {
	d.Paths = map[string]string{AnyOS: path}
	return d
}

// ArtifactPath resolves the artifact path for the running OS.
func (d Descriptor) ArtifactPath(projectDir string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}
	return d.ResolvePath(runtime.GOOS, home, projectDir, os.Getenv)
}

// ResolvePath resolves the artifact path for goos with explicit inputs.
func (d Descriptor) ResolvePath(goos, home, projectDir string, getenv func(string) string) (string, error) {
	if d.Kind == CliManaged {
		return "", ErrManagedExternally
	}
	template, ok := d.Paths[goos]
	if !ok {
		template, ok = d.Paths[AnyOS]
	}
	if !ok || strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("%s: %w (%s)", d.Name, ErrUnsupportedOS, goos)
	}
	return expand(template, goos, home, projectDir, getenv)
}

func expand(template, goos, home, projectDir string, getenv func(string) string) (string, error) {
	p := template
	if strings.Contains(p, ProjectToken) {
		if strings.TrimSpace(projectDir) == "" {
			return "", ErrNoProjectDir
		}
		p = strings.ReplaceAll(p, ProjectToken, projectDir)
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		p = home + p[1:]
	}

	vars := map[string]string{
		"$APPDATA":         envOr(getenv, "APPDATA", joinPath(goos, home, "AppData", "Roaming")),
		"$LOCALAPPDATA":    envOr(getenv, "LOCALAPPDATA", joinPath(goos, home, "AppData", "Local")),
		"$XDG_CONFIG_HOME": envOr(getenv, "XDG_CONFIG_HOME", joinPath(goos, home, ".config")),
	}
	for token, value := range vars {
		p = strings.ReplaceAll(p, token, value)
	}

	if goos == runtime.GOOS {
		return filepath.Clean(filepath.FromSlash(p)), nil
	}
	return p, nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if getenv != nil {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
	}
	return fallback
}

func joinPath(goos string, parts ...string) string {
	if goos == runtime.GOOS {
		return filepath.Join(parts...)
	}
	return strings.Join(parts, "/")
}
