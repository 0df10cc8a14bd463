package clients

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// RegistrationKey is the name every client stores the server under.
	RegistrationKey = "JungleMCP"
	// LegacyRegistrationKey is the casing used by earlier releases.
	LegacyRegistrationKey = "jungleMCP"
)

// ErrUnknownClient is returned for ids missing from the registry.
var ErrUnknownClient = errors.New("unknown client")

var builtin = []Descriptor{
	{
		ID:            "claude-code",
		Name:          "Claude Code",
		Kind:          CliManaged,
		SupportsHTTP:  true,
		SupportsStdio: true,
		Key:           RegistrationKey,
		LegacyKey:     LegacyRegistrationKey,
		Tool:          "claude",
		DocsURL:       "https://docs.anthropic.com/en/docs/claude-code/mcp",
	},
	{
		ID:            "claude-desktop",
		Name:          "Claude Desktop",
		Kind:          StructuredFile,
		SupportsStdio: true,
		Key:           RegistrationKey,
		LegacyKey:     LegacyRegistrationKey,
		Locations:     []string{"mcpServers"},
		Paths: map[string]string{
			"darwin":  "~/Library/Application Support/Claude/claude_desktop_config.json",
			"windows": "$APPDATA/Claude/claude_desktop_config.json",
			"linux":   "$XDG_CONFIG_HOME/Claude/claude_desktop_config.json",
		},
	},
	{
		ID:            "codex",
		Name:          "Codex",
		Kind:          FlatTextFile,
		SupportsHTTP:  true,
		SupportsStdio: true,
		Key:           RegistrationKey,
		LegacyKey:     LegacyRegistrationKey,
		Locations:     []string{"mcp_servers"},
		Paths:         map[string]string{AnyOS: "~/.codex/config.toml"},
	},
	{
		ID:            "cursor",
		Name:          "Cursor",
		Kind:          StructuredFile,
		SupportsHTTP:  true,
		SupportsStdio: true,
		Key:           RegistrationKey,
		LegacyKey:     LegacyRegistrationKey,
		Locations:     []string{"mcpServers"},
		Paths:         map[string]string{AnyOS: "~/.cursor/mcp.json"},
	},
	{
		ID:            "kiro",
		Name:          "Kiro",
		Kind:          StructuredFile,
		SupportsHTTP:  true,
		SupportsStdio: true,
		Key:           RegistrationKey,
		LegacyKey:     LegacyRegistrationKey,
		Locations:     []string{"mcpServers"},
		Paths:         map[string]string{AnyOS: "~/.kiro/settings/mcp.json"},
	},
	{
		ID:            "vscode",
		Name:          "VS Code",
		Kind:          StructuredFile,
		SupportsHTTP:  true,
		SupportsStdio: true,
		Key:           RegistrationKey,
		LegacyKey:     LegacyRegistrationKey,
		Locations:     []string{"servers", "mcp.servers"},
		TypeField:     true,
		Paths: map[string]string{
			"darwin":  "~/Library/Application Support/Code/User/mcp.json",
			"windows": "$APPDATA/Code/User/mcp.json",
			"linux":   "$XDG_CONFIG_HOME/Code/User/mcp.json",
		},
	},
	{
		ID:            "vscode-workspace",
		Name:          "VS Code (workspace)",
		Kind:          StructuredFile,
		SupportsHTTP:  true,
		SupportsStdio: true,
		Key:           RegistrationKey,
		LegacyKey:     LegacyRegistrationKey,
		Locations:     []string{"servers"},
		TypeField:     true,
		Paths:         map[string]string{AnyOS: ProjectToken + "/.vscode/mcp.json"},
	},
	{
		ID:            "windsurf",
		Name:          "Windsurf",
		Kind:          StructuredFile,
		SupportsHTTP:  true,
		SupportsStdio: true,
		Key:           RegistrationKey,
		LegacyKey:     LegacyRegistrationKey,
		Locations:     []string{"mcpServers"},
		URLField:      "serverUrl",
		Paths:         map[string]string{AnyOS: "~/.codeium/windsurf/mcp_config.json"},
	},
}

// Builtin returns a copy of the known client table.
func Builtin() []Descriptor {
	out := make([]Descriptor, len(builtin))
	for i, d := range builtin {
		d.Paths = copyPaths(d.Paths)
		d.Locations = append([]string(nil), d.Locations...)
		out[i] = d
	}
	return out
}

func copyPaths(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Registry is the immutable client table built once at startup.
type Registry struct {
	byID  map[string]Descriptor
	order []string
}

// NewRegistry validates descriptors and indexes them by id.
func NewRegistry(descs []Descriptor) (*Registry, error) {
	r := &Registry{byID: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		if err := validate(d); err != nil {
			return nil, err
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate client id %q", d.ID)
		}
		if d.URLField == "" {
			d.URLField = "url"
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	sort.Strings(r.order)
	return r, nil
}

func validate(d Descriptor) error {
	switch {
	case strings.TrimSpace(d.ID) == "":
		return errors.New("client descriptor without id")
	case strings.TrimSpace(d.Key) == "":
		return fmt.Errorf("client %q: registration key required", d.ID)
	case !d.SupportsHTTP && !d.SupportsStdio:
		return fmt.Errorf("client %q: supports no transport", d.ID)
	}
	switch d.Kind {
	case CliManaged:
		if d.Tool == "" && d.ToolPath == "" {
			return fmt.Errorf("client %q: cli-managed client needs a tool", d.ID)
		}
	case StructuredFile, FlatTextFile:
		if len(d.Paths) == 0 {
			return fmt.Errorf("client %q: no artifact path", d.ID)
		}
		if len(d.Locations) == 0 {
			return fmt.Errorf("client %q: no registration location", d.ID)
		}
	default:
		return fmt.Errorf("client %q: unknown kind %v", d.ID, d.Kind)
	}
	return nil
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.byID[strings.ToLower(strings.TrimSpace(id))]
	return d, ok
}

// Lookup is Get with an error for unknown ids.
func (r *Registry) Lookup(id string) (Descriptor, error) {
	d, ok := r.Get(id)
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s (known: %s)", ErrUnknownClient, id, strings.Join(r.IDs(), ", "))
	}
	return d, nil
}

// IDs returns client ids in sorted order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// All returns descriptors in id order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
