package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"mcpreg/internal/clients"
	"mcpreg/internal/hostthread"
	"mcpreg/internal/registration"
)

// Config captures the expected connection target and reconciliation
// preferences for a project.
type Config struct {
	Version     int                     `yaml:"version"`
	Server      ServerConfig            `yaml:"server"`
	Launch      LaunchConfig            `yaml:"launch"`
	Preferences PreferencesConfig       `yaml:"preferences"`
	Clients     map[string]ClientConfig `yaml:"clients,omitempty"`
	// ExtraPaths are searched before PATH when locating client tools.
	ExtraPaths []string `yaml:"extra_paths,omitempty"`
	LogLevel   string   `yaml:"log_level"`
	LogsDir    string   `yaml:"logs_dir,omitempty"`
}

// ServerConfig describes the HTTP endpoint clients connect to. URL wins over
// the Host/Port/Path triple when set.
type ServerConfig struct {
	URL  string `yaml:"url,omitempty"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LaunchConfig describes how clients spawn the server for stdio transport.
type LaunchConfig struct {
	Executable    string `yaml:"executable"`
	PackageSource string `yaml:"package_source"`
	PackageName   string `yaml:"package_name"`
}

// PreferencesConfig holds the user preference flags.
type PreferencesConfig struct {
	Transport   string `yaml:"transport"`
	ForceFresh  bool   `yaml:"force_fresh"`
	AutoRewrite *bool  `yaml:"auto_rewrite,omitempty"`
}

// ClientConfig overrides a built-in client descriptor.
type ClientConfig struct {
	Path     string `yaml:"path,omitempty"`
	ToolPath string `yaml:"tool_path,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// AutoRewriteValue returns the effective auto-rewrite flag applying defaults.
func (p PreferencesConfig) AutoRewriteValue() bool {
	if p.AutoRewrite == nil {
		return true
	}
	return *p.AutoRewrite
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Path: "/mcp",
		},
		Launch: LaunchConfig{
			Executable:    "uvx",
			PackageSource: "junglemcpserver",
			PackageName:   "jungle-mcp",
		},
		Preferences: PreferencesConfig{
			Transport:   string(registration.TransportHTTP),
			AutoRewrite: boolPtr(true),
		},
		LogLevel: "info",
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when the
// YAML omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
	if strings.TrimSpace(c.Server.Path) == "" {
		c.Server.Path = defaults.Server.Path
	}
	if strings.TrimSpace(c.Launch.Executable) == "" {
		c.Launch.Executable = defaults.Launch.Executable
	}
	if strings.TrimSpace(c.Launch.PackageSource) == "" {
		c.Launch.PackageSource = defaults.Launch.PackageSource
	}
	if strings.TrimSpace(c.Launch.PackageName) == "" {
		c.Launch.PackageName = defaults.Launch.PackageName
	}
	if strings.TrimSpace(c.Preferences.Transport) == "" {
		c.Preferences.Transport = defaults.Preferences.Transport
	}
	if c.Preferences.AutoRewrite == nil {
		c.Preferences.AutoRewrite = boolPtr(true)
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = defaults.LogLevel
	}
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

// EffectiveURL is the URL HTTP clients are registered with.
func (s ServerConfig) EffectiveURL() string {
	if u := strings.TrimSpace(s.URL); u != "" {
		return u
	}
	path := s.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "http://" + net.JoinHostPort(s.Host, strconv.Itoa(s.Port)) + path
}

// Environment variables that override the file configuration.
const (
	EnvHTTPURL       = "MCPREG_HTTP_URL"
	EnvHTTPHost      = "MCPREG_HTTP_HOST"
	EnvHTTPPort      = "MCPREG_HTTP_PORT"
	EnvTransport     = "MCPREG_TRANSPORT"
	EnvUVXPath       = "MCPREG_UVX_PATH"
	EnvPackageSource = "MCPREG_PACKAGE_SOURCE"
	EnvClaudePath    = "MCPREG_CLAUDE_PATH"
)

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	if v := get(EnvHTTPURL); v != "" {
		c.Server.URL = v
	}
	if v := get(EnvHTTPHost); v != "" {
		c.Server.Host = v
	}
	if v := get(EnvHTTPPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s value %q", EnvHTTPPort, v)
		}
		c.Server.Port = port
	}
	if v := get(EnvTransport); v != "" {
		t, err := registration.ParseTransport(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTransport, err)
		}
		c.Preferences.Transport = string(t)
	}
	if v := get(EnvUVXPath); v != "" {
		c.Launch.Executable = v
	}
	if v := get(EnvPackageSource); v != "" {
		c.Launch.PackageSource = v
	}
	if v := get(EnvClaudePath); v != "" {
		cc := c.Clients["claude-code"]
		cc.ToolPath = v
		c.SetClient("claude-code", cc)
	}
	return nil
}

// SetClient stores an override for id.
func (c *Config) SetClient(id string, cc ClientConfig) {
	if c.Clients == nil {
		c.Clients = map[string]ClientConfig{}
	}
	c.Clients[strings.ToLower(id)] = cc
}

// Client returns the override for id, if any.
func (c Config) Client(id string) ClientConfig {
	return c.Clients[strings.ToLower(id)]
}

// ReadEnvFile loads KEY=VALUE pairs from a dotenv file. A missing file yields
// an empty map.
func ReadEnvFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read env file: %w", err)
	}
	return values, nil
}

// EnvLookup returns a getenv that prefers the process environment and falls
// back to values read from a dotenv file.
func EnvLookup(file map[string]string, getenv func(string) string) func(string) string {
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return file[key]
	}
}

// HostPreferences converts the configured flags to the privileged state
// handed to the host loop.
func (c Config) HostPreferences() (hostthread.Preferences, error) {
	t, err := registration.ParseTransport(c.Preferences.Transport)
	if err != nil {
		return hostthread.Preferences{}, err
	}
	return hostthread.Preferences{
		Transport:   t,
		ForceFresh:  c.Preferences.ForceFresh,
		AutoRewrite: c.Preferences.AutoRewriteValue(),
	}, nil
}

// Expected returns the connection target for d. When the preferred transport
// is one d cannot use, the other transport is chosen.
func (c Config) Expected(d clients.Descriptor, prefs hostthread.Preferences) (registration.Target, error) {
	transport := prefs.Transport
	if transport == "" {
		transport = registration.TransportHTTP
	}
	switch {
	case transport == registration.TransportHTTP && !d.SupportsHTTP && d.SupportsStdio:
		transport = registration.TransportStdio
	case transport == registration.TransportStdio && !d.SupportsStdio && d.SupportsHTTP:
		transport = registration.TransportHTTP
	}

	switch transport {
	case registration.TransportHTTP:
		return registration.HTTPTarget(c.Server.EffectiveURL()), nil
	case registration.TransportStdio:
		return registration.LaunchTarget(registration.LaunchSpec{
			Executable:    c.Launch.Executable,
			PackageSource: c.Launch.PackageSource,
			PackageName:   c.Launch.PackageName,
			ForceFresh:    prefs.ForceFresh,
		}), nil
	default:
		return registration.Target{}, fmt.Errorf("unknown transport %q", transport)
	}
}

func boolPtr(v bool) *bool {
	return &v
}
