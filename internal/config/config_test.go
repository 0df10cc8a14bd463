package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpreg/internal/clients"
	"mcpreg/internal/hostthread"
	"mcpreg/internal/registration"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "mcpreg.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/mcp", cfg.Server.EffectiveURL())
	assert.Equal(t, "uvx", cfg.Launch.Executable)
	assert.True(t, cfg.Preferences.AutoRewriteValue())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcpreg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
preferences:
  transport: stdio
  auto_rewrite: false
clients:
  codex:
    path: /custom/config.toml
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9090/mcp", cfg.Server.EffectiveURL())
	assert.Equal(t, "stdio", cfg.Preferences.Transport)
	assert.False(t, cfg.Preferences.AutoRewriteValue())
	assert.Equal(t, "/custom/config.toml", cfg.Client("Codex").Path)
	assert.Equal(t, "junglemcpserver", cfg.Launch.PackageSource)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcpreg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.SetClient("cursor", ClientConfig{Disabled: true})
	data, err := cfg.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "mcpreg.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEffectiveURL(t *testing.T) {
	assert.Equal(t, "http://[::1]:8080/mcp", ServerConfig{Host: "::1", Port: 8080, Path: "/mcp"}.EffectiveURL())
	assert.Equal(t, "http://localhost:1/x", ServerConfig{Host: "localhost", Port: 1, Path: "x"}.EffectiveURL())
	assert.Equal(t, "https://example.test/mcp", ServerConfig{URL: " https://example.test/mcp ", Host: "ignored"}.EffectiveURL())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvHTTPHost:      "localhost",
		EnvHTTPPort:      "9000",
		EnvTransport:     "stdio",
		EnvUVXPath:       "/opt/uv/uvx",
		EnvPackageSource: "/src/server",
		EnvClaudePath:    "/opt/claude",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, "http://localhost:9000/mcp", cfg.Server.EffectiveURL())
	assert.Equal(t, "stdio", cfg.Preferences.Transport)
	assert.Equal(t, "/opt/uv/uvx", cfg.Launch.Executable)
	assert.Equal(t, "/src/server", cfg.Launch.PackageSource)
	assert.Equal(t, "/opt/claude", cfg.Client("claude-code").ToolPath)
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) string {
		if k == EnvHTTPPort {
			return "eighty"
		}
		return ""
	})
	assert.ErrorContains(t, err, EnvHTTPPort)

	err = cfg.ApplyEnv(func(k string) string {
		if k == EnvTransport {
			return "carrier-pigeon"
		}
		return ""
	})
	assert.ErrorContains(t, err, EnvTransport)
}

func TestReadEnvFileAndLookup(t *testing.T) {
	dir := t.TempDir()
	values, err := ReadEnvFile(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Empty(t, values)

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MCPREG_HTTP_PORT=7000\n# comment\nMCPREG_HTTP_HOST=\"localhost\"\n"), 0o644))
	values, err = ReadEnvFile(path)
	require.NoError(t, err)

	process := map[string]string{EnvHTTPPort: "7100"}
	getenv := EnvLookup(values, func(k string) string { return process[k] })
	assert.Equal(t, "7100", getenv(EnvHTTPPort), "process env wins")
	assert.Equal(t, "localhost", getenv(EnvHTTPHost))
	assert.Equal(t, "", getenv(EnvUVXPath))
}

func TestExpectedFallsBackToSupportedTransport(t *testing.T) {
	cfg := Default()
	reg, err := clients.NewRegistry(clients.Builtin())
	require.NoError(t, err)

	desktop, _ := reg.Get("claude-desktop")
	target, err := cfg.Expected(desktop, hostthread.Preferences{Transport: registration.TransportHTTP, ForceFresh: true})
	require.NoError(t, err)
	assert.Equal(t, registration.TransportStdio, target.Transport)
	assert.Equal(t, []string{"--no-cache", "--refresh", "--from", "junglemcpserver", "jungle-mcp"}, target.Launch.Args())

	cursor, _ := reg.Get("cursor")
	target, err = cfg.Expected(cursor, hostthread.Preferences{})
	require.NoError(t, err)
	assert.Equal(t, registration.HTTPTarget("http://127.0.0.1:8080/mcp"), target)
}

func TestHostPreferences(t *testing.T) {
	cfg := Default()
	cfg.Preferences.Transport = "stdio"
	cfg.Preferences.ForceFresh = true
	prefs, err := cfg.HostPreferences()
	require.NoError(t, err)
	assert.Equal(t, hostthread.Preferences{Transport: registration.TransportStdio, ForceFresh: true, AutoRewrite: true}, prefs)

	cfg.Preferences.Transport = "smoke"
	_, err = cfg.HostPreferences()
	assert.Error(t, err)
}
