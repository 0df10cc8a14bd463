package codec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpreg/internal/clients"
	"mcpreg/internal/registration"
)

func descriptor(t *testing.T, id string) clients.Descriptor {
	t.Helper()
	reg, err := clients.NewRegistry(clients.Builtin())
	require.NoError(t, err)
	d, ok := reg.Get(id)
	require.True(t, ok, id)
	return d
}

var (
	httpTarget   = registration.HTTPTarget("http://localhost:8080/mcp")
	launchTarget = registration.LaunchTarget(registration.LaunchSpec{
		Executable:    "/usr/local/bin/uvx",
		PackageSource: "junglemcpserver==1.4.0",
		PackageName:   "jungle-mcp",
	})
)

func TestJSONExtractPrimaryAndLegacyKey(t *testing.T) {
	c := NewJSON(descriptor(t, "cursor"))

	ext, err := c.Extract([]byte(`{"mcpServers":{"JungleMCP":{"url":"http://localhost:8080/mcp"}}}`))
	require.NoError(t, err)
	assert.True(t, ext.EntryExists)
	assert.Equal(t, "JungleMCP", ext.Key)
	assert.Equal(t, registration.TransportHTTP, ext.Transport)
	assert.Equal(t, "http://localhost:8080/mcp", ext.URL)

	ext, err = c.Extract([]byte(`{"mcpServers":{"jungleMCP":{"command":"uvx","args":["--from","src","jungle-mcp"]}}}`))
	require.NoError(t, err)
	assert.True(t, ext.EntryExists)
	assert.Equal(t, "jungleMCP", ext.Key)
	assert.Equal(t, registration.TransportStdio, ext.Transport)
	assert.Equal(t, "src", ext.PackageSource)
}

func TestJSONExtractServerURLAndComments(t *testing.T) {
	c := NewJSON(descriptor(t, "windsurf"))
	data := []byte(`{
  // written by hand
  "mcpServers": {
    "JungleMCP": { "serverUrl": "http://localhost:8080/mcp", },
  },
}`)
	ext, err := c.Extract(data)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/mcp", ext.URL)
}

func TestJSONExtractNestedLocations(t *testing.T) {
	c := NewJSON(descriptor(t, "vscode"))

	ext, err := c.Extract([]byte(`{"servers":{"JungleMCP":{"type":"http","url":"http://a/mcp"}}}`))
	require.NoError(t, err)
	assert.True(t, ext.EntryExists)
	assert.Equal(t, "http://a/mcp", ext.URL)

	ext, err = c.Extract([]byte(`{"mcp":{"servers":{"jungleMCP":{"url":"http://b/mcp"}}}}`))
	require.NoError(t, err)
	assert.True(t, ext.EntryExists)
	assert.Equal(t, "http://b/mcp", ext.URL)

	ext, err = c.Extract([]byte(`{"mcp":{"servers":{"other":{}}}}`))
	require.NoError(t, err)
	assert.False(t, ext.EntryExists)
}

func TestJSONExtractErrors(t *testing.T) {
	c := NewJSON(descriptor(t, "cursor"))
	_, err := c.Extract([]byte(`{"mcpServers": `))
	assert.Error(t, err)
	_, err = c.Extract([]byte(`[1,2]`))
	assert.Error(t, err)

	ext, err := c.Extract([]byte("  \n"))
	require.NoError(t, err)
	assert.True(t, ext.ArtifactExists)
	assert.False(t, ext.EntryExists)
}

func TestJSONMergePreservesUnrelatedKeys(t *testing.T) {
	c := NewJSON(descriptor(t, "cursor"))
	original := `{
  "theme": "dark",
  "mcpServers": {
    "other": {
      "command": "npx",
      "args": [
        "-y",
        "other-server"
      ],
      "env": {
        "TOKEN": "a<b&c"
      }
    }
  },
  "zoom": 1.25
}
`
	out, err := c.Merge([]byte(original), httpTarget)
	require.NoError(t, err)

	want := `{
  "theme": "dark",
  "mcpServers": {
    "other": {
      "command": "npx",
      "args": [
        "-y",
        "other-server"
      ],
      "env": {
        "TOKEN": "a<b&c"
      }
    },
    "JungleMCP": {
      "url": "http://localhost:8080/mcp"
    }
  },
  "zoom": 1.25
}
`
	assert.Equal(t, want, string(out))

	again, err := c.Merge(out, httpTarget)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again), "merge must be idempotent")
}

func TestJSONMergeReplacesLegacyAndNestedEntries(t *testing.T) {
	c := NewJSON(descriptor(t, "vscode"))
	data := []byte(`{"servers":{"jungleMCP":{"url":"http://old"}},"mcp":{"servers":{"JungleMCP":{"url":"http://older"},"keep":{}}}}`)

	out, err := c.Merge(data, launchTarget)
	require.NoError(t, err)

	doc := string(out)
	assert.Equal(t, 1, strings.Count(doc, `"JungleMCP"`))
	assert.NotContains(t, doc, "jungleMCP")
	assert.Contains(t, doc, `"mcp":{"servers":{"keep":{}}}`)
	assert.Contains(t, doc, `"servers":{"JungleMCP":{"type":"stdio","command":"/usr/local/bin/uvx"`)

	ext, err := c.Extract(out)
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/uvx", ext.Command)
	assert.Equal(t, "junglemcpserver==1.4.0", ext.PackageSource)
}

func TestJSONMergeKeepsFourSpaceIndent(t *testing.T) {
	c := NewJSON(descriptor(t, "cursor"))
	original := "{\n" +
		"    \"theme\": \"dark\",\n" +
		"    \"mcpServers\": {\n" +
		"        \"other\": {\"command\": \"npx\"}\n" +
		"    }\n" +
		"}\n"

	out, err := c.Merge([]byte(original), httpTarget)
	require.NoError(t, err)

	want := "{\n" +
		"    \"theme\": \"dark\",\n" +
		"    \"mcpServers\": {\n" +
		"        \"other\": {\"command\": \"npx\"},\n" +
		"        \"JungleMCP\": {\n" +
		"            \"url\": \"http://localhost:8080/mcp\"\n" +
		"        }\n" +
		"    }\n" +
		"}\n"
	assert.Equal(t, want, string(out))

	stripped, changed, err := c.Strip(out)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, original, string(stripped))
}

func TestJSONMergeKeepsComments(t *testing.T) {
	c := NewJSON(descriptor(t, "vscode"))
	original := "{\n" +
		"\t// my tokens\n" +
		"\t\"inputs\": [],\n" +
		"\t\"servers\": {\n" +
		"\t\t\"other\": {\"type\": \"stdio\", \"command\": \"npx\"}, // keep me\n" +
		"\t},\n" +
		"}\n"

	out, err := c.Merge([]byte(original), httpTarget)
	require.NoError(t, err)

	want := "{\n" +
		"\t// my tokens\n" +
		"\t\"inputs\": [],\n" +
		"\t\"servers\": {\n" +
		"\t\t\"other\": {\"type\": \"stdio\", \"command\": \"npx\"}, // keep me\n" +
		"\t\t\"JungleMCP\": {\n" +
		"\t\t\t\"type\": \"http\",\n" +
		"\t\t\t\"url\": \"http://localhost:8080/mcp\"\n" +
		"\t\t},\n" +
		"\t},\n" +
		"}\n"
	assert.Equal(t, want, string(out))

	ext, err := c.Extract(out)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/mcp", ext.URL)

	stripped, changed, err := c.Strip(out)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, original, string(stripped))
}

func TestJSONMergeReplacesEntryInPlace(t *testing.T) {
	c := NewJSON(descriptor(t, "cursor"))
	original := "{\n" +
		"  \"mcpServers\": {\n" +
		"    /* primary */\n" +
		"    \"JungleMCP\": {\"url\": \"http://localhost:9090/mcp\"},\n" +
		"    \"other\": {}\n" +
		"  }\n" +
		"}"

	out, err := c.Merge([]byte(original), httpTarget)
	require.NoError(t, err)

	want := "{\n" +
		"  \"mcpServers\": {\n" +
		"    /* primary */\n" +
		"    \"JungleMCP\": {\n" +
		"      \"url\": \"http://localhost:8080/mcp\"\n" +
		"    },\n" +
		"    \"other\": {}\n" +
		"  }\n" +
		"}"
	assert.Equal(t, want, string(out))

	again, err := c.Merge(out, httpTarget)
	require.NoError(t, err)
	assert.Equal(t, want, string(again))
}

func TestJSONMergeCreatesMissingContainer(t *testing.T) {
	c := NewJSON(descriptor(t, "cursor"))
	out, err := c.Merge([]byte("{\n  \"theme\": \"dark\"\n}\n"), httpTarget)
	require.NoError(t, err)

	want := "{\n" +
		"  \"theme\": \"dark\",\n" +
		"  \"mcpServers\": {\n" +
		"    \"JungleMCP\": {\n" +
		"      \"url\": \"http://localhost:8080/mcp\"\n" +
		"    }\n" +
		"  }\n" +
		"}\n"
	assert.Equal(t, want, string(out))
}

func TestJSONMergeRejectsNonObjectContainer(t *testing.T) {
	c := NewJSON(descriptor(t, "cursor"))
	_, err := c.Merge([]byte(`{"mcpServers": []}`), httpTarget)
	assert.Error(t, err)
}

func TestJSONStrip(t *testing.T) {
	c := NewJSON(descriptor(t, "cursor"))
	data := []byte(`{"mcpServers":{"JungleMCP":{"url":"x"},"jungleMCP":{"url":"y"},"other":{}}}`)

	out, changed, err := c.Strip(data)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotContains(t, string(out), "ungleMCP")
	assert.Contains(t, string(out), "other")

	_, changed, err = c.Strip(out)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestWriteCreatesFileAndDirectory(t *testing.T) {
	c := NewJSON(descriptor(t, "cursor"))
	path := filepath.Join(t.TempDir(), "nested", "mcp.json")

	require.NoError(t, Write(c, path, httpTarget))
	ext, err := Read(c, path)
	require.NoError(t, err)
	assert.True(t, ext.ArtifactExists)
	assert.True(t, ext.EntryExists)
	assert.Equal(t, "http://localhost:8080/mcp", ext.URL)
}

func TestReadMissingFile(t *testing.T) {
	c := NewJSON(descriptor(t, "cursor"))
	ext, err := Read(c, filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.False(t, ext.ArtifactExists)
	assert.False(t, ext.EntryExists)
}

func TestWriteSkipsUnchangedDocument(t *testing.T) {
	c := NewJSON(descriptor(t, "cursor"))
	path := filepath.Join(t.TempDir(), "mcp.json")
	require.NoError(t, Write(c, path, httpTarget))

	info, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, Write(c, path, httpTarget))
	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), after.ModTime())
}

func TestRemoveMissingFile(t *testing.T) {
	c := NewFlat(descriptor(t, "codex"))
	removed, err := Remove(c, filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.False(t, removed)
}

const codexConfig = `# Codex settings
model = "o3"

[mcp_servers.other]
command = "npx"
args = ["-y", "other-server"]

[mcp_servers.jungleMCP]
url = "http://localhost:9090/mcp"
`

func TestFlatExtract(t *testing.T) {
	c := NewFlat(descriptor(t, "codex"))
	ext, err := c.Extract([]byte(codexConfig))
	require.NoError(t, err)
	assert.True(t, ext.EntryExists)
	assert.Equal(t, "jungleMCP", ext.Key)
	assert.Equal(t, "http://localhost:9090/mcp", ext.URL)

	ext, err = c.Extract([]byte("model = \"o3\"\n"))
	require.NoError(t, err)
	assert.True(t, ext.ArtifactExists)
	assert.False(t, ext.EntryExists)

	_, err = c.Extract([]byte("[mcp_servers.JungleMCP]\nargs = 12\n"))
	assert.Error(t, err)
}

func TestFlatMergeProducesValidTOML(t *testing.T) {
	c := NewFlat(descriptor(t, "codex"))
	windowsLaunch := registration.LaunchTarget(registration.LaunchSpec{
		Executable:    `C:\Users\me\.local\bin\uvx.exe`,
		PackageSource: `C:\src\jungle server`,
		PackageName:   "jungle-mcp",
		ForceFresh:    true,
	})

	out, err := c.Merge([]byte(codexConfig), windowsLaunch)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "jungleMCP", "legacy table removed")
	assert.True(t, strings.HasPrefix(string(out), "# Codex settings\nmodel = \"o3\"\n"))

	var doc struct {
		Model      string `toml:"model"`
		MCPServers map[string]struct {
			Command string   `toml:"command"`
			Args    []string `toml:"args"`
			URL     string   `toml:"url"`
		} `toml:"mcp_servers"`
	}
	require.NoError(t, toml.Unmarshal(out, &doc))
	assert.Equal(t, "o3", doc.Model)
	require.Contains(t, doc.MCPServers, "JungleMCP")
	require.Contains(t, doc.MCPServers, "other")
	entry := doc.MCPServers["JungleMCP"]
	assert.Equal(t, `C:\Users\me\.local\bin\uvx.exe`, entry.Command)
	assert.Equal(t, []string{"--no-cache", "--refresh", "--from", `C:\src\jungle server`, "jungle-mcp"}, entry.Args)

	ext, err := c.Extract(out)
	require.NoError(t, err)
	assert.Equal(t, `C:\src\jungle server`, ext.PackageSource)

	again, err := c.Merge(out, windowsLaunch)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again))
}

func TestFlatStrip(t *testing.T) {
	c := NewFlat(descriptor(t, "codex"))
	out, changed, err := c.Strip([]byte(codexConfig))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotContains(t, string(out), "jungleMCP")
	assert.Contains(t, string(out), "[mcp_servers.other]")
}

func TestFlatMergeLeavesMultilineStringsIntact(t *testing.T) {
	c := NewFlat(descriptor(t, "codex"))
	original := `[profiles.dev]
instructions = """
Register the server with:
[mcp_servers.JungleMCP]
keep this
"""
model = "o3"
`
	ext, err := c.Extract([]byte(original))
	require.NoError(t, err)
	assert.False(t, ext.EntryExists)

	out, err := c.Merge([]byte(original), httpTarget)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), original))

	var doc struct {
		Profiles map[string]struct {
			Instructions string `toml:"instructions"`
			Model        string `toml:"model"`
		} `toml:"profiles"`
		Servers map[string]struct {
			URL string `toml:"url"`
		} `toml:"mcp_servers"`
	}
	require.NoError(t, toml.Unmarshal(out, &doc))
	assert.Equal(t, "o3", doc.Profiles["dev"].Model)
	assert.Contains(t, doc.Profiles["dev"].Instructions, "[mcp_servers.JungleMCP]")
	assert.Equal(t, "http://localhost:8080/mcp", doc.Servers["JungleMCP"].URL)

	stripped, changed, err := c.Strip(out)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, original, string(stripped))
}

func TestNewRejectsCliManaged(t *testing.T) {
	_, err := New(descriptor(t, "claude-code"))
	assert.Error(t, err)
}
