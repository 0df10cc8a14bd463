package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
}

func TestCmdRunnerCapturesOutput(t *testing.T) {
	skipOnWindows(t)

	res := CmdRunner{}.Run(context.Background(), Invocation{
		Executable: "sh",
		Args:       `-c "echo out; echo err >&2"`,
		Timeout:    5 * time.Second,
	})
	require.True(t, res.Succeeded, res.Stderr)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestCmdRunnerNonZeroExitIsNotAnError(t *testing.T) {
	skipOnWindows(t)

	res := CmdRunner{}.Run(context.Background(), Invocation{
		Executable: "sh",
		Args:       `-c "echo nope >&2; exit 3"`,
		Timeout:    5 * time.Second,
	})
	assert.False(t, res.Succeeded)
	assert.False(t, res.TimedOut)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "nope", res.Diagnostic())
}

func TestCmdRunnerTimeout(t *testing.T) {
	skipOnWindows(t)

	start := time.Now()
	res := CmdRunner{}.Run(context.Background(), Invocation{
		Executable: "sleep",
		Args:       "5",
		Timeout:    200 * time.Millisecond,
	})
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.False(t, res.Succeeded)
	assert.True(t, res.TimedOut)
	assert.Contains(t, res.Stderr, "timed out")
}

func TestCmdRunnerMissingExecutable(t *testing.T) {
	res := CmdRunner{}.Run(context.Background(), Invocation{Executable: "definitely-not-a-real-tool-xyz"})
	assert.False(t, res.Succeeded)
	assert.Contains(t, res.Stderr, "not found")
}

func TestCmdRunnerWorkingDirAndPathPrefix(t *testing.T) {
	skipOnWindows(t)

	binDir := t.TempDir()
	script := filepath.Join(binDir, "fake-tool")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\npwd\n"), 0o755))

	workDir := t.TempDir()
	res := CmdRunner{}.Run(context.Background(), Invocation{
		Executable:   "fake-tool",
		Dir:          workDir,
		PathPrefixes: []string{binDir},
	})
	require.True(t, res.Succeeded, res.Stderr)

	want, err := filepath.EvalSymlinks(workDir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(strings.TrimSpace(res.Stdout))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSearchPathIncludesExecutableDir(t *testing.T) {
	exe := filepath.Join(t.TempDir(), "tool")
	path := SearchPath(exe, []string{"/custom/prefix"})
	dirs := filepath.SplitList(path)
	require.GreaterOrEqual(t, len(dirs), 2)
	assert.Equal(t, "/custom/prefix", dirs[0])
	assert.Equal(t, filepath.Dir(exe), dirs[1])
}

func TestDefaultBinDirs(t *testing.T) {
	env := func(key string) string {
		return map[string]string{"APPDATA": `C:\Users\me\AppData\Roaming`}[key]
	}
	darwin := defaultBinDirs("darwin", "/Users/me", env)
	assert.Contains(t, darwin, "/opt/homebrew/bin")
	assert.Contains(t, darwin, filepath.Join("/Users/me", ".local", "bin"))

	linux := defaultBinDirs("linux", "", env)
	assert.Contains(t, linux, "/usr/local/bin")
	assert.NotContains(t, linux, filepath.Join("", ".local", "bin"))
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"mcp list", []string{"mcp", "list"}},
		{`mcp add --transport stdio JungleMCP -- "C:\Program Files\uv\uvx.exe" --from src pkg`,
			[]string{"mcp", "add", "--transport", "stdio", "JungleMCP", "--", `C:\Program Files\uv\uvx.exe`, "--from", "src", "pkg"}},
		{`  a   'b c'  ""`, []string{"a", "b c", ""}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitArgs(tt.in), tt.in)
	}
}

func TestJoinArgsRoundTrip(t *testing.T) {
	args := []string{"mcp", "add", "JungleMCP", "--", `/Users/me/My Tools/uvx`, "--from", "src", ""}
	assert.Equal(t, args, SplitArgs(JoinArgs(args)))
}
