package tools

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpreg/internal/runner"
)

type stubRunner struct {
	out runner.Result
}

func (s stubRunner) Run(context.Context, runner.Invocation) runner.Result { return s.out }

func fakeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, executableName(name))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestNormalizeVersion(t *testing.T) {
	assert.Equal(t, "1.0.35", normalizeVersion("1.0.35 (Claude Code)"))
	assert.Equal(t, "0.4.18", normalizeVersion("uvx 0.4.18 (Homebrew 2024-10-01)"))
	assert.Equal(t, "unknown", normalizeVersion("unknown"))
}

func TestMeetsMinimum(t *testing.T) {
	assert.True(t, meetsMinimum("1.0.35", "1.0.0"))
	assert.True(t, meetsMinimum("1.0", "1.0.0"))
	assert.False(t, meetsMinimum("0.3.9", "0.4.0"))
	assert.False(t, meetsMinimum("", "0.4.0"))
	assert.True(t, meetsMinimum("", ""))
}

func TestDetectFoundAndSatisfied(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on the executable bit")
	}
	dir := t.TempDir()
	fakeExecutable(t, dir, "claude")
	fakeExecutable(t, dir, "uvx")

	statuses := Detect(context.Background(), Options{
		Runner:       stubRunner{out: runner.Result{Succeeded: true, Stdout: "1.2.3 (tool)\n"}},
		PathPrefixes: []string{dir},
	})
	require.Len(t, statuses, 2)
	assert.Equal(t, "claude", statuses[0].Tool)
	for _, st := range statuses {
		assert.True(t, st.Satisfied, st.Tool)
		assert.Equal(t, "1.2.3", st.Version)
		assert.Equal(t, dir, filepath.Dir(st.Path))
	}
}

func TestDetectOverrideAndVersionFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on the executable bit")
	}
	dir := t.TempDir()
	custom := fakeExecutable(t, dir, "my-uvx")

	def, ok := Lookup("uvx")
	require.True(t, ok)
	st := detectOne(context.Background(), def, Options{
		Runner:    stubRunner{out: runner.Result{ExitCode: 2, Stderr: "bad flag"}},
		Overrides: map[string]string{"uvx": custom},
	})
	assert.Equal(t, custom, st.Path)
	assert.False(t, st.Satisfied)
	assert.Contains(t, st.Error, "bad flag")
	assert.Contains(t, st.Notes, "path set by configuration")
}

func TestDetectMissingTool(t *testing.T) {
	def := Definition{Name: "uvx", Executable: "definitely-not-a-tool-xyz", MinimumVersion: "0.4.0", VersionSwitch: "--version"}
	st := detectOne(context.Background(), def, Options{Runner: stubRunner{}})
	assert.False(t, st.Satisfied)
	assert.Contains(t, st.Error, "not found")
	assert.NotEmpty(t, st.Notes)
}

func TestInstallHints(t *testing.T) {
	assert.NotEmpty(t, installHints("uvx", "darwin"))
	assert.NotEmpty(t, installHints("uvx", "plan9"))
	assert.NotEmpty(t, InstallHints("claude"))
	assert.Nil(t, installHints("ffmpeg", "linux"))
}

func TestNormalizeVersionUsesFirstLine(t *testing.T) {
	assert.Equal(t, "2.1.0", normalizeVersion("\n  claude 2.1.0\nbuilt 3.4.5\n"))
	assert.True(t, meetsMinimum("v1.2", "1.1.9"))
}
