package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mcpreg/internal/config"
)

// ProjectPaths captures canonical locations for an mcpreg project.
type ProjectPaths struct {
	Root       string
	ConfigFile string
	EnvFile    string
	MetaDir    string
	LogsDir    string
}

// Resolve determines the project root using the optional --project flag or the
// current working directory when the flag is empty.
func Resolve(projectFlag string) (ProjectPaths, error) {
	var (
		root string
		err  error
	)

	if projectFlag != "" {
		root, err = filepath.Abs(projectFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	return newProjectPaths(root), nil
}

func newProjectPaths(root string) ProjectPaths {
	metaDir := filepath.Join(root, ".mcpreg")
	return ProjectPaths{
		Root:       root,
		ConfigFile: filepath.Join(root, "mcpreg.yaml"),
		EnvFile:    filepath.Join(root, ".env"),
		MetaDir:    metaDir,
		LogsDir:    filepath.Join(metaDir, "logs"),
	}
}

// ApplyConfig relocates directories the config overrides.
func ApplyConfig(pp ProjectPaths, cfg config.Config) ProjectPaths {
	if logs := strings.TrimSpace(cfg.LogsDir); logs != "" {
		pp.LogsDir = ResolveProjectPath(pp.Root, logs)
	}
	return pp
}

// ResolveProjectPath makes value absolute relative to root. Values starting
// with "~", "$" or a "{" placeholder are left for later expansion.
func ResolveProjectPath(root, value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return ""
	case strings.HasPrefix(value, "~"), strings.HasPrefix(value, "$"), strings.HasPrefix(value, "{"):
		return value
	case filepath.IsAbs(value):
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(value string) (string, error) {
	if value != "~" && !strings.HasPrefix(value, "~/") && !strings.HasPrefix(value, `~\`) {
		return value, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}
	return filepath.Join(home, value[1:]), nil
}

// EnsureMetaDirs creates the hidden .mcpreg metadata directory and its logs
// directory.
func (p ProjectPaths) EnsureMetaDirs() error {
	for _, dir := range []string{p.MetaDir, p.LogsDir} {
		if _, err := ensureDir(dir); err != nil {
			return err
		}
	}
	return nil
}

// GlobalDir returns the user-level mcpreg directory (~/.mcpreg), creating
// it when needed.
func GlobalDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}
	return ensureDir(filepath.Join(home, ".mcpreg"))
}

// GlobalLogsDir returns ~/.mcpreg/logs, used when the project directory is
// not writable.
func GlobalLogsDir() (string, error) {
	global, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return ensureDir(filepath.Join(global, "logs"))
}

func ensureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	return dir, nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, ok, err := stat(path)
	return ok && info.Mode().IsRegular(), err
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, ok, err := stat(path)
	return ok && info.IsDir(), err
}

func stat(path string) (os.FileInfo, bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return info, true, nil
	case errors.Is(err, os.ErrNotExist):
		return nil, false, nil
	default:
		return nil, false, err
	}
}
