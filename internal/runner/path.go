package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNotFound is returned when an executable cannot be located.
var ErrNotFound = errors.New("executable not found")

// DefaultBinDirs lists the platform directories where CLI tools commonly
// live but which GUI-launched processes often lack on PATH.
func DefaultBinDirs() []string {
	home, _ := os.UserHomeDir()
	return defaultBinDirs(runtime.GOOS, home, os.Getenv)
}

func defaultBinDirs(goos, home string, getenv func(string) string) []string {
	var dirs []string
	switch goos {
	case "darwin":
		dirs = []string{"/opt/homebrew/bin", "/usr/local/bin", "/usr/bin", "/bin"}
	case "windows":
		if appData := getenv("APPDATA"); appData != "" {
			dirs = append(dirs, filepath.Join(appData, "npm"))
		}
		if local := getenv("LOCALAPPDATA"); local != "" {
			dirs = append(dirs, filepath.Join(local, "Programs", "uv"))
		}
	default:
		dirs = []string{"/usr/local/bin", "/usr/bin", "/bin", "/snap/bin"}
	}
	if home != "" {
		dirs = append(dirs,
			filepath.Join(home, ".local", "bin"),
			filepath.Join(home, ".cargo", "bin"),
			filepath.Join(home, ".claude", "local"),
			filepath.Join(home, ".npm-global", "bin"),
		)
	}
	return dirs
}

// SearchPath builds the PATH for a child process: explicit prefixes first,
// then the executable's own directory, the platform defaults and finally the
// inherited PATH. Duplicates are dropped.
func SearchPath(executable string, prefixes []string) string {
	var dirs []string
	dirs = append(dirs, prefixes...)
	if filepath.IsAbs(executable) {
		dirs = append(dirs, filepath.Dir(executable))
	}
	dirs = append(dirs, DefaultBinDirs()...)
	dirs = append(dirs, filepath.SplitList(os.Getenv("PATH"))...)
	return joinUnique(dirs)
}

func joinUnique(dirs []string) string {
	seen := map[string]bool{}
	var out []string
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		key := filepath.Clean(dir)
		if runtime.GOOS == "windows" {
			key = strings.ToLower(key)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, dir)
	}
	return strings.Join(out, string(os.PathListSeparator))
}

// LookPath resolves name against the augmented search path.
func LookPath(name string, prefixes []string) (string, error) {
	return LookPathIn(name, SearchPath(name, prefixes))
}

// LookPathIn resolves name against an explicit PATH value. Names containing
// a separator are only checked for existence.
func LookPathIn(name, searchPath string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrNotFound)
	}
	if strings.ContainsAny(name, `/\`) {
		if isExecutable(name) {
			return name, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	for _, dir := range filepath.SplitList(searchPath) {
		for _, candidate := range candidates(name) {
			path := filepath.Join(dir, candidate)
			if isExecutable(path) {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

func candidates(name string) []string {
	if runtime.GOOS != "windows" || filepath.Ext(name) != "" {
		return []string{name}
	}
	return []string{name + ".exe", name + ".cmd", name + ".bat", name}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}

// SplitArgs splits an argument string on whitespace, honoring single and
// double quotes. Backslashes are literal so Windows paths survive.
func SplitArgs(s string) []string {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inToken bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inToken {
				args = append(args, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}
	if inToken {
		args = append(args, current.String())
	}
	return args
}

// JoinArgs is the inverse of SplitArgs for arguments without embedded
// double quotes.
func JoinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t'") {
			quoted[i] = `"` + arg + `"`
			continue
		}
		quoted[i] = arg
	}
	return strings.Join(quoted, " ")
}
