package tools

import (
	"runtime"
	"sort"
)

var toolDefinitions = map[string]Definition{
	"claude": {
		Name:           "claude",
		Executable:     executableName("claude"),
		MinimumVersion: "1.0.0",
		VersionSwitch:  "--version",
		UsedFor:        "Claude Code registrations",
	},
	"uvx": {
		Name:           "uvx",
		Executable:     executableName("uvx"),
		MinimumVersion: "0.4.0",
		VersionSwitch:  "--version",
		UsedFor:        "stdio launch targets",
	},
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// KnownTools returns the list of probed tool names.
func KnownTools() []string {
	names := make([]string, 0, len(toolDefinitions))
	for name := range toolDefinitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the tool definition for the provided name.
func Lookup(name string) (Definition, bool) {
	def, ok := toolDefinitions[name]
	return def, ok
}
