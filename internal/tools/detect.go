package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mcpreg/internal/runner"
)

const versionTimeout = 5 * time.Second

// Options controls where tools are looked up.
type Options struct {
	Runner       runner.Runner
	PathPrefixes []string
	// Overrides maps a tool name to an explicit executable path.
	Overrides map[string]string
}

// Detect returns the status of each known tool sorted by name.
func Detect(ctx context.Context, opts Options) []Status {
	if opts.Runner == nil {
		opts.Runner = runner.CmdRunner{}
	}
	var statuses []Status
	for _, name := range KnownTools() {
		def, _ := Lookup(name)
		statuses = append(statuses, detectOne(ctx, def, opts))
	}
	return statuses
}

func detectOne(ctx context.Context, def Definition, opts Options) Status {
	status := Status{Tool: def.Name, Minimum: def.MinimumVersion}

	executable := def.Executable
	if override := strings.TrimSpace(opts.Overrides[def.Name]); override != "" {
		executable = override
		status.Notes = append(status.Notes, "path set by configuration")
	}

	path, err := runner.LookPath(executable, opts.PathPrefixes)
	if err != nil {
		status.Error = fmt.Sprintf("%s not found in PATH", executable)
		status.Notes = append(status.Notes, InstallHints(def.Name)...)
		return status
	}
	status.Path = path

	res := opts.Runner.Run(ctx, runner.Invocation{
		Executable:   path,
		Args:         def.VersionSwitch,
		Timeout:      versionTimeout,
		PathPrefixes: opts.PathPrefixes,
	})
	if !res.Succeeded {
		status.Error = fmt.Sprintf("%s version: %s", def.Name, res.Diagnostic())
		return status
	}

	status.Version = normalizeVersion(res.Stdout)
	status.Satisfied = meetsMinimum(status.Version, def.MinimumVersion)
	if !status.Satisfied {
		status.Error = fmt.Sprintf("version %s below minimum %s", status.Version, def.MinimumVersion)
	}
	return status
}
