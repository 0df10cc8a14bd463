package configurator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mcpreg/internal/clients"
	"mcpreg/internal/hostthread"
	"mcpreg/internal/registration"
	"mcpreg/internal/runner"
	"mcpreg/internal/scan"
	"mcpreg/internal/tools"
)

const (
	ListTimeout   = 10 * time.Second
	GetTimeout    = 7 * time.Second
	MutateTimeout = 15 * time.Second
)

// CLI serves clients whose registrations live in an external tool's private
// registry, reachable only through the tool's "mcp" subcommands.
type CLI struct {
	desc         clients.Descriptor
	targets      TargetSource
	run          runner.Runner
	log          logrus.FieldLogger
	pathPrefixes []string

	lookPath func(name string, prefixes []string) (string, error)
}

// NewCLI builds the configurator for a CliManaged client.
func NewCLI(d clients.Descriptor, targets TargetSource, run runner.Runner, log logrus.FieldLogger, pathPrefixes []string) (*CLI, error) {
	if d.Kind != clients.CliManaged {
		return nil, fmt.Errorf("%s: %s is not managed by a CLI", d.ID, d.Kind)
	}
	if strings.TrimSpace(d.Tool) == "" && strings.TrimSpace(d.ToolPath) == "" {
		return nil, fmt.Errorf("%s: no tool configured", d.ID)
	}
	if run == nil {
		run = runner.CmdRunner{}
	}
	if log == nil {
		log = discardLogger()
	}
	return &CLI{
		desc:         d,
		targets:      targets,
		run:          run,
		log:          log.WithField("client", d.ID),
		pathPrefixes: append([]string(nil), pathPrefixes...),
		lookPath:     runner.LookPath,
	}, nil
}

func (c *CLI) Descriptor() clients.Descriptor { return c.desc }

func (c *CLI) tool() string {
	if p := strings.TrimSpace(c.desc.ToolPath); p != "" {
		return p
	}
	return c.desc.Tool
}

// locate finds the tool executable.
func (c *CLI) locate() (string, error) {
	exe, err := c.lookPath(c.tool(), c.pathPrefixes)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", c.desc.Name, ErrToolNotFound, c.tool())
	}
	return exe, nil
}

func (c *CLI) invoke(ctx context.Context, exe, dir string, timeout time.Duration, args ...string) runner.Result {
	inv := runner.Invocation{
		Executable:   exe,
		Args:         runner.JoinArgs(args),
		Dir:          dir,
		Timeout:      timeout,
		PathPrefixes: c.pathPrefixes,
	}
	res := c.run.Run(ctx, inv)
	c.log.WithFields(logrus.Fields{
		"args":      inv.Args,
		"succeeded": res.Succeeded,
		"exit":      res.ExitCode,
		"timed_out": res.TimedOut,
	}).Debug("ran client tool")
	return res
}

func (c *CLI) Status(ctx context.Context, in hostthread.Snapshot, autoRewrite bool) registration.Status {
	target, err := expected(c.targets, c.desc, in.Prefs)
	if err != nil {
		return registration.Failed(err)
	}

	exe, lookErr := c.locate()
	read := func() (observation, error) {
		if lookErr != nil {
			return observation{Detail: lookErr.Error()}, nil
		}
		return c.observe(ctx, exe, in.ProjectDir, target)
	}
	rewrite := func() error {
		c.log.Info("re-registering mismatched entry")
		return c.apply(ctx, exe, in.ProjectDir, target)
	}

	status := evaluate(read, rewrite, autoRewrite, describeTarget(target))
	c.log.WithField("state", status.State).Debug("evaluated")
	return status
}

func (c *CLI) observe(ctx context.Context, exe, dir string, target registration.Target) (observation, error) {
	list := c.invoke(ctx, exe, dir, ListTimeout, "mcp", "list")
	if !list.Succeeded {
		return observation{}, fmt.Errorf("%s mcp list failed: %s", c.desc.Tool, list.Diagnostic())
	}
	keys := c.desc.Keys()
	if !scan.ContainsName(list.Stdout, keys...) {
		return observation{}, nil
	}

	var lastErr error
	for _, key := range keys {
		detail := c.invoke(ctx, exe, dir, GetTimeout, "mcp", "get", key)
		if !detail.Succeeded {
			lastErr = fmt.Errorf("%s mcp get %s failed: %s", c.desc.Tool, key, detail.Diagnostic())
			if detail.TimedOut {
				break
			}
			continue
		}
		return c.compare(detail.Stdout, target), nil
	}
	return observation{}, lastErr
}

func (c *CLI) compare(detail string, target registration.Target) observation {
	obs := observation{ArtifactExists: true, EntryExists: true}
	transport, ok := scan.TransportFromText(detail)
	src, hasSource := scan.FromText(detail)

	found := "unknown transport"
	if ok {
		found = transport
	}
	if hasSource {
		found += " from " + src
	}
	obs.Found = found

	if !ok || registration.Transport(transport) != target.Transport {
		return obs
	}
	if target.Transport == registration.TransportStdio {
		obs.Matches = hasSource && matchesTarget(registration.Extracted{PackageSource: src}, target)
		return obs
	}
	obs.Matches = true
	return obs
}

// describeTarget renders the target the way compare renders what it found.
func describeTarget(t registration.Target) string {
	if t.Transport == registration.TransportStdio {
		return string(t.Transport) + " from " + t.Launch.PackageSource
	}
	return string(t.Transport) + " " + t.URL
}

// removeArgs are the invocations that clear every casing of the entry.
func (c *CLI) removeArgs() [][]string {
	var out [][]string
	for _, key := range c.desc.Keys() {
		out = append(out, []string{"mcp", "remove", key})
	}
	return out
}

func (c *CLI) addArgs(target registration.Target) []string {
	args := []string{"mcp", "add", "--transport", string(target.Transport), c.desc.Key}
	if target.Transport == registration.TransportHTTP {
		return append(args, target.URL)
	}
	args = append(args, "--", target.Launch.Executable)
	return append(args, target.Launch.Args()...)
}

// remove clears both casings. A failed remove usually means the entry was
// absent, so failures are checked against a fresh listing: the entry still
// being listed is an error carrying the remove diagnostics. Timeouts are
// always errors.
func (c *CLI) remove(ctx context.Context, exe, dir string) error {
	var (
		errs   []error
		failed []string
	)
	for _, args := range c.removeArgs() {
		res := c.invoke(ctx, exe, dir, MutateTimeout, args...)
		switch {
		case res.TimedOut:
			errs = append(errs, fmt.Errorf("%s %s: %s", c.desc.Tool, strings.Join(args, " "), res.Diagnostic()))
		case !res.Succeeded:
			failed = append(failed, fmt.Sprintf("%s %s: %s", c.desc.Tool, strings.Join(args, " "), res.Diagnostic()))
		}
	}
	if len(errs) > 0 || len(failed) == 0 {
		return errors.Join(errs...)
	}

	list := c.invoke(ctx, exe, dir, ListTimeout, "mcp", "list")
	if !list.Succeeded {
		return fmt.Errorf("%s mcp list failed after remove: %s (%s)", c.desc.Tool, list.Diagnostic(), strings.Join(failed, "; "))
	}
	if scan.ContainsName(list.Stdout, c.desc.Keys()...) {
		return fmt.Errorf("%s is still registered: %s", c.desc.Key, strings.Join(failed, "; "))
	}
	return nil
}

func (c *CLI) apply(ctx context.Context, exe, dir string, target registration.Target) error {
	if err := c.remove(ctx, exe, dir); err != nil {
		return err
	}
	args := c.addArgs(target)
	res := c.invoke(ctx, exe, dir, MutateTimeout, args...)
	if !res.Succeeded {
		return fmt.Errorf("%s mcp add failed: %s", c.desc.Tool, res.Diagnostic())
	}
	return nil
}

func (c *CLI) Configure(ctx context.Context, in hostthread.Snapshot) error {
	target, err := expected(c.targets, c.desc, in.Prefs)
	if err != nil {
		return err
	}
	exe, err := c.locate()
	if err != nil {
		return err
	}
	if err := c.apply(ctx, exe, in.ProjectDir, target); err != nil {
		return fmt.Errorf("configure %s: %w", c.desc.Name, err)
	}
	c.log.WithField("target", target.String()).Info("registration added")
	return nil
}

func (c *CLI) Unregister(ctx context.Context, in hostthread.Snapshot) error {
	exe, err := c.locate()
	if err != nil {
		return err
	}
	if err := c.remove(ctx, exe, in.ProjectDir); err != nil {
		return fmt.Errorf("unregister %s: %w", c.desc.Name, err)
	}
	c.log.Info("registration removed")
	return nil
}

func (c *CLI) commandLines(target registration.Target) []string {
	var lines []string
	for _, args := range c.removeArgs() {
		lines = append(lines, c.tool()+" "+runner.JoinArgs(args))
	}
	return append(lines, c.tool()+" "+runner.JoinArgs(c.addArgs(target)))
}

func (c *CLI) Preview(ctx context.Context, in hostthread.Snapshot) (Preview, error) {
	if err := ctx.Err(); err != nil {
		return Preview{}, err
	}
	target, err := expected(c.targets, c.desc, in.Prefs)
	if err != nil {
		return Preview{}, err
	}
	return Preview{Commands: c.commandLines(target)}, nil
}

func (c *CLI) ManualInstructions(in hostthread.Snapshot) string {
	target, err := expected(c.targets, c.desc, in.Prefs)
	if err != nil {
		return err.Error()
	}
	var b strings.Builder
	b.WriteString("Run the following from your project directory:\n\n")
	for _, line := range c.commandLines(target) {
		b.WriteString("  " + line + "\n")
	}
	return b.String()
}

func (c *CLI) InstallSteps() []string {
	steps := []string{
		fmt.Sprintf("Install %s and make sure %q is on your PATH.", c.desc.Name, c.desc.Tool),
	}
	steps = append(steps, tools.InstallHints(c.desc.Tool)...)
	steps = append(steps,
		"Open a terminal in your project directory.",
		"Run the commands shown in the manual instructions.",
		fmt.Sprintf("Check the result with %q.", c.desc.Tool+" mcp list"),
	)
	if c.desc.DocsURL != "" {
		steps = append(steps, "See "+c.desc.DocsURL+" for details.")
	}
	return steps
}

var _ Configurator = (*CLI)(nil)
