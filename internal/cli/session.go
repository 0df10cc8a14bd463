package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mcpreg/internal/clients"
	"mcpreg/internal/config"
	"mcpreg/internal/configurator"
	"mcpreg/internal/hostthread"
	"mcpreg/internal/logx"
	"mcpreg/internal/paths"
	"mcpreg/internal/registration"
	"mcpreg/internal/runner"
)

// Test seams.
var (
	getenv    = os.Getenv
	newRunner = func() runner.Runner { return runner.CmdRunner{} }
)

// settings is the effective configuration for one invocation: mcpreg.yaml,
// then .env and process environment, then command-line flags.
type settings struct {
	paths       paths.ProjectPaths
	cfg         config.Config
	validations []config.ValidationResult
	reg         *clients.Registry
	prefixes    []string
}

func loadSettings() (settings, error) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return settings{}, err
	}
	if err := ensureProjectDir(pp); err != nil {
		return settings{}, err
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return settings{}, err
	}
	envFile, err := config.ReadEnvFile(pp.EnvFile)
	if err != nil {
		return settings{}, err
	}
	if err := cfg.ApplyEnv(config.EnvLookup(envFile, getenv)); err != nil {
		return settings{}, err
	}
	if err := applyFlags(&cfg); err != nil {
		return settings{}, err
	}
	pp = paths.ApplyConfig(pp, cfg)

	reg, err := buildRegistry(cfg, pp.Root)
	if err != nil {
		return settings{}, err
	}

	return settings{
		paths:       pp,
		cfg:         cfg,
		validations: cfg.Validate(builtinIDs()),
		reg:         reg,
		prefixes:    searchPrefixes(cfg, pp.Root),
	}, nil
}

func ensureProjectDir(pp paths.ProjectPaths) error {
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return fmt.Errorf("stat project dir: %w", err)
	}
	if !exists {
		return fmt.Errorf("project directory does not exist: %s", pp.Root)
	}
	return nil
}

func applyFlags(cfg *config.Config) error {
	if value := strings.TrimSpace(transportFlag); value != "" {
		t, err := registration.ParseTransport(value)
		if err != nil {
			return fmt.Errorf("--transport: %w", err)
		}
		cfg.Preferences.Transport = string(t)
	}
	if forceFresh {
		cfg.Preferences.ForceFresh = true
	}
	if debugLog {
		cfg.LogLevel = "debug"
	}
	return nil
}

func builtinIDs() []string {
	var ids []string
	for _, d := range clients.Builtin() {
		ids = append(ids, d.ID)
	}
	return ids
}

// buildRegistry applies the clients section of the config to the built-in
// table.
func buildRegistry(cfg config.Config, root string) (*clients.Registry, error) {
	var descs []clients.Descriptor
	for _, d := range clients.Builtin() {
		override := cfg.Client(d.ID)
		if override.Disabled {
			continue
		}
		if p := paths.ResolveProjectPath(root, override.Path); p != "" {
			d = d.WithPath(p)
		}
		if tp := strings.TrimSpace(override.ToolPath); tp != "" {
			expanded, err := paths.ExpandHome(tp)
			if err != nil {
				return nil, err
			}
			d.ToolPath = paths.ResolveProjectPath(root, expanded)
		}
		descs = append(descs, d)
	}
	return clients.NewRegistry(descs)
}

func searchPrefixes(cfg config.Config, root string) []string {
	var out []string
	for _, p := range cfg.ExtraPaths {
		expanded, err := paths.ExpandHome(strings.TrimSpace(p))
		if err != nil || expanded == "" {
			continue
		}
		out = append(out, paths.ResolveProjectPath(root, expanded))
	}
	return out
}

func validationError(results []config.ValidationResult) error {
	var errs []error
	for _, r := range results {
		if r.Level == "error" {
			errs = append(errs, errors.New(r.Message))
		}
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}

// session wires the configurators for one command run. Close must be
// called to stop the host loop and flush the log.
type session struct {
	settings
	log    *logrus.Logger
	closer io.Closer
	loop   *hostthread.Loop
	set    *configurator.Set
	cancel context.CancelFunc
}

func openSession(cmd *cobra.Command) (*session, error) {
	st, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if config.HasErrors(st.validations) {
		return nil, validationError(st.validations)
	}
	if !outputJSON {
		for _, v := range st.validations {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", v.Message)
		}
	}

	log, closer := openLogger(st)
	st.cfg.Launch.Executable = resolveLauncher(st.cfg.Launch.Executable, st.prefixes, log)

	prefs, err := st.cfg.HostPreferences()
	if err != nil {
		closer.Close()
		return nil, err
	}

	set, err := configurator.Build(st.reg, configurator.Options{
		Targets:      configurator.TargetFunc(st.cfg.Expected),
		Runner:       newRunner(),
		Logger:       log,
		PathPrefixes: st.prefixes,
	})
	if err != nil {
		closer.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	loop := hostthread.New(hostthread.Snapshot{Prefs: prefs, ProjectDir: st.paths.Root})
	loop.Start(ctx)

	log.WithFields(logrus.Fields{
		"command":   cmd.Name(),
		"project":   st.paths.Root,
		"transport": prefs.Transport,
	}).Info("session started")

	return &session{
		settings: st,
		log:      log,
		closer:   closer,
		loop:     loop,
		set:      set,
		cancel:   cancel,
	}, nil
}

// openLogger writes to the project logs directory, then ~/.mcpreg/logs,
// and finally discards entries when neither is writable.
func openLogger(st settings) (*logrus.Logger, io.Closer) {
	level := st.cfg.LogLevel
	if level == "" {
		level = "info"
	}
	if log, closer, err := logx.New(st.paths.LogsDir, level); err == nil {
		return log, closer
	}
	if dir, err := paths.GlobalLogsDir(); err == nil {
		if log, closer, err := logx.New(dir, level); err == nil {
			return log, closer
		}
	}
	return logx.Discard(), nopCloser{}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// resolveLauncher turns a bare launcher name into an absolute path so
// clients started without a login shell can still spawn it.
func resolveLauncher(exe string, prefixes []string, log logrus.FieldLogger) string {
	if exe == "" || filepath.IsAbs(exe) {
		return exe
	}
	expanded, err := paths.ExpandHome(exe)
	if err == nil && filepath.IsAbs(expanded) {
		return expanded
	}
	found, err := runner.LookPath(exe, prefixes)
	if err != nil {
		log.WithField("executable", exe).Warn("launcher not found; registering bare name")
		return exe
	}
	return found
}

func (s *session) Close() {
	s.loop.Stop()
	s.loop.Wait()
	s.cancel()
	s.log.Info("session finished")
	_ = s.closer.Close()
}

func (s *session) snapshot(ctx context.Context) (hostthread.Snapshot, error) {
	snap, err := s.loop.Capture(ctx)
	if err != nil {
		return hostthread.Snapshot{}, fmt.Errorf("capture host state: %w", err)
	}
	return snap, nil
}

func (s *session) configure(ctx context.Context, c configurator.Configurator) error {
	return s.loop.Do(ctx, func(h *hostthread.Handle) error {
		return configurator.ConfigureOnLoop(ctx, h, c)
	})
}

func (s *session) unregister(ctx context.Context, c configurator.Configurator) error {
	return s.loop.Do(ctx, func(h *hostthread.Handle) error {
		return configurator.UnregisterOnLoop(ctx, h, c)
	})
}
