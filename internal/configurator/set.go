package configurator

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"mcpreg/internal/clients"
	"mcpreg/internal/hostthread"
	"mcpreg/internal/registration"
	"mcpreg/internal/runner"
)

// Options carries the shared collaborators for Build.
type Options struct {
	Targets      TargetSource
	Runner       runner.Runner
	Logger       logrus.FieldLogger
	PathPrefixes []string
}

// Set holds one Configurator per registered client, keyed by id.
type Set struct {
	reg  *clients.Registry
	byID map[string]Configurator
}

// Build creates a configurator for every descriptor in reg.
func Build(reg *clients.Registry, opts Options) (*Set, error) {
	s := &Set{reg: reg, byID: make(map[string]Configurator)}
	for _, d := range reg.All() {
		c, err := New(d, opts)
		if err != nil {
			return nil, err
		}
		s.byID[d.ID] = c
	}
	return s, nil
}

// New picks the configurator variant for d.
func New(d clients.Descriptor, opts Options) (Configurator, error) {
	switch d.Kind {
	case clients.CliManaged:
		return NewCLI(d, opts.Targets, opts.Runner, opts.Logger, opts.PathPrefixes)
	case clients.StructuredFile, clients.FlatTextFile:
		return NewFile(d, opts.Targets, opts.Logger)
	default:
		return nil, fmt.Errorf("%s: unsupported client kind %s", d.ID, d.Kind)
	}
}

// Get returns the configurator for id, ignoring case.
func (s *Set) Get(id string) (Configurator, error) {
	d, err := s.reg.Lookup(id)
	if err != nil {
		return nil, err
	}
	return s.byID[d.ID], nil
}

// All returns every configurator ordered by client id.
func (s *Set) All() []Configurator {
	ids := s.reg.IDs()
	out := make([]Configurator, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out
}

// Select resolves ids to configurators. No ids, or the single id "all",
// selects every client.
func (s *Set) Select(ids []string) ([]Configurator, error) {
	if len(ids) == 0 || (len(ids) == 1 && ids[0] == "all") {
		return s.All(), nil
	}
	out := make([]Configurator, 0, len(ids))
	for _, id := range ids {
		c, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// StatusOnLoop evaluates c with the privileged inputs read from h. Call it
// only from inside a loop callback.
func StatusOnLoop(ctx context.Context, h *hostthread.Handle, c Configurator, autoRewrite bool) registration.Status {
	return c.Status(ctx, h.Capture(), autoRewrite)
}

// ConfigureOnLoop writes the expected registration using the privileged
// inputs read from h.
func ConfigureOnLoop(ctx context.Context, h *hostthread.Handle, c Configurator) error {
	return c.Configure(ctx, h.Capture())
}

// UnregisterOnLoop removes the registration using the privileged inputs read
// from h.
func UnregisterOnLoop(ctx context.Context, h *hostthread.Handle, c Configurator) error {
	return c.Unregister(ctx, h.Capture())
}

// Outcome is the result of reconciling one client.
type Outcome struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Status    registration.Status `json:"status"`
	Rewritten bool                `json:"rewritten,omitempty"`
	Err       error               `json:"-"`
}

// Reconcile checks every configurator off the loop and, when the captured
// preferences ask for it, dispatches rewrites of mismatched entries back to
// the loop. Clients that are absent or missing an entry are left alone.
func Reconcile(ctx context.Context, loop *hostthread.Loop, cs []Configurator, log logrus.FieldLogger) ([]Outcome, error) {
	if log == nil {
		log = discardLogger()
	}
	snap, err := loop.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture host state: %w", err)
	}

	outcomes := make([]Outcome, 0, len(cs))
	for _, c := range cs {
		d := c.Descriptor()
		out := Outcome{ID: d.ID, Name: d.Name}
		out.Status = c.Status(ctx, snap, false)

		if out.Status.State == registration.IncorrectPath && snap.Prefs.AutoRewrite {
			err := loop.Do(ctx, func(h *hostthread.Handle) error {
				return ConfigureOnLoop(ctx, h, c)
			})
			if err != nil {
				out.Err = err
				out.Status = registration.Status{State: registration.IncorrectPath, Detail: "rewrite failed: " + err.Error()}
			} else {
				out.Rewritten = true
				out.Status = c.Status(ctx, snap, false)
			}
		}

		log.WithFields(logrus.Fields{
			"client":    d.ID,
			"state":     out.Status.State,
			"rewritten": out.Rewritten,
		}).Info("reconciled")
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
