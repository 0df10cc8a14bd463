// Package configurator reconciles each client's persisted registration with
// the expected connection target. Every client kind is served by one
// Configurator; all of them share the same status evaluation.
package configurator

import (
	"context"
	"errors"
	"fmt"

	"mcpreg/internal/clients"
	"mcpreg/internal/hostthread"
	"mcpreg/internal/match"
	"mcpreg/internal/registration"
)

var (
	// ErrTransportUnsupported is returned when the expected transport is not
	// one the client can use.
	ErrTransportUnsupported = errors.New("transport not supported by client")
	// ErrToolNotFound is returned when a client's CLI cannot be located.
	ErrToolNotFound = errors.New("client tool not found")
)

// Configurator reads and rewrites one client's registration.
//
// Status never fails; problems are reported as an Error status. Configure,
// Unregister and Preview return errors. None of the methods touch privileged
// state: inputs arrive through the Snapshot.
type Configurator interface {
	Descriptor() clients.Descriptor
	Status(ctx context.Context, in hostthread.Snapshot, autoRewrite bool) registration.Status
	Configure(ctx context.Context, in hostthread.Snapshot) error
	Unregister(ctx context.Context, in hostthread.Snapshot) error
	Preview(ctx context.Context, in hostthread.Snapshot) (Preview, error)
	ManualInstructions(in hostthread.Snapshot) string
	InstallSteps() []string
}

// Preview describes what Configure would change.
type Preview struct {
	// Path, Before and After are set for file-backed clients.
	Path   string
	Before []byte
	After  []byte
	// Commands lists the CLI invocations for externally managed clients.
	Commands []string
}

// Changed reports whether applying the preview would modify anything.
func (p Preview) Changed() bool {
	if len(p.Commands) > 0 {
		return true
	}
	return string(p.Before) != string(p.After)
}

// TargetSource supplies the expected connection target for a client.
type TargetSource interface {
	Expected(d clients.Descriptor, prefs hostthread.Preferences) (registration.Target, error)
}

// TargetFunc adapts a function to TargetSource.
type TargetFunc func(d clients.Descriptor, prefs hostthread.Preferences) (registration.Target, error)

func (f TargetFunc) Expected(d clients.Descriptor, prefs hostthread.Preferences) (registration.Target, error) {
	return f(d, prefs)
}

// expected resolves and checks the target for d.
func expected(targets TargetSource, d clients.Descriptor, prefs hostthread.Preferences) (registration.Target, error) {
	if targets == nil {
		return registration.Target{}, fmt.Errorf("%s: no target source", d.ID)
	}
	target, err := targets.Expected(d, prefs)
	if err != nil {
		return registration.Target{}, fmt.Errorf("%s: expected target: %w", d.ID, err)
	}
	if err := target.Validate(); err != nil {
		return registration.Target{}, fmt.Errorf("%s: expected target: %w", d.ID, err)
	}
	switch {
	case target.Transport == registration.TransportHTTP && !d.SupportsHTTP,
		target.Transport == registration.TransportStdio && !d.SupportsStdio:
		return registration.Target{}, fmt.Errorf("%s: %w: %s", d.Name, ErrTransportUnsupported, target.Transport)
	}
	return target, nil
}

// observation is what a configurator found while reading its artifact.
type observation struct {
	ArtifactExists bool
	EntryExists    bool
	Matches        bool
	// Found describes the existing entry for mismatch diagnostics.
	Found string
	// Detail annotates a NotConfigured result.
	Detail string
}

// evaluate runs the shared status state machine. read is called once, and
// again after a successful rewrite to confirm it took effect.
func evaluate(read func() (observation, error), rewrite func() error, autoRewrite bool, want string) (status registration.Status) {
	defer func() {
		if r := recover(); r != nil {
			status = registration.Failed(fmt.Errorf("status check panicked: %v", r))
		}
	}()

	obs, err := read()
	if err != nil {
		return registration.Failed(err)
	}
	switch {
	case !obs.ArtifactExists:
		return registration.Status{State: registration.NotConfigured, Detail: obs.Detail}
	case !obs.EntryExists:
		return registration.Status{State: registration.MissingConfig}
	case obs.Matches:
		return registration.Status{State: registration.Configured}
	}

	mismatch := fmt.Sprintf("found %s, expected %s", obs.Found, want)
	if !autoRewrite {
		return registration.Status{State: registration.IncorrectPath, Detail: mismatch}
	}
	if err := rewrite(); err != nil {
		return registration.Status{State: registration.IncorrectPath, Detail: "rewrite failed: " + err.Error()}
	}

	obs, err = read()
	if err != nil {
		return registration.Failed(err)
	}
	if !obs.EntryExists || !obs.Matches {
		return registration.Status{State: registration.IncorrectPath, Detail: "rewrite did not take effect: " + mismatch}
	}
	return registration.Status{State: registration.Configured}
}

// matchesTarget compares an extracted registration with the expected target.
func matchesTarget(ext registration.Extracted, target registration.Target) bool {
	switch target.Transport {
	case registration.TransportHTTP:
		return ext.URL != "" && match.URLsEqual(ext.URL, target.URL)
	case registration.TransportStdio:
		if ext.URL != "" || ext.PackageSource == "" {
			return false
		}
		return match.PathsEqual(ext.PackageSource, target.Launch.PackageSource)
	default:
		return false
	}
}
