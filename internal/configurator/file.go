package configurator

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"

	"mcpreg/internal/clients"
	"mcpreg/internal/codec"
	"mcpreg/internal/hostthread"
	"mcpreg/internal/registration"
)

// File serves clients whose registration lives in a local file.
type File struct {
	desc    clients.Descriptor
	codec   codec.Codec
	targets TargetSource
	log     logrus.FieldLogger
}

// NewFile builds the configurator for a StructuredFile or FlatTextFile client.
func NewFile(d clients.Descriptor, targets TargetSource, log logrus.FieldLogger) (*File, error) {
	c, err := codec.New(d)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = discardLogger()
	}
	return &File{
		desc:    d,
		codec:   c,
		targets: targets,
		log:     log.WithField("client", d.ID),
	}, nil
}

func (f *File) Descriptor() clients.Descriptor { return f.desc }

func (f *File) path(in hostthread.Snapshot) (string, error) {
	p, err := f.desc.ArtifactPath(in.ProjectDir)
	if err != nil {
		return "", fmt.Errorf("%s: %w", f.desc.Name, err)
	}
	return p, nil
}

func (f *File) Status(ctx context.Context, in hostthread.Snapshot, autoRewrite bool) registration.Status {
	if err := ctx.Err(); err != nil {
		return registration.Failed(err)
	}
	target, err := expected(f.targets, f.desc, in.Prefs)
	if err != nil {
		return registration.Failed(err)
	}
	path, err := f.path(in)
	if err != nil {
		return registration.Failed(err)
	}

	read := func() (observation, error) {
		ext, err := codec.Read(f.codec, path)
		if err != nil {
			return observation{}, err
		}
		return observation{
			ArtifactExists: ext.ArtifactExists,
			EntryExists:    ext.EntryExists,
			Matches:        ext.EntryExists && matchesTarget(ext, target),
			Found:          ext.Describe(),
		}, nil
	}
	rewrite := func() error {
		f.log.WithField("path", path).Info("rewriting mismatched registration")
		return codec.Write(f.codec, path, target)
	}

	status := evaluate(read, rewrite, autoRewrite, target.String())
	f.log.WithFields(logrus.Fields{"path": path, "state": status.State}).Debug("evaluated")
	return status
}

func (f *File) Configure(ctx context.Context, in hostthread.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := expected(f.targets, f.desc, in.Prefs)
	if err != nil {
		return err
	}
	path, err := f.path(in)
	if err != nil {
		return err
	}
	if err := codec.Write(f.codec, path, target); err != nil {
		return fmt.Errorf("configure %s: %w", f.desc.Name, err)
	}
	f.log.WithFields(logrus.Fields{"path": path, "target": target.String()}).Info("registration written")
	return nil
}

func (f *File) Unregister(ctx context.Context, in hostthread.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.path(in)
	if err != nil {
		return err
	}
	removed, err := codec.Remove(f.codec, path)
	if err != nil {
		return fmt.Errorf("unregister %s: %w", f.desc.Name, err)
	}
	f.log.WithFields(logrus.Fields{"path": path, "removed": removed}).Info("registration removed")
	return nil
}

func (f *File) Preview(ctx context.Context, in hostthread.Snapshot) (Preview, error) {
	if err := ctx.Err(); err != nil {
		return Preview{}, err
	}
	target, err := expected(f.targets, f.desc, in.Prefs)
	if err != nil {
		return Preview{}, err
	}
	path, err := f.path(in)
	if err != nil {
		return Preview{}, err
	}
	before, after, err := codec.Preview(f.codec, path, target)
	if err != nil {
		return Preview{}, err
	}
	return Preview{Path: path, Before: before, After: after}, nil
}

func (f *File) ManualInstructions(in hostthread.Snapshot) string {
	target, err := expected(f.targets, f.desc, in.Prefs)
	if err != nil {
		return err.Error()
	}
	snippet, err := f.codec.Merge(nil, target)
	if err != nil {
		return err.Error()
	}
	where := f.displayPath()
	if path, err := f.path(in); err == nil {
		where = path
	}
	return fmt.Sprintf("Add the following to %s:\n\n%s", where, snippet)
}

func (f *File) InstallSteps() []string {
	return []string{
		fmt.Sprintf("Open %s in a text editor (create it if missing).", f.displayPath()),
		fmt.Sprintf("Add the %q entry shown in the manual instructions, keeping existing entries.", f.desc.Key),
		"Save the file.",
		fmt.Sprintf("Restart %s so it reloads its MCP servers.", f.desc.Name),
	}
}

// displayPath is the unexpanded path template for the running OS.
func (f *File) displayPath() string {
	if p, ok := f.desc.Paths[runtime.GOOS]; ok {
		return p
	}
	if p, ok := f.desc.Paths[clients.AnyOS]; ok {
		return p
	}
	return f.desc.Name + " configuration file"
}

var _ Configurator = (*File)(nil)
