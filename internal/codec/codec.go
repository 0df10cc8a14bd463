// Package codec reads and rewrites registration entries inside client-owned
// configuration files. Every mutation is a whole-document rewrite: the file is
// read in full, changed in memory and replaced in one step.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mcpreg/internal/clients"
	"mcpreg/internal/registration"
)

// Codec extracts and merges the registration entry of one client.
type Codec interface {
	// Extract locates the registration in an existing artifact.
	Extract(data []byte) (registration.Extracted, error)
	// Merge returns data with this client's entry set to target. data is
	// nil when the artifact does not exist yet.
	Merge(data []byte, target registration.Target) ([]byte, error)
	// Strip returns data without this client's entry and whether anything
	// was removed.
	Strip(data []byte) ([]byte, bool, error)
}

// New returns the codec for a file-backed descriptor.
func New(d clients.Descriptor) (Codec, error) {
	switch d.Kind {
	case clients.StructuredFile:
		return NewJSON(d), nil
	case clients.FlatTextFile:
		return NewFlat(d), nil
	default:
		return nil, fmt.Errorf("%s: no file codec for %s", d.ID, d.Kind)
	}
}

// load returns the artifact contents and whether it exists.
func load(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return data, true, nil
}

// Read loads path and extracts the registration. A missing file yields an
// empty Extracted with ArtifactExists false.
func Read(c Codec, path string) (registration.Extracted, error) {
	data, exists, err := load(path)
	if err != nil {
		return registration.Extracted{}, err
	}
	if !exists {
		return registration.Extracted{}, nil
	}
	ext, err := c.Extract(data)
	if err != nil {
		return registration.Extracted{}, fmt.Errorf("parse %s: %w", path, err)
	}
	ext.ArtifactExists = true
	return ext, nil
}

// Preview returns the current bytes of path and the bytes Write would
// persist, without touching the file.
func Preview(c Codec, path string, target registration.Target) (before, after []byte, err error) {
	before, _, err = load(path)
	if err != nil {
		return nil, nil, err
	}
	after, err = c.Merge(before, target)
	if err != nil {
		return nil, nil, fmt.Errorf("merge %s: %w", path, err)
	}
	return before, after, nil
}

// Write merges target into path, creating the file and its directory when
// missing. Unchanged documents are not rewritten.
func Write(c Codec, path string, target registration.Target) error {
	before, after, err := Preview(c, path, target)
	if err != nil {
		return err
	}
	if before != nil && bytes.Equal(before, after) {
		return nil
	}
	return save(path, after)
}

// Remove strips this client's entry from path. A missing file is not an
// error.
func Remove(c Codec, path string) (bool, error) {
	data, exists, err := load(path)
	if err != nil || !exists {
		return false, err
	}
	out, changed, err := c.Strip(data)
	if err != nil {
		return false, fmt.Errorf("strip %s: %w", path, err)
	}
	if !changed {
		return false, nil
	}
	return true, save(path, out)
}

// save replaces path atomically through a temp file in the same directory.
func save(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare %s: %w", dir, err)
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp for %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
