package registration

import (
	"fmt"
	"strings"
)

// Transport identifies how a client reaches the server.
type Transport string

const (
	TransportHTTP  Transport = "http"
	TransportStdio Transport = "stdio"
)

// ParseTransport accepts the user-facing transport names.
func ParseTransport(value string) (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "http", "streamable-http":
		return TransportHTTP, nil
	case "stdio", "launch":
		return TransportStdio, nil
	default:
		return "", fmt.Errorf("unknown transport %q (want http or stdio)", value)
	}
}

// FromFlag marks the package source in a launch argument list.
const FromFlag = "--from"

// forceFreshFlags make the launcher bypass its package cache.
var forceFreshFlags = []string{"--no-cache", "--refresh"}

// LaunchSpec describes how a client should spawn the server process.
type LaunchSpec struct {
	Executable    string `json:"executable" yaml:"executable"`
	PackageSource string `json:"package_source" yaml:"package_source"`
	PackageName   string `json:"package_name" yaml:"package_name"`
	ForceFresh    bool   `json:"force_fresh,omitempty" yaml:"force_fresh,omitempty"`
}

// Args returns the launcher arguments, excluding the executable itself.
func (l LaunchSpec) Args() []string {
	var args []string
	if l.ForceFresh {
		args = append(args, forceFreshFlags...)
	}
	args = append(args, FromFlag, l.PackageSource, l.PackageName)
	return args
}

// Target is the expected connection target for a client. Exactly one of URL
// or Launch is meaningful, selected by Transport.
type Target struct {
	Transport Transport  `json:"transport"`
	URL       string     `json:"url,omitempty"`
	Launch    LaunchSpec `json:"launch,omitempty"`
}

// HTTPTarget builds a networked target.
func HTTPTarget(url string) Target {
	return Target{Transport: TransportHTTP, URL: url}
}

// LaunchTarget builds a process-launch target.
func LaunchTarget(spec LaunchSpec) Target {
	return Target{Transport: TransportStdio, Launch: spec}
}

func (t Target) String() string {
	if t.Transport == TransportHTTP {
		return t.URL
	}
	return strings.TrimSpace(t.Launch.Executable + " " + strings.Join(t.Launch.Args(), " "))
}

// Validate reports whether the target carries the fields its transport needs.
func (t Target) Validate() error {
	switch t.Transport {
	case TransportHTTP:
		if strings.TrimSpace(t.URL) == "" {
			return fmt.Errorf("http target requires a url")
		}
	case TransportStdio:
		if strings.TrimSpace(t.Launch.Executable) == "" {
			return fmt.Errorf("launch target requires an executable")
		}
		if strings.TrimSpace(t.Launch.PackageSource) == "" {
			return fmt.Errorf("launch target requires a package source")
		}
		if strings.TrimSpace(t.Launch.PackageName) == "" {
			return fmt.Errorf("launch target requires a package name")
		}
	default:
		return fmt.Errorf("unknown transport %q", t.Transport)
	}
	return nil
}

// Extracted is what was actually found in a client's artifact.
type Extracted struct {
	ArtifactExists bool
	EntryExists    bool
	// Key is the registration key the entry was found under.
	Key       string
	Transport Transport
	URL       string
	Command   string
	Args      []string
	// PackageSource is the value following --from, when present.
	PackageSource string
}

// Describe renders the extracted registration for diagnostics.
func (e Extracted) Describe() string {
	switch {
	case e.URL != "":
		return e.URL
	case len(e.Args) > 0:
		return strings.TrimSpace(e.Command + " " + strings.Join(e.Args, " "))
	case e.PackageSource != "":
		return string(e.Transport) + " from " + e.PackageSource
	case e.Transport != "":
		return string(e.Transport)
	default:
		return "empty entry"
	}
}
