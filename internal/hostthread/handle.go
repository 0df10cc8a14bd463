package hostthread

import (
	"sync/atomic"

	"mcpreg/internal/registration"
)

// Preferences are the user preference flags owned by the host.
type Preferences struct {
	Transport   registration.Transport `json:"transport"`
	ForceFresh  bool                   `json:"force_fresh"`
	AutoRewrite bool                   `json:"auto_rewrite"`
}

// Snapshot is a copy of the privileged inputs, safe to use on any goroutine.
type Snapshot struct {
	Prefs      Preferences `json:"preferences"`
	ProjectDir string      `json:"project_dir"`
}

// Handle grants access to the privileged state for one loop callback.
type Handle struct {
	loop *Loop
	live atomic.Bool
}

func newHandle(l *Loop) *Handle {
	h := &Handle{loop: l}
	h.live.Store(true)
	return h
}

func (h *Handle) check() {
	if h == nil || !h.live.Load() {
		panic(ErrNotPrivileged)
	}
}

func (h *Handle) expire() {
	h.live.Store(false)
}

// Preferences returns the current preference flags.
func (h *Handle) Preferences() Preferences {
	h.check()
	return h.loop.state.Prefs
}

// SetPreferences replaces the preference flags.
func (h *Handle) SetPreferences(p Preferences) {
	h.check()
	h.loop.state.Prefs = p
}

// ProjectDir returns the host project directory.
func (h *Handle) ProjectDir() string {
	h.check()
	return h.loop.state.ProjectDir
}

// SetProjectDir changes the host project directory.
func (h *Handle) SetProjectDir(dir string) {
	h.check()
	h.loop.state.ProjectDir = dir
}

// Capture copies the privileged state for use off the loop.
func (h *Handle) Capture() Snapshot {
	h.check()
	return h.loop.state
}
