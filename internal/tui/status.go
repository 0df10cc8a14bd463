package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// StatusWriter draws a single spinning progress line for plain terminals
// where a full board is not wanted. Each Step advances the "n/total"
// counter shown next to the current client name.
type StatusWriter struct {
	w       io.Writer
	frames  spinner.Spinner
	mu      sync.Mutex
	label   string
	step    int
	total   int
	started time.Time
	done    chan struct{}
	exited  chan struct{}
	stopped bool
}

// NewStatusWriter starts rendering to w until Stop is called.
func NewStatusWriter(w io.Writer, total int) *StatusWriter {
	sw := &StatusWriter{
		w:       w,
		frames:  spinner.MiniDot,
		total:   total,
		started: time.Now(),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	go sw.loop()
	return sw
}

// Step records that work on label has started.
func (sw *StatusWriter) Step(label string) {
	sw.mu.Lock()
	sw.label = label
	if sw.step < sw.total {
		sw.step++
	}
	sw.mu.Unlock()
}

// Stop clears the status line and stops the spinner. It is safe to call
// more than once.
func (sw *StatusWriter) Stop() {
	sw.mu.Lock()
	if sw.stopped {
		sw.mu.Unlock()
		return
	}
	sw.stopped = true
	sw.mu.Unlock()
	close(sw.done)
	<-sw.exited
	fmt.Fprint(sw.w, "\r\033[K")
}

func (sw *StatusWriter) line(tick int) string {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	frame := sw.frames.Frames[tick%len(sw.frames.Frames)]
	label := sw.label
	if label == "" {
		label = "starting"
	}
	return fmt.Sprintf("%s [%d/%d] %s (%s)", frame, sw.step, sw.total, label, formatElapsed(time.Since(sw.started)))
}

func (sw *StatusWriter) loop() {
	interval := sw.frames.FPS
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(sw.exited)

	for tick := 0; ; tick++ {
		select {
		case <-sw.done:
			return
		case <-ticker.C:
			fmt.Fprintf(sw.w, "\r\033[K%s", sw.line(tick))
		}
	}
}

// formatElapsed formats a duration for display in the status line.
func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
