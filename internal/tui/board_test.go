package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpreg/internal/registration"
)

type fakeActions struct {
	mu         sync.Mutex
	statuses   map[string]registration.Status
	configured []string
	removed    []string
	failWith   error
}

func (f *fakeActions) Check(_ context.Context, id string) registration.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}

func (f *fakeActions) Configure(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.configured = append(f.configured, id)
	f.statuses[id] = registration.Status{State: registration.Configured}
	return nil
}

func (f *fakeActions) Unregister(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	f.statuses[id] = registration.Status{State: registration.NotConfigured}
	return nil
}

var testRows = []Row{
	{ID: "cursor", Name: "Cursor", Kind: "structured-file"},
	{ID: "claude-code", Name: "Claude Code", Kind: "cli-managed"},
}

func newFakeActions() *fakeActions {
	return &fakeActions{statuses: map[string]registration.Status{
		"cursor":      {State: registration.NotConfigured, Detail: "no config file"},
		"claude-code": {State: registration.IncorrectPath, Detail: "found stdio, expected http"},
	}}
}

func runeKey(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

// drain executes cmd and feeds any StatusMsg or actionDoneMsg back into the
// board until no further work is produced.
func drain(t *testing.T, b Board, cmd tea.Cmd) Board {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case StatusMsg, actionDoneMsg:
			model, more := b.Update(msg)
			b = model.(Board)
			queue = append(queue, more)
		}
	}
	return b
}

func TestBoardInitChecksEveryRow(t *testing.T) {
	actions := newFakeActions()
	b := NewBoard(context.Background(), "Clients", testRows, actions)

	b = drain(t, b, b.Init())

	statuses := b.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, registration.NotConfigured, statuses["cursor"].State)
	assert.Equal(t, registration.IncorrectPath, statuses["claude-code"].State)

	view := b.View()
	assert.Contains(t, view, "Cursor")
	assert.Contains(t, view, "Needs reconfiguration")
	assert.Contains(t, view, "found stdio, expected http")
	assert.Contains(t, view, "configure")
}

func TestBoardConfigureSelectedRow(t *testing.T) {
	actions := newFakeActions()
	b := NewBoard(context.Background(), "", testRows, actions)
	b = drain(t, b, b.Init())

	model, _ := b.Update(tea.KeyMsg{Type: tea.KeyDown})
	b = model.(Board)
	model, cmd := b.Update(runeKey("c"))
	b = model.(Board)
	require.NotNil(t, cmd)
	assert.Contains(t, b.View(), "configuring")

	b = drain(t, b, cmd)
	assert.Equal(t, []string{"claude-code"}, actions.configured)
	assert.Equal(t, registration.Configured, b.Statuses()["claude-code"].State)
	assert.Contains(t, b.View(), "configure Claude Code: done")
}

func TestBoardIgnoresActionOnBusyRow(t *testing.T) {
	actions := newFakeActions()
	b := NewBoard(context.Background(), "", testRows, actions)

	// Rows start as checking until Init's results arrive.
	model, cmd := b.Update(runeKey("u"))
	b = model.(Board)
	assert.Nil(t, cmd)
	assert.Contains(t, b.View(), "Cursor is busy")
	assert.Empty(t, actions.removed)
}

func TestBoardReportsActionFailure(t *testing.T) {
	actions := newFakeActions()
	b := NewBoard(context.Background(), "", testRows, actions)
	b = drain(t, b, b.Init())

	actions.failWith = errors.New("permission denied")
	model, cmd := b.Update(tea.KeyMsg{Type: tea.KeyEnter})
	b = drain(t, model.(Board), cmd)

	assert.Contains(t, b.View(), "configure Cursor failed: permission denied")
	assert.Equal(t, registration.NotConfigured, b.Statuses()["cursor"].State)
}

func TestBoardUnregisterAndRefresh(t *testing.T) {
	actions := newFakeActions()
	actions.statuses["cursor"] = registration.Status{State: registration.Configured}
	b := NewBoard(context.Background(), "", testRows, actions)
	b = drain(t, b, b.Init())

	model, cmd := b.Update(runeKey("u"))
	b = drain(t, model.(Board), cmd)
	assert.Equal(t, []string{"cursor"}, actions.removed)
	assert.Equal(t, registration.NotConfigured, b.Statuses()["cursor"].State)

	actions.statuses["claude-code"] = registration.Status{State: registration.Configured}
	model, cmd = b.Update(runeKey("r"))
	b = drain(t, model.(Board), cmd)
	assert.Equal(t, registration.Configured, b.Statuses()["claude-code"].State)
}

func TestBoardCursorStaysInRange(t *testing.T) {
	b := NewBoard(context.Background(), "", testRows, newFakeActions())
	for i := 0; i < 5; i++ {
		model, _ := b.Update(tea.KeyMsg{Type: tea.KeyDown})
		b = model.(Board)
	}
	assert.Equal(t, 1, b.cursor)
	for i := 0; i < 5; i++ {
		model, _ := b.Update(runeKey("k"))
		b = model.(Board)
	}
	assert.Equal(t, 0, b.cursor)
}

func TestPassiveBoardFollowsMessages(t *testing.T) {
	b := NewBoard(context.Background(), "Probe", testRows, nil)
	assert.Contains(t, b.View(), "Checking 0/2 clients")

	model, _ := b.Update(BusyMsg{ID: "cursor", Activity: "checking"})
	b = model.(Board)
	model, _ = b.Update(StatusMsg{ID: "cursor", Status: registration.Status{State: registration.Configured}, Rewritten: true})
	b = model.(Board)
	model, _ = b.Update(StatusMsg{ID: "unknown", Status: registration.Status{State: registration.Error}})
	b = model.(Board)

	assert.Contains(t, b.View(), "Checking 1/2 clients")
	assert.Contains(t, b.View(), "Configured (rewritten)")

	// Keys other than quit do nothing without actions.
	model, cmd := b.Update(runeKey("c"))
	b = model.(Board)
	assert.Nil(t, cmd)

	model, cmd = b.Update(WorkDoneMsg{})
	b = model.(Board)
	assert.True(t, b.Done())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.NotContains(t, b.View(), "Checking")
}

func TestBoardErrorQuits(t *testing.T) {
	b := NewBoard(context.Background(), "", testRows, nil)
	model, cmd := b.Update(ErrorMsg{Err: errors.New("loop stopped")})
	b = model.(Board)
	require.NotNil(t, cmd)
	assert.EqualError(t, b.Err(), "loop stopped")
	assert.Equal(t, "Error: loop stopped\n", b.View())
}

func TestBoardQuitKey(t *testing.T) {
	b := NewBoard(context.Background(), "", testRows, newFakeActions())
	model, cmd := b.Update(runeKey("q"))
	assert.True(t, model.(Board).Done())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestTruncateWithEllipsis(t *testing.T) {
	assert.Equal(t, "", TruncateWithEllipsis("abc", 0))
	assert.Equal(t, "abc", TruncateWithEllipsis(" abc ", 5))
	assert.Equal(t, "ab", TruncateWithEllipsis("abcdef", 2))
	assert.Equal(t, "abc...", TruncateWithEllipsis("abcdefghij", 6))
}

func TestNonEmptyOrDash(t *testing.T) {
	assert.Equal(t, "-", NonEmptyOrDash("  "))
	assert.Equal(t, "x", NonEmptyOrDash(" x "))
}
