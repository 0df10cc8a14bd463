package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mcpreg/internal/registration"
)

// Actions performs the work behind board rows. The board calls them from
// tea.Cmds, never from Update.
type Actions interface {
	Check(ctx context.Context, id string) registration.Status
	Configure(ctx context.Context, id string) error
	Unregister(ctx context.Context, id string) error
}

// Row identifies one client on the board.
type Row struct {
	ID   string
	Name string
	Kind string
}

type boardRow struct {
	Row
	status    registration.Status
	known     bool
	activity  string
	rewritten bool
}

const (
	nameWidth   = 20
	kindWidth   = 12
	statusWidth = 22
	detailWidth = 60
)

// Board lists clients with their registration status. With Actions set it
// is interactive; without, rows are fed by StatusMsg until WorkDoneMsg.
type Board struct {
	title   string
	rows    []boardRow
	index   map[string]int
	cursor  int
	spinner spinner.Model
	actions Actions
	ctx     context.Context
	message string
	done    bool
	err     error
}

// NewBoard builds a board. actions may be nil for a passive board.
func NewBoard(ctx context.Context, title string, rows []Row, actions Actions) Board {
	if ctx == nil {
		ctx = context.Background()
	}
	b := Board{
		title:   title,
		index:   make(map[string]int, len(rows)),
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		actions: actions,
		ctx:     ctx,
	}
	for _, r := range rows {
		activity := "pending"
		if actions != nil {
			activity = "checking"
		}
		b.index[r.ID] = len(b.rows)
		b.rows = append(b.rows, boardRow{Row: r, activity: activity})
	}
	return b
}

// Init satisfies the tea.Model interface.
func (b Board) Init() tea.Cmd {
	cmds := []tea.Cmd{b.spinner.Tick}
	if b.actions != nil {
		for _, r := range b.rows {
			cmds = append(cmds, b.check(r.ID))
		}
	}
	return tea.Batch(cmds...)
}

func (b Board) check(id string) tea.Cmd {
	actions, ctx := b.actions, b.ctx
	return func() tea.Msg {
		return StatusMsg{ID: id, Status: actions.Check(ctx, id)}
	}
}

func (b Board) act(id, action string) tea.Cmd {
	actions, ctx := b.actions, b.ctx
	return func() tea.Msg {
		var err error
		switch action {
		case "configure":
			err = actions.Configure(ctx, id)
		case "unregister":
			err = actions.Unregister(ctx, id)
		}
		return actionDoneMsg{ID: id, Action: action, Err: err}
	}
}

// Update satisfies the tea.Model interface.
func (b Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if b.done {
			return b, nil
		}
		var cmd tea.Cmd
		b.spinner, cmd = b.spinner.Update(msg)
		return b, cmd

	case StatusMsg:
		if row := b.row(msg.ID); row != nil {
			row.status = msg.Status
			row.known = true
			row.activity = ""
			row.rewritten = msg.Rewritten
		}
		return b, nil

	case BusyMsg:
		if row := b.row(msg.ID); row != nil {
			row.activity = msg.Activity
		}
		return b, nil

	case actionDoneMsg:
		row := b.row(msg.ID)
		if row == nil {
			return b, nil
		}
		if msg.Err != nil {
			b.message = fmt.Sprintf("%s %s failed: %v", msg.Action, row.Name, msg.Err)
		} else {
			b.message = fmt.Sprintf("%s %s: done", msg.Action, row.Name)
		}
		row.activity = "checking"
		return b, b.check(msg.ID)

	case WorkDoneMsg:
		b.done = true
		return b, tea.Quit

	case ErrorMsg:
		b.err = msg.Err
		b.done = true
		return b, tea.Quit

	case tea.KeyMsg:
		return b.handleKey(msg)
	}
	return b, nil
}

func (b Board) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		b.done = true
		return b, tea.Quit
	}
	if b.actions == nil || len(b.rows) == 0 {
		return b, nil
	}

	switch {
	case key.Matches(msg, keys.Up):
		if b.cursor > 0 {
			b.cursor--
		}
	case key.Matches(msg, keys.Down):
		if b.cursor < len(b.rows)-1 {
			b.cursor++
		}
	case key.Matches(msg, keys.Configure):
		return b.start("configure", "configuring")
	case key.Matches(msg, keys.Unregister):
		return b.start("unregister", "unregistering")
	case key.Matches(msg, keys.Refresh):
		cmds := make([]tea.Cmd, 0, len(b.rows))
		for i := range b.rows {
			if b.rows[i].activity != "" {
				continue
			}
			b.rows[i].activity = "checking"
			cmds = append(cmds, b.check(b.rows[i].ID))
		}
		b.message = ""
		return b, tea.Batch(cmds...)
	}
	return b, nil
}

func (b Board) start(action, activity string) (tea.Model, tea.Cmd) {
	row := &b.rows[b.cursor]
	if row.activity != "" {
		b.message = row.Name + " is busy"
		return b, nil
	}
	row.activity = activity
	b.message = ""
	return b, b.act(row.ID, action)
}

func (b *Board) row(id string) *boardRow {
	idx, ok := b.index[id]
	if !ok {
		return nil
	}
	return &b.rows[idx]
}

// View satisfies the tea.Model interface.
func (b Board) View() string {
	if b.done && b.err != nil {
		return fmt.Sprintf("Error: %v\n", b.err)
	}

	var sb strings.Builder
	if b.title != "" {
		sb.WriteString(HeaderStyle.Render(b.title))
		sb.WriteString("\n\n")
	}

	header := strings.Join([]string{
		pad("CLIENT", nameWidth), pad("KIND", kindWidth), pad("STATUS", statusWidth), "DETAIL",
	}, "  ")
	sb.WriteString(HeaderStyle.Render(header))
	sb.WriteByte('\n')

	for i, row := range b.rows {
		status, style := b.statusCell(row)
		line := strings.Join([]string{
			pad(TruncateWithEllipsis(row.Name, nameWidth), nameWidth),
			pad(TruncateWithEllipsis(row.Kind, kindWidth), kindWidth),
			style(pad(status, statusWidth)),
			TruncateWithEllipsis(row.status.Detail, detailWidth),
		}, "  ")
		if b.actions != nil && i == b.cursor && !b.done {
			line = SelectedStyle.Render("›") + " " + line
		} else if b.actions != nil {
			line = "  " + line
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	if b.message != "" {
		sb.WriteString("\n" + b.message + "\n")
	}
	switch {
	case b.done:
	case b.actions != nil:
		parts := make([]string, 0, len(keys.help()))
		for _, k := range keys.help() {
			h := k.Help()
			parts = append(parts, h.Key+" "+h.Desc)
		}
		sb.WriteString("\n" + FooterStyle.Render(strings.Join(parts, " · ")) + "\n")
	default:
		settled, total := b.progressCounts()
		fmt.Fprintf(&sb, "\n%s Checking %d/%d clients...\n", b.spinner.View(), settled, total)
	}
	return sb.String()
}

func (b Board) statusCell(row boardRow) (string, func(...string) string) {
	if row.activity != "" {
		label := row.activity
		if row.activity != "pending" {
			label = b.spinner.View() + " " + row.activity
		}
		return label, StatusStyle(row.activity).Render
	}
	label := row.status.State.Label()
	if row.rewritten {
		label += " (rewritten)"
	}
	return label, StatusStyle(row.status.State.String()).Render
}

// progressCounts returns (settled, total) rows.
func (b Board) progressCounts() (int, int) {
	settled := 0
	for _, row := range b.rows {
		if row.known && row.activity == "" {
			settled++
		}
	}
	return settled, len(b.rows)
}

// Statuses returns the last known status of each row by id.
func (b Board) Statuses() map[string]registration.Status {
	out := make(map[string]registration.Status, len(b.rows))
	for _, row := range b.rows {
		if row.known {
			out[row.ID] = row.status
		}
	}
	return out
}

// Done returns whether the board has finished.
func (b Board) Done() bool {
	return b.done
}

// Err returns any fatal error that occurred.
func (b Board) Err() error {
	return b.err
}

// pad right-pads s to width terminal cells.
func pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// NonEmptyOrDash returns "-" for empty/whitespace strings.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis truncates a string and adds "..." if it exceeds max length.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
