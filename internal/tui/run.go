package tui

import (
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunWithWork creates a bubbletea program for a passive board, launches
// workFn in a goroutine, and blocks until the program exits. workFn receives
// a send callback wrapping tea.Program.Send.
func RunWithWork(out io.Writer, board Board, workFn func(send func(tea.Msg))) (Board, error) {
	p := tea.NewProgram(board, tea.WithOutput(out), tea.WithInput(nil))

	go func() {
		// Let bubbletea start its event loop and render the initial frame.
		time.Sleep(50 * time.Millisecond)
		workFn(p.Send)
		p.Send(WorkDoneMsg{})
	}()

	return run(p)
}

// RunInteractive runs an interactive board until the user quits.
func RunInteractive(in io.Reader, out io.Writer, board Board) (Board, error) {
	p := tea.NewProgram(board, tea.WithInput(in), tea.WithOutput(out))
	return run(p)
}

func run(p *tea.Program) (Board, error) {
	final, err := p.Run()
	if err != nil {
		return Board{}, err
	}
	b, _ := final.(Board)
	if b.Err() != nil {
		return b, b.Err()
	}
	return b, nil
}
