package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Configure  key.Binding
	Unregister key.Binding
	Refresh    key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Configure:  key.NewBinding(key.WithKeys("c", "enter"), key.WithHelp("c", "configure")),
	Unregister: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unregister")),
	Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Configure, k.Unregister, k.Refresh, k.Quit}
}
