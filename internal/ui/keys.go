package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the application-wide key bindings. View specific keys live
// with their views.
type KeyMap struct {
	Escape key.Binding
	Quit   key.Binding
	Help   key.Binding

	// Location
	GoTo           key.Binding
	HistoryBack    key.Binding
	HistoryForward key.Binding
	Logout         key.Binding
}

// DefaultKeyMap returns the default vim-like key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		GoTo: key.NewBinding(
			key.WithKeys(":", "L"),
			key.WithHelp(":", "go to location"),
		),
		HistoryBack: key.NewBinding(
			key.WithKeys("[", "alt+left"),
			key.WithHelp("[", "history back"),
		),
		HistoryForward: key.NewBinding(
			key.WithKeys("]", "alt+right"),
			key.WithHelp("]", "history forward"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("^l", "log out"),
		),
	}
}
