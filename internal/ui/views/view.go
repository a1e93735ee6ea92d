package views

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/justyntemme/tales-t/internal/reader"
)

// ViewType represents different screens in the application
type ViewType int

const (
	ViewLogin ViewType = iota
	ViewStories
	ViewReader
)

// String returns the name of the view
func (v ViewType) String() string {
	switch v {
	case ViewLogin:
		return "Login"
	case ViewStories:
		return "Stories"
	case ViewReader:
		return "Reader"
	default:
		return "Unknown"
	}
}

// View is the interface that all views must implement
type View interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (View, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// SnapshotView renders controller state. The app hands it a fresh snapshot
// after every state change; the returned command keeps animations running.
type SnapshotView interface {
	View
	SetSnapshot(s reader.Snapshot) tea.Cmd
}

// Message types for inter-view communication

// IntentMsg carries a user action to the reader controller
type IntentMsg struct {
	Intent reader.Intent
}

// LoginSuccessMsg is sent when login succeeds
type LoginSuccessMsg struct {
	Email       string
	IsNewReader bool
}

// LogoutMsg is sent when the reader logs out
type LogoutMsg struct{}

// ThemeChangedMsg is sent after the theme was cycled
type ThemeChangedMsg struct {
	Name string
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Err error
}

// ClearErrorMsg clears the current error
type ClearErrorMsg struct{}

// SwitchViewMsg requests a view switch
type SwitchViewMsg struct {
	View ViewType
}

// Helper functions to create messages

// Dispatch creates a command that hands intent to the controller
func Dispatch(intent reader.Intent) tea.Cmd {
	return func() tea.Msg {
		return IntentMsg{Intent: intent}
	}
}

// SendError creates an error message command
func SendError(err error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Err: err}
	}
}

// ClearError creates a command to clear errors
func ClearError() tea.Cmd {
	return func() tea.Msg {
		return ClearErrorMsg{}
	}
}

// SwitchTo creates a command to switch views
func SwitchTo(view ViewType) tea.Cmd {
	return func() tea.Msg {
		return SwitchViewMsg{View: view}
	}
}

// NotifyThemeChanged creates a theme change notification
func NotifyThemeChanged(name string) tea.Cmd {
	return func() tea.Msg {
		return ThemeChangedMsg{Name: name}
	}
}
