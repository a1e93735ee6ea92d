package views

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justyntemme/tales-t/internal/api"
	"github.com/justyntemme/tales-t/internal/config"
	"github.com/justyntemme/tales-t/internal/ui/styles"
	"github.com/justyntemme/tales-t/pkg/models"
)

var (
	errEmptyEmail   = errors.New("please enter your email")
	errInvalidEmail = errors.New("that does not look like an email address")
)

// Authenticator logs a reader in and exposes the resulting session.
// *api.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, email string) (*models.LoginResponse, error)
	SessionID() string
	CSRFToken() string
}

// loginResultMsg is the result of a login attempt
type loginResultMsg struct {
	resp *models.LoginResponse
	err  error
}

// LoginView asks for an email and logs the reader in. The server creates the
// reader on first login.
type LoginView struct {
	client Authenticator
	config *config.Config

	emailInput textinput.Model

	// State
	loading bool
	// alert blocks the form until dismissed
	alert error
	err   error

	// Dimensions
	width  int
	height int
}

// NewLoginView creates a new login view
func NewLoginView(client Authenticator, cfg *config.Config) *LoginView {
	emailInput := textinput.New()
	emailInput.Placeholder = "reader@example.com"
	emailInput.Focus()
	emailInput.CharLimit = 254
	emailInput.Width = 30
	if cfg != nil {
		emailInput.SetValue(cfg.Email)
	}

	return &LoginView{
		client:     client,
		config:     cfg,
		emailInput: emailInput,
		width:      80,
		height:     24,
	}
}

// Init implements View
func (v *LoginView) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements View
func (v *LoginView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if v.alert != nil {
			// any of these dismisses the alert, the form stays for a retry
			switch msg.String() {
			case "enter", "esc", " ":
				v.alert = nil
			}
			return v, nil
		}
		if msg.String() == "enter" {
			if v.loading {
				return v, nil
			}
			return v, v.submit()
		}

	case loginResultMsg:
		v.loading = false
		if msg.err != nil {
			if errors.Is(msg.err, api.ErrAuth) {
				v.alert = msg.err
			} else {
				v.err = msg.err
			}
			return v, nil
		}
		email := strings.TrimSpace(v.emailInput.Value())
		if msg.resp != nil && msg.resp.Email != "" {
			email = msg.resp.Email
		}
		if v.config != nil {
			if err := v.config.SetSession(email, v.client.SessionID(), v.client.CSRFToken()); err != nil {
				v.err = err
			}
		}
		isNew := msg.resp != nil && msg.resp.IsNewReader
		return v, func() tea.Msg {
			return LoginSuccessMsg{Email: email, IsNewReader: isNew}
		}
	}

	var cmd tea.Cmd
	v.emailInput, cmd = v.emailInput.Update(msg)
	return v, cmd
}

// View implements View
func (v *LoginView) View() string {
	if v.alert != nil {
		return v.renderAlert()
	}

	var b strings.Builder

	titleStyle := styles.DialogTitle.Width(40).Align(lipgloss.Center)
	b.WriteString(titleStyle.Render("Sign in to read") + "\n\n")

	label := styles.InputLabel.Render("Email")
	input := styles.InputFieldFocused.Render(v.emailInput.View())
	b.WriteString(label + "\n" + input + "\n\n")

	buttonText := "Continue"
	if v.loading {
		buttonText = "Signing in..."
	}
	b.WriteString(styles.ButtonFocused.Render(buttonText) + "\n\n")
	b.WriteString(styles.Help.Render("New readers are created on first sign in") + "\n")

	if v.err != nil {
		b.WriteString("\n" + styles.ErrorStyle.Render(v.err.Error()))
	}

	dialog := styles.Dialog.Width(44).Render(b.String())

	return lipgloss.Place(
		v.width,
		v.height,
		lipgloss.Center,
		lipgloss.Center,
		dialog,
	)
}

// SetSize implements View
func (v *LoginView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

func (v *LoginView) renderAlert() string {
	body := styles.DialogTitle.Render("Sign in failed") + "\n\n" +
		styles.ErrorStyle.Render(v.alert.Error()) + "\n\n" +
		styles.ButtonFocused.Render("OK")

	return lipgloss.Place(
		v.width,
		v.height,
		lipgloss.Center,
		lipgloss.Center,
		styles.Dialog.Width(50).BorderForeground(styles.Error).Render(body),
	)
}

// submit validates the form and starts the login request
func (v *LoginView) submit() tea.Cmd {
	v.err = nil

	email := strings.TrimSpace(v.emailInput.Value())
	if email == "" {
		v.err = errEmptyEmail
		return nil
	}
	if !strings.Contains(email, "@") {
		v.err = errInvalidEmail
		return nil
	}

	v.loading = true
	return v.doLogin(email)
}

// doLogin performs the login API call
func (v *LoginView) doLogin(email string) tea.Cmd {
	return func() tea.Msg {
		resp, err := v.client.Login(context.Background(), email)
		return loginResultMsg{resp: resp, err: err}
	}
}
