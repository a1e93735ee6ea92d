package ui

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justyntemme/tales-t/internal/config"
	"github.com/justyntemme/tales-t/internal/nav"
	"github.com/justyntemme/tales-t/internal/reader"
	"github.com/justyntemme/tales-t/internal/ui/styles"
	"github.com/justyntemme/tales-t/internal/ui/views"
)

const appName = "tales-t"

// taskResultMsg carries a finished controller task back to the UI goroutine
type taskResultMsg struct {
	result reader.Result
}

// App is the main application model
type App struct {
	ctx    context.Context
	config *config.Config
	ctrl   *reader.Controller
	keys   KeyMap
	logger *slog.Logger

	// Current view state
	currentView views.ViewType

	// Window dimensions
	width  int
	height int

	// View models
	loginView   *views.LoginView
	storiesView *views.StoriesView
	readerView  *views.ReaderView

	// Location prompt
	gotoInput textinput.Model
	showGoTo  bool

	// location changes since the last sync
	moved       bool
	unsubscribe func()
	// story last added to the recent list
	recentStory int64

	// Error/status message
	err      error
	showHelp bool
}

// Option configures an App
type Option func(*App)

// WithContext sets the context tasks run under
func WithContext(ctx context.Context) Option {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, client views.Authenticator, ctrl *reader.Controller, opts ...Option) *App {
	gotoInput := textinput.New()
	gotoInput.Prompt = "go to: "
	gotoInput.Placeholder = "story=1&chapter=2&page=1"
	gotoInput.CharLimit = 200
	gotoInput.Width = 50

	app := &App{
		ctx:         context.Background(),
		config:      cfg,
		ctrl:        ctrl,
		keys:        DefaultKeyMap(),
		logger:      slog.Default(),
		currentView: views.ViewLogin,
		width:       80,
		height:      24,
		loginView:   views.NewLoginView(client, cfg),
		storiesView: views.NewStoriesView(cfg),
		readerView:  views.NewReaderView(),
		gotoInput:   gotoInput,
		moved:       true,
	}
	for _, opt := range opts {
		opt(app)
	}

	if cfg.Theme != "" {
		styles.SetCurrentTheme(cfg.Theme)
	}

	app.unsubscribe = ctrl.Nav().Subscribe(func(pos nav.Position, src nav.Source) {
		app.moved = true
		app.logger.Debug("location changed",
			slog.String("location", pos.String()),
			slog.String("source", src.String()))
	})

	if cfg.IsAuthenticated() {
		app.currentView = views.ViewStories
	}

	return app
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	if a.currentView == views.ViewLogin {
		return tea.Batch(
			a.loginView.Init(),
			tea.SetWindowTitle(appName),
		)
	}
	return a.dispatch(reader.Hydrate{})
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.loginView.SetSize(msg.Width, msg.Height)
		a.storiesView.SetSize(msg.Width, msg.Height)
		a.readerView.SetSize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case views.IntentMsg:
		return a, a.dispatch(msg.Intent)

	case taskResultMsg:
		return a, tea.Batch(a.run(a.ctrl.Apply(msg.result)), a.sync())

	case views.LoginSuccessMsg:
		a.logger.Info("logged in", slog.String("email", msg.Email), slog.Bool("new_reader", msg.IsNewReader))
		a.currentView = views.ViewStories
		a.ctrl.Dispatch(reader.DismissError{})
		return a, a.dispatch(reader.Hydrate{})

	case views.LogoutMsg:
		if err := a.config.ClearSession(); err != nil {
			a.err = err
		}
		return a.switchView(views.ViewLogin)

	case views.ThemeChangedMsg:
		// both views cache colors
		a.storiesView.Update(msg)
		a.readerView.Update(msg)
		return a, nil

	case spinner.TickMsg:
		// a tick only advances the spinner it belongs to
		_, storiesCmd := a.storiesView.Update(msg)
		_, readerCmd := a.readerView.Update(msg)
		return a, tea.Batch(storiesCmd, readerCmd)

	case views.ErrorMsg:
		a.err = msg.Err
		return a, nil

	case views.ClearErrorMsg:
		a.err = nil
		return a, nil

	case views.SwitchViewMsg:
		return a.switchView(msg.View)
	}

	return a, a.delegate(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.showGoTo {
		return a.updateGoTo(msg)
	}

	// the login form takes every printable key
	if a.currentView == views.ViewLogin {
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a, a.delegate(msg)
	}

	if a.showHelp {
		if key.Matches(msg, a.keys.Help, a.keys.Escape, a.keys.Quit) {
			a.showHelp = false
		}
		return a, nil
	}

	if a.currentView == views.ViewReader && a.readerView.Overlay() {
		return a, a.delegate(msg)
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		if a.currentView == views.ViewReader && msg.String() != "ctrl+c" {
			return a, a.dispatch(reader.Back{})
		}
		return a, tea.Quit

	case key.Matches(msg, a.keys.Escape):
		if a.currentView == views.ViewReader {
			return a, a.dispatch(reader.Back{})
		}
		a.err = nil
		return a, nil

	case key.Matches(msg, a.keys.Help):
		a.showHelp = true
		return a, nil

	case key.Matches(msg, a.keys.GoTo):
		a.showGoTo = true
		a.gotoInput.SetValue(a.ctrl.Nav().Location())
		a.gotoInput.CursorEnd()
		return a, a.gotoInput.Focus()

	case key.Matches(msg, a.keys.HistoryBack):
		return a, a.dispatch(reader.HistoryBack{})

	case key.Matches(msg, a.keys.HistoryForward):
		return a, a.dispatch(reader.HistoryForward{})

	case key.Matches(msg, a.keys.Logout):
		return a, func() tea.Msg { return views.LogoutMsg{} }
	}

	return a, a.delegate(msg)
}

// updateGoTo handles the location prompt
func (a *App) updateGoTo(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.showGoTo = false
		a.gotoInput.Blur()
		return a, nil
	case "enter":
		a.showGoTo = false
		a.gotoInput.Blur()
		return a, a.dispatch(reader.Navigate{Location: a.gotoInput.Value()})
	}
	var cmd tea.Cmd
	a.gotoInput, cmd = a.gotoInput.Update(msg)
	return a, cmd
}

// dispatch hands an intent to the controller and runs the resulting tasks
func (a *App) dispatch(intent reader.Intent) tea.Cmd {
	return tea.Batch(a.run(a.ctrl.Dispatch(intent)), a.sync())
}

// run turns controller tasks into commands. Their results come back as
// taskResultMsg.
func (a *App) run(tasks []reader.Task) tea.Cmd {
	if len(tasks) == 0 {
		return nil
	}
	ctx := a.ctx
	cmds := make([]tea.Cmd, 0, len(tasks))
	for _, task := range tasks {
		cmds = append(cmds, func() tea.Msg {
			return taskResultMsg{result: task(ctx)}
		})
	}
	return tea.Batch(cmds...)
}

// sync pushes the controller state into the views and follows its mode
func (a *App) sync() tea.Cmd {
	snap := a.ctrl.Snapshot()
	var cmds []tea.Cmd

	if snap.AuthRequired && a.currentView != views.ViewLogin {
		a.logger.Info("session rejected, asking for login")
		_, cmd := a.switchView(views.ViewLogin)
		cmds = append(cmds, cmd)
	}

	if a.currentView != views.ViewLogin {
		want := views.ViewStories
		if snap.Mode == reader.ModeStoryReading {
			want = views.ViewReader
		}
		if want != a.currentView {
			a.currentView = want
		}
	}

	cmds = append(cmds,
		a.storiesView.SetSnapshot(snap),
		a.readerView.SetSnapshot(snap),
	)

	if snap.Story != nil && snap.Story.ID != a.recentStory {
		a.recentStory = snap.Story.ID
		if err := a.config.AddRecentStory(snap.Story.ID, snap.Story.Title); err != nil {
			a.logger.Warn("could not save recent stories", slog.Any("error", err))
		}
	}

	if a.moved {
		a.moved = false
		cmds = append(cmds, tea.SetWindowTitle(windowTitle(snap)))
	}
	return tea.Batch(cmds...)
}

func windowTitle(snap reader.Snapshot) string {
	if snap.Story == nil {
		return appName
	}
	return appName + " - " + snap.Story.Title
}

// delegate passes msg to the current view
func (a *App) delegate(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case views.ViewLogin:
		_, cmd = a.loginView.Update(msg)
	case views.ViewStories:
		_, cmd = a.storiesView.Update(msg)
	case views.ViewReader:
		_, cmd = a.readerView.Update(msg)
	}
	return cmd
}

// View implements tea.Model
func (a *App) View() string {
	if a.showHelp {
		return a.renderHelp()
	}

	content := a.getCurrentView().View()

	if a.showGoTo {
		prompt := styles.InputFieldFocused.Width(min(60, a.width-4)).Render(a.gotoInput.View())
		content = lipgloss.JoinVertical(lipgloss.Left, content, prompt)
	}

	if a.err != nil {
		errorBar := styles.ErrorStyle.Render("Error: " + a.err.Error())
		content = lipgloss.JoinVertical(lipgloss.Left, content, errorBar)
	}

	return content
}

// Close stops listening for location changes and remembers where the reader
// was
func (a *App) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	return a.config.SetLastLocation(a.ctrl.Nav().Location())
}

// CurrentView returns the screen being shown
func (a *App) CurrentView() views.ViewType {
	return a.currentView
}

// switchView changes the current view and initializes it
func (a *App) switchView(view views.ViewType) (*App, tea.Cmd) {
	a.currentView = view
	a.err = nil
	return a, a.getCurrentView().Init()
}

// getCurrentView returns the current view model
func (a *App) getCurrentView() views.View {
	switch a.currentView {
	case views.ViewStories:
		return a.storiesView
	case views.ViewReader:
		return a.readerView
	default:
		return a.loginView
	}
}

// renderHelp renders the help overlay
func (a *App) renderHelp() string {
	help := styles.Dialog.Width(60).Render(
		styles.DialogTitle.Render("Keyboard Shortcuts") + "\n\n" +
			styles.HelpKey.Render("Stories") + "\n" +
			"  j/k     Move down/up\n" +
			"  Enter   Read story\n" +
			"  r       Reload list\n" +
			"  T       Change theme\n\n" +
			styles.HelpKey.Render("Reader") + "\n" +
			"  j/k     Select paragraph\n" +
			"  Enter   Read selected paragraph\n" +
			"  u       Unlock selected paragraph\n" +
			"  n/l     Next page, or write one\n" +
			"  p/h     Previous page\n" +
			"  a       Write another paragraph\n" +
			"  t       Chapters\n" +
			"  r       Reload page\n" +
			"  x       Dismiss error\n\n" +
			styles.HelpKey.Render("Location") + "\n" +
			"  :       Go to location\n" +
			"  [ / ]   History back/forward\n\n" +
			styles.HelpKey.Render("General") + "\n" +
			"  q/Esc   Back, quit from the list\n" +
			"  Ctrl+l  Log out\n" +
			"  ?       Toggle help\n",
	)

	return lipgloss.Place(
		a.width,
		a.height,
		lipgloss.Center,
		lipgloss.Center,
		help,
	)
}
