package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justyntemme/tales-t/internal/config"
	"github.com/justyntemme/tales-t/internal/reader"
	"github.com/justyntemme/tales-t/internal/ui/styles"
	"github.com/justyntemme/tales-t/pkg/models"
)

// StoriesView lists the stories available to read
type StoriesView struct {
	config *config.Config
	snap   reader.Snapshot

	spinner spinner.Model
	ticking bool

	// List state
	cursor int
	offset int

	// Dimensions
	width  int
	height int
}

// NewStoriesView creates a new story list view
func NewStoriesView(cfg *config.Config) *StoriesView {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &StoriesView{
		config:  cfg,
		spinner: s,
		width:   80,
		height:  24,
	}
}

// Init implements View
func (v *StoriesView) Init() tea.Cmd {
	return v.startSpinner()
}

// SetSnapshot implements SnapshotView
func (v *StoriesView) SetSnapshot(s reader.Snapshot) tea.Cmd {
	v.snap = s
	v.moveCursor(0)
	return v.startSpinner()
}

func (v *StoriesView) startSpinner() tea.Cmd {
	if !v.snap.StoriesLoading || v.ticking {
		return nil
	}
	v.ticking = true
	return v.spinner.Tick
}

// Update implements View
func (v *StoriesView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		if !v.snap.StoriesLoading {
			// stop ticking until the next load
			v.ticking = false
			return v, nil
		}
		return v, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			v.moveCursor(1)
		case "k", "up":
			v.moveCursor(-1)
		case "g", "home":
			v.cursor = 0
			v.updateOffset()
		case "G", "end":
			v.cursor = len(v.snap.Stories) - 1
			v.moveCursor(0)
		case "ctrl+d", "pgdown":
			v.moveCursor(v.visibleLines())
		case "ctrl+u", "pgup":
			v.moveCursor(-v.visibleLines())
		case "enter", "l", "right":
			if story, ok := v.selected(); ok {
				return v, Dispatch(reader.SelectStory{Story: story})
			}
		case "r":
			return v, Dispatch(reader.LoadStories{})
		case "T":
			newTheme := styles.NextTheme()
			if v.config != nil {
				_ = v.config.SetTheme(newTheme)
			}
			return v, NotifyThemeChanged(newTheme)
		}
	}
	return v, nil
}

// View implements View
func (v *StoriesView) View() string {
	var b strings.Builder

	b.WriteString(v.renderHeader() + "\n")

	placeholder := ""
	switch {
	case v.snap.StoriesLoading && len(v.snap.Stories) == 0:
		placeholder = v.spinner.View() + styles.MutedText.Render(" Loading stories...")
	case v.snap.Err != nil && len(v.snap.Stories) == 0:
		placeholder = styles.ErrorStyle.Render("Error: "+v.snap.Err.Error()) + "\n" +
			styles.Help.Render("press r to retry")
	case len(v.snap.Stories) == 0:
		placeholder = styles.MutedText.Render("No stories yet")
	}
	if placeholder != "" {
		b.WriteString(lipgloss.Place(
			v.width,
			v.height-4,
			lipgloss.Center,
			lipgloss.Center,
			placeholder,
		))
		return b.String()
	}

	visibleLines := v.visibleLines()
	for i := v.offset; i < min(v.offset+visibleLines, len(v.snap.Stories)); i++ {
		b.WriteString(v.renderStoryLine(v.snap.Stories[i], i == v.cursor) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(v.renderFooter())

	return b.String()
}

// SetSize implements View
func (v *StoriesView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.updateOffset()
}

func (v *StoriesView) renderHeader() string {
	title := styles.TitleBar.Render(" Stories ")

	status := ""
	if v.snap.StoriesLoading {
		status = " " + v.spinner.View()
	}

	right := styles.Help.Render(fmt.Sprintf(" %d stories ", len(v.snap.Stories)))
	left := title + status

	gap := v.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

func (v *StoriesView) renderStoryLine(story models.Story, selected bool) string {
	indicator := "  "
	if v.isRecent(story.ID) {
		indicator = "• "
	}

	maxWidth := v.width - 6
	line := story.Title
	if story.Description != "" {
		line += " - " + story.Description
	}
	line = styles.TruncateText(line, maxWidth)

	if selected {
		return styles.ListItemSelected.Width(v.width).Render("▸ " + indicator + line)
	}
	return styles.ListItem.Render("  " + indicator + line)
}

func (v *StoriesView) renderFooter() string {
	help := []string{
		styles.HelpKey.Render("j/k") + styles.Help.Render(" nav"),
		styles.HelpKey.Render("enter") + styles.Help.Render(" read"),
		styles.HelpKey.Render("r") + styles.Help.Render(" reload"),
		styles.HelpKey.Render(":") + styles.Help.Render(" go to"),
		styles.HelpKey.Render("q") + styles.Help.Render(" quit"),
	}

	themeName := styles.CurrentTheme().Name
	themeIndicator := styles.MutedText.Render(" [Theme: "+themeName+"] ") + styles.HelpKey.Render("T") + styles.Help.Render(" change")

	helpText := strings.Join(help, "  ")
	gap := v.width - lipgloss.Width(helpText) - lipgloss.Width(themeIndicator)
	if gap < 0 {
		gap = 0
	}

	return helpText + strings.Repeat(" ", gap) + themeIndicator
}

func (v *StoriesView) selected() (models.Story, bool) {
	if v.cursor < 0 || v.cursor >= len(v.snap.Stories) {
		return models.Story{}, false
	}
	return v.snap.Stories[v.cursor], true
}

func (v *StoriesView) isRecent(id int64) bool {
	if v.config == nil {
		return false
	}
	for _, recent := range v.config.RecentStoryIDs() {
		if recent == id {
			return true
		}
	}
	return false
}

func (v *StoriesView) moveCursor(delta int) {
	v.cursor += delta
	if v.cursor >= len(v.snap.Stories) {
		v.cursor = len(v.snap.Stories) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	v.updateOffset()
}

func (v *StoriesView) updateOffset() {
	visibleLines := v.visibleLines()
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+visibleLines {
		v.offset = v.cursor - visibleLines + 1
	}
}

func (v *StoriesView) visibleLines() int {
	// header, footer and margins
	lines := v.height - 5
	if lines < 1 {
		lines = 1
	}
	return lines
}
