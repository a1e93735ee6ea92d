package styles

import "github.com/charmbracelet/lipgloss"

// Theme represents a color scheme for the application
type Theme struct {
	Name        string
	Description string
	// Glamour names the markdown style paragraph text renders with
	Glamour     string

	// Core colors
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Background lipgloss.Color
	Foreground lipgloss.Color

	// Semantic colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color

	// UI element colors
	Border          lipgloss.Color
	Selection       lipgloss.Color
	SelectionText   lipgloss.Color
	BadgeLocked     lipgloss.Color
	BadgeLockedText lipgloss.Color
	BadgeViewed     lipgloss.Color
	BadgeViewedText lipgloss.Color
}

// Built-in themes
var (
	// DarkTheme is the default dark theme
	DarkTheme = Theme{
		Name:            "dark",
		Description:     "Dark theme (default)",
		Glamour:         "dark",
		Primary:         lipgloss.Color("#7C3AED"),
		Secondary:       lipgloss.Color("#06B6D4"),
		Background:      lipgloss.Color("#1F2937"),
		Foreground:      lipgloss.Color("#F9FAFB"),
		Success:         lipgloss.Color("#10B981"),
		Warning:         lipgloss.Color("#F59E0B"),
		Error:           lipgloss.Color("#EF4444"),
		Muted:           lipgloss.Color("#6B7280"),
		Border:          lipgloss.Color("#374151"),
		Selection:       lipgloss.Color("#7C3AED"),
		SelectionText:   lipgloss.Color("#F9FAFB"),
		BadgeLocked:     lipgloss.Color("#F59E0B"),
		BadgeLockedText: lipgloss.Color("#1F2937"),
		BadgeViewed:     lipgloss.Color("#10B981"),
		BadgeViewedText: lipgloss.Color("#1F2937"),
	}

	// LightTheme is a light color scheme
	LightTheme = Theme{
		Name:            "light",
		Description:     "Light theme",
		Glamour:         "light",
		Primary:         lipgloss.Color("#7C3AED"),
		Secondary:       lipgloss.Color("#0891B2"),
		Background:      lipgloss.Color("#FFFFFF"),
		Foreground:      lipgloss.Color("#1F2937"),
		Success:         lipgloss.Color("#059669"),
		Warning:         lipgloss.Color("#D97706"),
		Error:           lipgloss.Color("#DC2626"),
		Muted:           lipgloss.Color("#9CA3AF"),
		Border:          lipgloss.Color("#E5E7EB"),
		Selection:       lipgloss.Color("#7C3AED"),
		SelectionText:   lipgloss.Color("#FFFFFF"),
		BadgeLocked:     lipgloss.Color("#D97706"),
		BadgeLockedText: lipgloss.Color("#FFFFFF"),
		BadgeViewed:     lipgloss.Color("#059669"),
		BadgeViewedText: lipgloss.Color("#FFFFFF"),
	}

	// SepiaTheme is a warm paper-like scheme for long reading sessions
	SepiaTheme = Theme{
		Name:            "sepia",
		Description:     "Warm paper tones",
		Glamour:         "light",
		Primary:         lipgloss.Color("#8B5E34"),
		Secondary:       lipgloss.Color("#A47148"),
		Background:      lipgloss.Color("#F4ECD8"),
		Foreground:      lipgloss.Color("#433422"),
		Success:         lipgloss.Color("#6B8E23"),
		Warning:         lipgloss.Color("#B8860B"),
		Error:           lipgloss.Color("#A0522D"),
		Muted:           lipgloss.Color("#9C8A73"),
		Border:          lipgloss.Color("#D9C9A8"),
		Selection:       lipgloss.Color("#8B5E34"),
		SelectionText:   lipgloss.Color("#F4ECD8"),
		BadgeLocked:     lipgloss.Color("#B8860B"),
		BadgeLockedText: lipgloss.Color("#F4ECD8"),
		BadgeViewed:     lipgloss.Color("#6B8E23"),
		BadgeViewedText: lipgloss.Color("#F4ECD8"),
	}

	// NordTheme is based on the Nord color palette
	NordTheme = Theme{
		Name:            "nord",
		Description:     "Nord theme",
		Glamour:         "dark",
		Primary:         lipgloss.Color("#88C0D0"),
		Secondary:       lipgloss.Color("#81A1C1"),
		Background:      lipgloss.Color("#2E3440"),
		Foreground:      lipgloss.Color("#ECEFF4"),
		Success:         lipgloss.Color("#A3BE8C"),
		Warning:         lipgloss.Color("#EBCB8B"),
		Error:           lipgloss.Color("#BF616A"),
		Muted:           lipgloss.Color("#4C566A"),
		Border:          lipgloss.Color("#3B4252"),
		Selection:       lipgloss.Color("#88C0D0"),
		SelectionText:   lipgloss.Color("#2E3440"),
		BadgeLocked:     lipgloss.Color("#EBCB8B"),
		BadgeLockedText: lipgloss.Color("#2E3440"),
		BadgeViewed:     lipgloss.Color("#A3BE8C"),
		BadgeViewedText: lipgloss.Color("#2E3440"),
	}

	// BuiltinThemes is a list of all available built-in themes
	BuiltinThemes = []Theme{
		DarkTheme,
		LightTheme,
		SepiaTheme,
		NordTheme,
	}

	// currentTheme holds the active theme
	currentTheme = DarkTheme
)

// GetTheme returns a theme by name, or the default theme if not found
func GetTheme(name string) Theme {
	for _, t := range BuiltinThemes {
		if t.Name == name {
			return t
		}
	}
	return DarkTheme
}

// GetThemeNames returns a list of all available theme names
func GetThemeNames() []string {
	names := make([]string, len(BuiltinThemes))
	for i, t := range BuiltinThemes {
		names[i] = t.Name
	}
	return names
}

// CurrentTheme returns the currently active theme
func CurrentTheme() Theme {
	return currentTheme
}

// SetCurrentTheme sets the active theme by name
func SetCurrentTheme(name string) {
	currentTheme = GetTheme(name)
	ApplyTheme(currentTheme)
}

// NextTheme cycles to the next theme and returns its name
func NextTheme() string {
	for i, t := range BuiltinThemes {
		if t.Name == currentTheme.Name {
			nextIdx := (i + 1) % len(BuiltinThemes)
			SetCurrentTheme(BuiltinThemes[nextIdx].Name)
			return BuiltinThemes[nextIdx].Name
		}
	}
	return currentTheme.Name
}

// ApplyTheme updates all global styles to use the given theme's colors
func ApplyTheme(theme Theme) {
	Primary = theme.Primary
	Secondary = theme.Secondary
	Success = theme.Success
	Warning = theme.Warning
	Error = theme.Error
	Muted = theme.Muted
	Background = theme.Background
	Foreground = theme.Foreground
	Border = theme.Border

	TitleBar = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Background(theme.Primary).
		Padding(0, 1).
		Bold(true)

	StatusBar = lipgloss.NewStyle().
		Foreground(theme.Muted).
		Padding(0, 1)

	FooterBar = lipgloss.NewStyle().
		Foreground(theme.Muted).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1)

	Help = lipgloss.NewStyle().Foreground(theme.Muted)
	HelpKey = lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true)

	MutedText = lipgloss.NewStyle().Foreground(theme.Muted)
	SecondaryText = lipgloss.NewStyle().Foreground(theme.Secondary)

	ErrorStyle = lipgloss.NewStyle().
		Foreground(theme.Error).
		Bold(true).
		Padding(0, 1)

	SuccessStyle = lipgloss.NewStyle().
		Foreground(theme.Success).
		Bold(true).
		Padding(0, 1)

	WarningStyle = lipgloss.NewStyle().
		Foreground(theme.Warning).
		Padding(0, 1)

	InputLabel = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Bold(true)

	InputField = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1)

	InputFieldFocused = InputField.BorderForeground(theme.Primary)

	ListItem = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Padding(0, 2)

	ListItemSelected = lipgloss.NewStyle().
		Foreground(theme.SelectionText).
		Background(theme.Selection).
		Padding(0, 2).
		Bold(true)

	ListItemDimmed = lipgloss.NewStyle().
		Foreground(theme.Muted).
		Padding(0, 2)

	ReaderContent = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Padding(1, 2)

	ReaderHeader = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Background(theme.Primary).
		Padding(0, 1).
		Bold(true)

	ReaderProgress = lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Align(lipgloss.Right)

	LocationBar = lipgloss.NewStyle().
		Foreground(theme.Muted).
		Italic(true).
		Padding(0, 1)

	Paragraph = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		PaddingLeft(2)

	ParagraphFocused = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		BorderLeft(true).
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(theme.Primary).
		PaddingLeft(1)

	FocusMarker = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)

	Dialog = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Primary).
		Padding(1, 2)

	DialogTitle = lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true).
		MarginBottom(1)

	Button = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Background(theme.Muted).
		Padding(0, 2).
		MarginRight(1)

	ButtonFocused = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Background(theme.Primary).
		Padding(0, 2).
		MarginRight(1).
		Bold(true)

	ButtonDisabled = lipgloss.NewStyle().
		Foreground(theme.Muted).
		Padding(0, 2).
		MarginRight(1).
		Faint(true)

	StoryTitle = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Bold(true)

	StoryDescription = lipgloss.NewStyle().
		Foreground(theme.Muted).
		Italic(true)

	ChapterLabel = lipgloss.NewStyle().Foreground(theme.Secondary)

	BadgeLocked = lipgloss.NewStyle().
		Foreground(theme.BadgeLockedText).
		Background(theme.BadgeLocked).
		Padding(0, 1).
		Bold(true)

	BadgeViewed = lipgloss.NewStyle().
		Foreground(theme.BadgeViewedText).
		Background(theme.BadgeViewed).
		Padding(0, 1)

	Price = lipgloss.NewStyle().Foreground(theme.Warning).Bold(true)
}

// init applies the default theme on package load
func init() {
	ApplyTheme(DarkTheme)
}
