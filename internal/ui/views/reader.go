package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/justyntemme/tales-t/internal/nav"
	"github.com/justyntemme/tales-t/internal/reader"
	"github.com/justyntemme/tales-t/internal/ui/styles"
)

// minTextWidth keeps paragraphs readable on narrow terminals
const minTextWidth = 20

// ReaderView displays the current page of a story
type ReaderView struct {
	snap reader.Snapshot

	// page the cursor belongs to
	pageKey nav.PageKey
	cursor  int

	// Rendered page
	lines      []string
	starts     []int // first line of each paragraph
	lineOffset int

	renderer *glamour.TermRenderer
	// rendered paragraph text by id, valid for the current width
	rendered map[int64]renderedText

	spinner spinner.Model
	ticking bool

	// Chapter list overlay
	showChapters  bool
	chapterCursor int

	// Dimensions
	width  int
	height int
}

type renderedText struct {
	source string
	out    string
}

// NewReaderView creates a new reader view
func NewReaderView() *ReaderView {
	s := spinner.New()
	s.Spinner = spinner.Dot

	v := &ReaderView{
		spinner:  s,
		rendered: make(map[int64]renderedText),
		width:    80,
		height:   24,
	}
	v.resetRenderer()
	return v
}

// Init implements View
func (v *ReaderView) Init() tea.Cmd {
	return v.startSpinner()
}

// SetSnapshot implements SnapshotView
func (v *ReaderView) SetSnapshot(s reader.Snapshot) tea.Cmd {
	v.snap = s
	key := s.Position.PageKey()
	if key != v.pageKey {
		v.pageKey = key
		v.cursor = 0
		v.lineOffset = 0
	}
	if focused := s.Focused(); focused >= 0 {
		v.cursor = focused
	}
	if v.cursor >= len(s.Paragraphs) {
		v.cursor = max(0, len(s.Paragraphs)-1)
	}
	v.layout()
	v.followCursor()
	return v.startSpinner()
}

// Overlay reports whether the chapter list is open and wants esc
func (v *ReaderView) Overlay() bool {
	return v.showChapters
}

// Update implements View
func (v *ReaderView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		if !v.busy() {
			v.ticking = false
			return v, nil
		}
		if v.unlocking() {
			v.layout()
		}
		return v, cmd

	case ThemeChangedMsg:
		v.resetRenderer()
		v.layout()
		return v, nil

	case tea.KeyMsg:
		if v.showChapters {
			return v.updateChapters(msg)
		}
		return v.handleKeyMsg(msg)
	}
	return v, nil
}

func (v *ReaderView) handleKeyMsg(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		v.moveCursor(1)
	case "k", "up":
		v.moveCursor(-1)
	case "ctrl+d", "pgdown":
		v.scroll(v.visibleLines() / 2)
	case "ctrl+u", "pgup":
		v.scroll(-v.visibleLines() / 2)
	case " ":
		v.scroll(v.visibleLines() - 2)
	case "g", "home":
		v.cursor = 0
		v.lineOffset = 0
	case "G", "end":
		v.moveCursor(len(v.snap.Paragraphs))
	case "enter":
		if p, ok := v.selected(); ok {
			return v, Dispatch(reader.FocusParagraph{ParagraphID: p.ID})
		}
	case "u":
		if p, ok := v.selected(); ok && p.IsLocked {
			return v, Dispatch(reader.Unlock{ParagraphID: p.ID})
		}
	case "n", "l", "right":
		return v, Dispatch(reader.NextPage{})
	case "p", "h", "left":
		if v.snap.HasPrev {
			return v, Dispatch(reader.NavigatePage{Direction: reader.Prev})
		}
	case "a":
		return v, Dispatch(reader.GenerateParagraph{})
	case "r":
		return v, Dispatch(reader.Reload{})
	case "x":
		return v, Dispatch(reader.DismissError{})
	case "t":
		v.showChapters = true
		v.chapterCursor = v.currentChapterIndex()
	}
	return v, nil
}

// updateChapters handles chapter list navigation
func (v *ReaderView) updateChapters(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "esc", "t", "q":
		v.showChapters = false
	case "j", "down":
		if v.chapterCursor < len(v.snap.Chapters)-1 {
			v.chapterCursor++
		}
	case "k", "up":
		if v.chapterCursor > 0 {
			v.chapterCursor--
		}
	case "g", "home":
		v.chapterCursor = 0
	case "G", "end":
		v.chapterCursor = max(0, len(v.snap.Chapters)-1)
	case "enter":
		v.showChapters = false
		if v.chapterCursor < len(v.snap.Chapters) {
			ch := v.snap.Chapters[v.chapterCursor]
			return v, Dispatch(reader.SelectChapter{ChapterID: ch.ID, Page: 1})
		}
	}
	return v, nil
}

// View implements View
func (v *ReaderView) View() string {
	if v.showChapters {
		return v.renderChapters()
	}

	var b strings.Builder

	b.WriteString(v.renderHeader() + "\n")
	b.WriteString(v.renderLocation() + "\n")

	placeholder := ""
	switch {
	case !v.snap.Position.HasChapter():
		placeholder = v.renderChapterPrompt()
	case v.snap.PageLoading:
		placeholder = v.spinner.View() + styles.MutedText.Render(" Loading page...")
	case len(v.snap.Paragraphs) == 0 && v.snap.Err == nil:
		placeholder = styles.MutedText.Render("This page is empty")
	}

	if placeholder != "" {
		b.WriteString(lipgloss.Place(
			v.width,
			v.visibleLines(),
			lipgloss.Center,
			lipgloss.Center,
			placeholder,
		) + "\n")
	} else {
		visible := v.visibleLines()
		end := min(v.lineOffset+visible, len(v.lines))
		for i := v.lineOffset; i < end; i++ {
			b.WriteString(v.lines[i] + "\n")
		}
		for i := end - v.lineOffset; i < visible; i++ {
			b.WriteString("\n")
		}
	}

	if v.snap.Err != nil {
		b.WriteString(styles.ErrorStyle.Render("Error: "+v.snap.Err.Error()) +
			styles.Help.Render(" x dismiss • r reload") + "\n")
	}
	b.WriteString(v.renderFooter())

	return b.String()
}

// SetSize implements View
func (v *ReaderView) SetSize(width, height int) {
	if width != v.width {
		v.width = width
		v.resetRenderer()
	}
	v.height = height
	v.layout()
	v.followCursor()
}

// renderHeader renders the story title, chapter and reading progress
func (v *ReaderView) renderHeader() string {
	title := "Loading story..."
	if v.snap.Story != nil {
		title = v.snap.Story.Title
	}
	maxTitleWidth := max(10, v.width/3)
	titlePart := styles.ReaderHeader.Render(" " + styles.TruncateText(title, maxTitleWidth) + " ")

	chapterPart := ""
	if v.snap.Chapter != nil {
		label := styles.TruncateText(v.snap.Chapter.Label(), 30)
		chapterPart = styles.ChapterLabel.Render(" " + label)
	}
	if v.snap.Position.HasChapter() {
		chapterPart += styles.Help.Render(fmt.Sprintf(" • page %d ", v.snap.Position.Page))
	}

	progressPart := styles.MutedText.Render(fmt.Sprintf("%d viewed ", v.snap.ViewedCount)) +
		renderProgressBar(10, float64(v.snap.Percent)/100.0) +
		styles.ReaderProgress.Render(fmt.Sprintf(" %d%%", v.snap.Percent))

	left := titlePart + chapterPart
	gap := v.width - lipgloss.Width(left) - lipgloss.Width(progressPart)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + progressPart
}

// renderLocation shows the shareable location and history hints
func (v *ReaderView) renderLocation() string {
	back, forward := "◂", "▸"
	if !v.snap.CanHistoryBack {
		back = " "
	}
	if !v.snap.CanHistoryForward {
		forward = " "
	}
	loc := styles.TruncateText(v.snap.Location, max(10, v.width-8))
	return styles.LocationBar.Render(back + " " + loc + " " + forward)
}

func (v *ReaderView) renderChapterPrompt() string {
	if len(v.snap.Chapters) == 0 {
		return v.spinner.View() + styles.MutedText.Render(" Loading chapters...")
	}
	return styles.MutedText.Render("Press ") + styles.HelpKey.Render("t") +
		styles.MutedText.Render(" to choose a chapter")
}

// renderProgressBar renders a visual progress bar using Unicode block characters
// width is the total character width, progress is 0.0-1.0
func renderProgressBar(width int, progress float64) string {
	if width < 3 {
		width = 3
	}
	progress = max(0, min(1, progress))

	const (
		empty    = "░"
		filled   = "█"
		partials = "▏▎▍▌▋▊▉" // 1/8 to 7/8 filled
	)

	filledWidth := progress * float64(width)
	fullBlocks := int(filledWidth)
	remainder := filledWidth - float64(fullBlocks)

	var bar strings.Builder
	bar.WriteString(strings.Repeat(filled, min(fullBlocks, width)))

	if fullBlocks < width && remainder > 0 {
		if partialIndex := min(int(remainder*8), 7); partialIndex > 0 {
			bar.WriteRune([]rune(partials)[partialIndex-1])
			fullBlocks++
		}
	}
	if fullBlocks < width {
		bar.WriteString(strings.Repeat(empty, width-fullBlocks))
	}

	return styles.SecondaryText.Render(bar.String())
}

// renderFooter renders the page affordances and key help
func (v *ReaderView) renderFooter() string {
	prev := styles.ButtonDisabled.Render("◂ Prev")
	if v.snap.HasPrev {
		prev = styles.Button.Render("◂ Prev")
	}

	gen := v.snap.Generation
	var next string
	switch {
	case !v.snap.Position.HasChapter() || v.snap.PageLoading:
		next = styles.ButtonDisabled.Render("Next ▸")
	case gen.State == reader.Busy && gen.Kind == reader.KindPage:
		next = styles.ButtonDisabled.Render(v.spinner.View() + " Writing next page...")
	case v.snap.NextGenerates && gen.State == reader.Failed && gen.Kind == reader.KindPage:
		next = styles.ButtonFocused.Render("Retry next page")
	case v.snap.NextGenerates && gen.State == reader.Busy:
		next = styles.ButtonDisabled.Render("Generate next page")
	case v.snap.NextGenerates:
		next = styles.ButtonFocused.Render("Generate next page ▸")
	default:
		next = styles.ButtonFocused.Render("Next ▸")
	}

	para := ""
	if v.snap.Position.HasChapter() {
		switch {
		case gen.State == reader.Busy && gen.Kind == reader.KindParagraph:
			para = styles.MutedText.Render(v.spinner.View() + " writing paragraph")
		case gen.State == reader.Failed && gen.Kind == reader.KindParagraph:
			para = styles.WarningStyle.Render("paragraph failed, a to retry")
		}
	}

	buttons := prev + next + para
	if gen.State == reader.Failed && gen.Err != nil {
		buttons += styles.ErrorStyle.Render(styles.TruncateText(gen.Err.Error(), max(10, v.width/3)))
	}

	help := []string{
		styles.HelpKey.Render("j/k") + styles.Help.Render(" select"),
		styles.HelpKey.Render("enter") + styles.Help.Render(" read"),
		styles.HelpKey.Render("u") + styles.Help.Render(" unlock"),
		styles.HelpKey.Render("p/n") + styles.Help.Render(" page"),
		styles.HelpKey.Render("a") + styles.Help.Render(" more"),
		styles.HelpKey.Render("t") + styles.Help.Render(" chapters"),
		styles.HelpKey.Render("[/]") + styles.Help.Render(" history"),
		styles.HelpKey.Render("q") + styles.Help.Render(" back"),
	}
	return styles.FooterBar.Width(v.width).Render(buttons + "\n" + strings.Join(help, "  "))
}

// renderChapters renders the chapter list overlay
func (v *ReaderView) renderChapters() string {
	var b strings.Builder

	b.WriteString(styles.DialogTitle.Render("Chapters") + "\n\n")

	if len(v.snap.Chapters) == 0 {
		b.WriteString(styles.MutedText.Render("No chapters yet") + "\n")
	}

	maxVisible := max(1, v.height-8)
	offset := 0
	if v.chapterCursor >= maxVisible {
		offset = v.chapterCursor - maxVisible + 1
	}
	lineWidth := max(10, min(60, v.width-4)-8)

	current := v.currentChapterIndex()
	for i := offset; i < min(offset+maxVisible, len(v.snap.Chapters)); i++ {
		line := styles.TruncateText(v.snap.Chapters[i].Label(), lineWidth)
		switch {
		case i == v.chapterCursor:
			b.WriteString(styles.ListItemSelected.Render("▸ "+line) + "\n")
		case i == current && v.snap.Chapter != nil:
			b.WriteString(styles.ChapterLabel.Render("  "+line+" (current)") + "\n")
		default:
			b.WriteString(styles.ListItem.Render("  "+line) + "\n")
		}
	}

	b.WriteString("\n" + styles.Help.Render("j/k navigate • enter open • esc close"))

	dialog := styles.Dialog.Width(min(60, v.width-4)).Render(b.String())

	return lipgloss.Place(
		v.width,
		v.height,
		lipgloss.Center,
		lipgloss.Center,
		dialog,
	)
}

// layout renders the page into lines
func (v *ReaderView) layout() {
	v.lines = v.lines[:0]
	v.starts = v.starts[:0]

	for i, p := range v.snap.Paragraphs {
		v.starts = append(v.starts, len(v.lines))
		block := v.renderParagraph(p, i == v.cursor)
		v.lines = append(v.lines, strings.Split(block, "\n")...)
		v.lines = append(v.lines, "")
	}
}

func (v *ReaderView) renderParagraph(p reader.ParagraphView, selected bool) string {
	marker := "  "
	if selected {
		marker = styles.FocusMarker.Render("▸ ")
	}

	head := styles.MutedText.Render(fmt.Sprintf("¶ %d", p.Number))
	if p.Viewed {
		head += " " + styles.BadgeViewed.Render("✓")
	}

	var body string
	if p.IsLocked {
		head += " " + styles.BadgeLocked.Render("LOCKED")
		switch {
		case p.Unlocking:
			body = v.spinner.View() + styles.MutedText.Render(" unlocking...")
		case p.UnlockPrice.Valid:
			body = styles.MutedText.Render("Unlock for ") +
				styles.Price.Render(p.UnlockPrice.Decimal.StringFixed(2)) +
				styles.Help.Render("  (u)")
		default:
			body = styles.MutedText.Render("Locked")
		}
	} else {
		body = v.renderText(p.ID, p.Text)
	}

	style := styles.Paragraph
	if p.Focused {
		style = styles.ParagraphFocused
	}
	return marker + head + "\n" + style.Render(body)
}

// renderText renders paragraph text with glamour, falling back to a plain
// word wrap
func (v *ReaderView) renderText(id int64, text string) string {
	if cached, ok := v.rendered[id]; ok && cached.source == text {
		return cached.out
	}
	var out string
	if v.renderer != nil {
		if md, err := v.renderer.Render(text); err == nil {
			out = strings.Trim(md, "\n")
		}
	}
	if out == "" {
		out = wordwrap.String(text, v.textWidth())
	}
	v.rendered[id] = renderedText{source: text, out: out}
	return out
}

func (v *ReaderView) resetRenderer() {
	v.rendered = make(map[int64]renderedText)

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styles.CurrentTheme().Glamour),
		glamour.WithWordWrap(v.textWidth()),
	)
	if err != nil {
		v.renderer = nil
		return
	}
	v.renderer = r
}

func (v *ReaderView) textWidth() int {
	return max(minTextWidth, v.width-8)
}

func (v *ReaderView) startSpinner() tea.Cmd {
	if !v.busy() || v.ticking {
		return nil
	}
	v.ticking = true
	return v.spinner.Tick
}

func (v *ReaderView) busy() bool {
	if v.snap.PageLoading || v.snap.Generation.State == reader.Busy {
		return true
	}
	if v.snap.Mode == reader.ModeStoryReading && !v.snap.Position.HasChapter() && len(v.snap.Chapters) == 0 {
		return true
	}
	return v.unlocking()
}

func (v *ReaderView) unlocking() bool {
	for _, p := range v.snap.Paragraphs {
		if p.Unlocking {
			return true
		}
	}
	return false
}

func (v *ReaderView) selected() (reader.ParagraphView, bool) {
	if v.cursor < 0 || v.cursor >= len(v.snap.Paragraphs) {
		return reader.ParagraphView{}, false
	}
	return v.snap.Paragraphs[v.cursor], true
}

func (v *ReaderView) currentChapterIndex() int {
	if v.snap.Chapter == nil {
		return 0
	}
	for i, ch := range v.snap.Chapters {
		if ch.ID == v.snap.Chapter.ID {
			return i
		}
	}
	return 0
}

func (v *ReaderView) moveCursor(delta int) {
	if len(v.snap.Paragraphs) == 0 {
		v.cursor = 0
		return
	}
	v.cursor = max(0, min(len(v.snap.Paragraphs)-1, v.cursor+delta))
	v.layout()
	v.followCursor()
}

// followCursor scrolls so the selected paragraph starts on screen
func (v *ReaderView) followCursor() {
	if v.cursor >= len(v.starts) {
		v.scroll(0)
		return
	}
	start := v.starts[v.cursor]
	visible := v.visibleLines()
	if start < v.lineOffset {
		v.lineOffset = start
	}
	if start >= v.lineOffset+visible {
		v.lineOffset = start - visible + 2
	}
	v.scroll(0)
}

// scroll scrolls the content by delta lines
func (v *ReaderView) scroll(delta int) {
	v.lineOffset += delta
	maxOffset := max(0, len(v.lines)-v.visibleLines())
	v.lineOffset = max(0, min(maxOffset, v.lineOffset))
}

// visibleLines returns the number of visible content lines
func (v *ReaderView) visibleLines() int {
	// header, location, error line and a two line footer with border
	lines := v.height - 7
	if lines < 1 {
		lines = 1
	}
	return lines
}
