package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/engine"
	"github.com/mmcdole/kondo/internal/tui/styles"
	"github.com/sahilm/fuzzy"
)

// Layout constants
const (
	// Border adds 1 char on each side
	BorderWidth  = 2
	BorderHeight = 2

	// Title line, "↑ more" and "↓ more"
	chromeLines = 3

	typeWidth = 7
	sizeWidth = 10
)

// Row is one project with its latest clean status.
type Row struct {
	Project domain.Project
	Status  engine.CleanValue
}

// ProjectList is a scrollable, filterable list of projects.
type ProjectList struct {
	rows []Row

	cursor     int
	offset     int
	maxVisible int

	width  int
	height int
	glass  bool

	title        string
	loading      bool
	spinnerFrame string

	filterActive bool
	filterInput  textinput.Model
	filterQuery  string
	filteredIdx  []int // indices into rows
}

// NewProjectList creates an empty list
func NewProjectList(title string) *ProjectList {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	return &ProjectList{title: title, filterInput: ti, glass: true}
}

// SetRows replaces the rows, keeping the cursor on the same project when it
// is still present.
func (l *ProjectList) SetRows(rows []Row) {
	var current domain.Identity
	if p, ok := l.Current(); ok {
		current = p.Identity
	}

	l.rows = rows
	if l.filterActive {
		l.applyFilter()
	}

	l.cursor = 0
	for i := 0; i < l.ItemCount(); i++ {
		if l.rows[l.mapIndex(i)].Project.Identity == current {
			l.cursor = i
			break
		}
	}
	l.ensureVisible()
}

// Rows returns the rows currently shown, after filtering.
func (l *ProjectList) Rows() []Row {
	out := make([]Row, l.ItemCount())
	for i := range out {
		out[i] = l.rows[l.mapIndex(i)]
	}
	return out
}

// Current returns the project under the cursor
func (l *ProjectList) Current() (domain.Project, bool) {
	if l.ItemCount() == 0 || l.cursor >= l.ItemCount() {
		return domain.Project{}, false
	}
	return l.rows[l.mapIndex(l.cursor)].Project, true
}

func (l *ProjectList) SetLoading(loading bool) { l.loading = loading }
func (l *ProjectList) SetSpinner(frame string) { l.spinnerFrame = frame }
func (l *ProjectList) SetGlass(glass bool) { l.glass = glass }
func (l *ProjectList) SetTitle(title string) { l.title = title }
func (l *ProjectList) IsFiltering() bool { return l.filterActive }
func (l *ProjectList) IsTyping() bool { return l.filterActive && l.filterInput.Focused() }
func (l *ProjectList) FilterQuery() string { return l.filterQuery }

// ToggleFilter opens the filter bar, or focuses it when already open
func (l *ProjectList) ToggleFilter() tea.Cmd {
	l.filterActive = true
	l.recalcMaxVisible()
	return l.filterInput.Focus()
}

// ClearFilter closes the filter bar and shows all rows
func (l *ProjectList) ClearFilter() {
	l.filterActive = false
	l.filterQuery = ""
	l.filteredIdx = nil
	l.filterInput.SetValue("")
	l.filterInput.Blur()
	l.recalcMaxVisible()
}

func (l *ProjectList) Update(msg tea.Msg) tea.Cmd {
	if l.IsTyping() {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "esc":
				l.ClearFilter()
				return nil
			case "enter":
				// Accept filter, blur input to allow navigation
				l.filterInput.Blur()
				return nil
			case "backspace":
				if l.filterInput.Value() == "" {
					l.ClearFilter()
					return nil
				}
			}
		}

		var cmd tea.Cmd
		l.filterInput, cmd = l.filterInput.Update(msg)
		l.applyFilter()
		return cmd
	}

	count := l.ItemCount()
	if count == 0 {
		return nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "j", "down":
			if l.cursor < count-1 {
				l.cursor++
			}
		case "k", "up":
			if l.cursor > 0 {
				l.cursor--
			}
		case "home":
			l.cursor = 0
		case "G", "end":
			l.cursor = count - 1
		case "ctrl+d":
			l.cursor = min(l.cursor+l.maxVisible/2, count-1)
		case "ctrl+u":
			l.cursor = max(l.cursor-l.maxVisible/2, 0)
		}
		l.ensureVisible()
	}
	return nil
}

func (l *ProjectList) View() string {
	style := styles.GlassFrame
	if !l.glass {
		style = styles.SolidFrame
	}
	frameW, frameH := style.GetFrameSize()

	return style.
		Width(l.width - frameW).
		Height(l.height - frameH).
		Render(l.renderContent())
}

func (l *ProjectList) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.recalcMaxVisible()
	l.ensureVisible()
}

// ItemCount returns the number of rows after filtering
func (l *ProjectList) ItemCount() int {
	if l.filteredIdx != nil {
		return len(l.filteredIdx)
	}
	return len(l.rows)
}

func (l *ProjectList) recalcMaxVisible() {
	l.maxVisible = l.height - BorderHeight - chromeLines
	if l.filterActive {
		l.maxVisible--
	}
	if l.maxVisible < 1 {
		l.maxVisible = 1
	}
}

func (l *ProjectList) ensureVisible() {
	if l.maxVisible <= 0 {
		return
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+l.maxVisible {
		l.offset = l.cursor - l.maxVisible + 1
	}
}

// applyFilter matches the query against project paths and types.
func (l *ProjectList) applyFilter() {
	query := l.filterInput.Value()
	l.filterQuery = query

	if query == "" {
		l.filteredIdx = nil
		return
	}

	targets := make([]string, len(l.rows))
	for i, r := range l.rows {
		targets[i] = strings.ToLower(string(r.Project.ProjectType) + " " + r.Project.Path)
	}

	matches := fuzzy.Find(strings.ToLower(query), targets)
	l.filteredIdx = make([]int, len(matches))
	for i, match := range matches {
		l.filteredIdx[i] = match.Index
	}

	l.cursor = 0
	l.offset = 0
}

func (l *ProjectList) mapIndex(i int) int {
	if l.filteredIdx != nil && i < len(l.filteredIdx) {
		return l.filteredIdx[i]
	}
	return i
}

// Rendering

func (l *ProjectList) renderContent() string {
	itemWidth := l.width - BorderWidth
	if itemWidth < 20 {
		itemWidth = 20
	}

	titleLine := styles.AccentStyle.Render(styles.Truncate(l.title, itemWidth))

	count := l.ItemCount()
	if count == 0 {
		msg := "No projects"
		switch {
		case l.loading:
			msg = l.spinnerFrame + " Scanning..."
		case l.filterActive && l.filterQuery != "":
			msg = "No matches"
		}
		content := titleLine + "\n \n" + styles.DimStyle.Render(msg) + "\n "
		if l.filterActive {
			content += "\n" + l.filterInput.View()
		}
		return content
	}

	end := min(l.offset+l.maxVisible, count)
	lines := make([]string, 0, end-l.offset)
	for i := l.offset; i < end; i++ {
		lines = append(lines, l.renderRow(l.rows[l.mapIndex(i)], i == l.cursor, itemWidth))
	}

	// Always reserve the scroll indicator lines to prevent layout shifts
	header := " "
	if l.offset > 0 {
		header = styles.DimStyle.Render("↑ more")
	}
	footer := " "
	if end < count {
		footer = styles.DimStyle.Render("↓ more")
	}

	content := titleLine + "\n" + header + "\n" + strings.Join(lines, "\n") + "\n" + footer
	if l.filterActive {
		content += "\n" + l.filterInput.View()
	}
	return content
}

func (l *ProjectList) renderRow(r Row, selected bool, width int) string {
	p := r.Project

	marker, markerFg := styles.UnselectedChar, styles.DimGray
	if p.Selected {
		marker, markerFg = styles.SelectedChar, styles.Broom
	}

	size := "clean"
	if rs := p.ReclaimableSize(); rs >= 0 {
		size = humanize.Bytes(uint64(rs))
	}

	status, statusFg := l.statusText(r.Status)

	// marker + spaces + type + size + status
	pathWidth := width - 2 - 2 - typeWidth - sizeWidth - lipgloss.Width(status) - 4
	parts := []styles.RowPart{
		{Text: marker + " ", Foreground: &markerFg},
		{Text: fmt.Sprintf("%-*s ", typeWidth, p.ProjectType)},
		{Text: fmt.Sprintf("%-*s ", max(pathWidth, 1), styles.TruncateLeft(p.Path, pathWidth))},
		{Text: fmt.Sprintf("%*s ", sizeWidth, size)},
	}
	if status != "" {
		parts = append(parts, styles.RowPart{Text: status, Foreground: &statusFg})
	}
	return styles.RenderListRow(parts, selected, width)
}

func (l *ProjectList) statusText(v engine.CleanValue) (string, lipgloss.Color) {
	switch {
	case v.IsPending():
		return l.spinnerFrame, styles.Broom
	case v.IsFulfilled():
		msg, _ := v.Data()
		return styles.CleanedChar + " " + msg, styles.Green
	case v.IsRejected():
		msg, _ := v.Err()
		return styles.FailedChar + " " + styles.Truncate(msg, 30), styles.Red
	default:
		return "", styles.DimGray
	}
}
