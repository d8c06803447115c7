package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Broom      = lipgloss.Color("#F2C94C")
	SlateDark  = lipgloss.Color("#1F2937")
	SlateLight = lipgloss.Color("#374151")
	DimGray    = lipgloss.Color("#6B7280")
	LightGray  = lipgloss.Color("#9CA3AF")
	White      = lipgloss.Color("#F9FAFB")
	Green      = lipgloss.Color("#10B981")
	Red        = lipgloss.Color("#EF4444")
)

// Frames. The glass frame draws no background so the terminal shows through.
var (
	GlassFrame = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimGray)

	SolidFrame = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Broom).
			Background(SlateDark)
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(Broom)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)
)

// Selection markers
const (
	SelectedChar   = "●"
	UnselectedChar = "○"
	CleanedChar    = "✓"
	FailedChar     = "✗"
)

// Help styles
var (
	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(Broom)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(DimGray)
)

var (
	ProgressFullStyle = lipgloss.NewStyle().
				Foreground(Broom)

	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(DimGray)
)

var SpinnerStyle = lipgloss.NewStyle().Foreground(Broom)

// Filter styles
var (
	FilterStyle = lipgloss.NewStyle().
			Foreground(Broom)

	FilterPromptStyle = lipgloss.NewStyle().
				Foreground(Broom).
				Bold(true)
)

// Truncate shortens s to width cells, ending in an ellipsis.
func Truncate(s string, width int) string {
	r := []rune(s)
	switch {
	case width <= 0:
		return ""
	case len(r) <= width:
		return s
	case width == 1:
		return "…"
	}
	return string(r[:width-1]) + "…"
}

// TruncateLeft keeps the end of s, which is the informative part of a path.
func TruncateLeft(s string, width int) string {
	r := []rune(s)
	switch {
	case width <= 0:
		return ""
	case len(r) <= width:
		return s
	case width == 1:
		return "…"
	}
	return "…" + string(r[len(r)-width+1:])
}

// RenderProgressBar renders a bar filled to fraction (0..1).
func RenderProgressBar(fraction float64, width int) string {
	if width < 3 {
		return ""
	}
	filled := min(max(int(float64(width)*fraction), 0), width)
	return ProgressFullStyle.Render(strings.Repeat("█", filled)) +
		ProgressEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// RowPart is one span of a list row. A nil Foreground uses the row default.
type RowPart struct {
	Text       string
	Foreground *lipgloss.Color
}

// RenderListRow renders parts as one row padded to width, with a one-cell
// margin on both sides. Every span is styled on its own so the highlight
// background survives the reset codes between spans.
func RenderListRow(parts []RowPart, selected bool, width int) string {
	base := lipgloss.NewStyle().Foreground(LightGray)
	if selected {
		base = base.Foreground(White).Background(SlateLight)
	}

	var b strings.Builder
	b.WriteString(base.Render(" "))
	used := 0
	for _, part := range parts {
		style := base
		if part.Foreground != nil {
			style = style.Foreground(*part.Foreground)
		}
		b.WriteString(style.Render(part.Text))
		used += lipgloss.Width(part.Text)
	}
	if pad := width - used - 2; pad > 0 {
		b.WriteString(base.Render(strings.Repeat(" ", pad)))
	}
	b.WriteString(base.Render(" "))
	return b.String()
}
