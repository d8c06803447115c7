package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mmcdole/kondo/internal/tui/styles"
)

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.State == StateHelp {
		return m.renderHelp()
	}

	view := lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.renderSearchPaths(),
		m.List.View(),
		m.renderFooter(),
	)

	if m.State == StateConfirmCleanAll {
		view = lipgloss.Place(m.Width, m.Height,
			lipgloss.Center, lipgloss.Center,
			m.renderModal(m.renderCleanAllConfirmation()))
	}
	if m.State == StateAddRoot {
		view = lipgloss.Place(m.Width, m.Height,
			lipgloss.Center, lipgloss.Center,
			m.renderModal(m.AddInput.View()))
	}
	return view
}

// renderHeader shows reclaimable and reclaimed space
func (m Model) renderHeader() string {
	s := m.Snapshot
	left := styles.TitleStyle.Render("kondo") + "  " +
		styles.DimStyle.Render(fmt.Sprintf("%d projects", len(s.Known)))

	reclaimable := styles.AccentStyle.Render(humanize.Bytes(s.ReclaimableSpace())) +
		styles.DimStyle.Render(" reclaimable")
	cleaned := styles.SuccessStyle.Render(humanize.Bytes(s.CleanedSpace)) +
		styles.DimStyle.Render(" freed")

	var fraction float64
	if s.TotalSpace > 0 {
		fraction = float64(s.CleanedSpace) / float64(s.TotalSpace)
	}
	right := reclaimable + "  " + cleaned + "  " + styles.RenderProgressBar(fraction, 12)

	gap := max(m.Width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

// renderSearchPaths lists the search roots; pending ones show the spinner.
func (m Model) renderSearchPaths() string {
	if len(m.Snapshot.SearchPaths) == 0 {
		return styles.DimStyle.Render("no search paths")
	}
	parts := make([]string, 0, len(m.Snapshot.SearchPaths))
	for _, p := range m.Snapshot.SearchPaths {
		switch {
		case p.IsFulfilled():
			path, _ := p.Data()
			parts = append(parts, styles.DimStyle.Render(path))
		case p.IsPending():
			parts = append(parts, m.Spinner.View())
		case p.IsRejected():
			parts = append(parts, styles.ErrorStyle.Render(styles.FailedChar))
		}
	}
	return lipgloss.NewStyle().MaxWidth(max(m.Width, 1)).Render(strings.Join(parts, styles.DimStyle.Render(" · ")))
}

// renderFooter renders a single-line footer: status on the left, key hints
// on the right.
func (m Model) renderFooter() string {
	var left string
	switch {
	case m.Cleaning > 0:
		left = m.Spinner.View() + " " + styles.DimStyle.Render("Cleaning...")
	case m.Snapshot.Projects.IsPending():
		left = m.Spinner.View() + " " + styles.DimStyle.Render("Scanning...")
	case m.StatusMsg != "":
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.DimStyle.Render(m.StatusMsg)
		}
	}

	right := m.Help.ShortHelpView(Keys.ShortHelp())
	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderHelp() string {
	h := m.Help
	h.ShowAll = true
	content := styles.TitleStyle.Render("Keys") + "\n\n" + h.View(Keys)
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, m.renderModal(content))
}

func (m Model) renderCleanAllConfirmation() string {
	s := m.Snapshot
	return fmt.Sprintf("%s\n\n%s\n\n%s",
		styles.TitleStyle.Render("Clean all projects?"),
		styles.DimStyle.Render(fmt.Sprintf("%d projects, %s of artifacts will be removed",
			len(s.WithArtifacts()), humanize.Bytes(s.ReclaimableSpace()))),
		styles.AccentStyle.Render("y")+styles.DimStyle.Render(" confirm  ")+
			styles.AccentStyle.Render("n")+styles.DimStyle.Render(" cancel"))
}

func (m Model) renderModal(content string) string {
	frame := styles.GlassFrame
	if !m.Glass {
		frame = styles.SolidFrame
	}
	return frame.Padding(1, 2).Render(content)
}
