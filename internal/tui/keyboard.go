package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/service"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle state-specific keys
	switch m.State {
	case StateHelp:
		if key.Matches(msg, Keys.Escape, Keys.Help, Keys.Quit) {
			m.State = StateBrowsing
		}
		return m, nil

	case StateConfirmCleanAll:
		switch {
		case key.Matches(msg, Keys.Confirm):
			m.State = StateBrowsing
			m.Cleaning++
			return m, CleanAllCmd(m.Projects)
		case key.Matches(msg, Keys.Deny):
			m.State = StateBrowsing
		}
		return m, nil

	case StateAddRoot:
		return m.handleAddRootKey(msg)
	}

	// The filter bar swallows everything while typing
	if m.List.IsTyping() {
		return m, m.List.Update(msg)
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Escape):
		if m.List.IsFiltering() {
			m.List.ClearFilter()
		}
		return m, nil

	case key.Matches(msg, Keys.Filter):
		return m, m.List.ToggleFilter()

	case key.Matches(msg, Keys.Toggle):
		if p, ok := m.List.Current(); ok {
			return m, ToggleSelectionCmd(m.Projects, p.Identity)
		}
		return m, nil

	case key.Matches(msg, Keys.SelectAll):
		return m, SetSelectionCmd(m.Projects, m.visibleIdentities(), true)

	case key.Matches(msg, Keys.SelectNone):
		return m, SetSelectionCmd(m.Projects, m.visibleIdentities(), false)

	case key.Matches(msg, Keys.Clean):
		if len(m.Snapshot.Selected()) == 0 {
			m.setStatus("Nothing selected", false)
			return m, nil
		}
		m.Cleaning++
		return m, CleanSelectedCmd(m.Projects)

	case key.Matches(msg, Keys.CleanAll):
		if len(m.Snapshot.WithArtifacts()) == 0 {
			m.setStatus("Nothing to clean", false)
			return m, nil
		}
		m.State = StateConfirmCleanAll
		return m, nil

	case key.Matches(msg, Keys.Open):
		p, ok := m.List.Current()
		if !ok || m.Opener == nil {
			return m, nil
		}
		return m, OpenCmd(m.Opener, p.Path)

	case key.Matches(msg, Keys.AddRoot):
		if m.Adder == nil {
			return m, nil
		}
		m.State = StateAddRoot
		m.AddInput.SetValue("")
		return m, m.AddInput.Focus()

	case key.Matches(msg, Keys.Refresh):
		return m, FetchCmd(m.Projects)

	case key.Matches(msg, Keys.Reset):
		return m, ResetCmd(m.Projects)

	case key.Matches(msg, Keys.ToggleGlass):
		cfg := m.Preferences.Current()
		cfg.EnableGlass = !m.Glass
		return m, CommitPreferencesCmd(m.Preferences, cfg)
	}

	// Navigation
	return m, m.List.Update(msg)
}

func (m Model) handleAddRootKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.State = StateBrowsing
		m.AddInput.Blur()
		// An abandoned pick is reported as aborted
		return m, AddItemsCmd(m.Adder, "")
	case "enter":
		m.State = StateBrowsing
		m.AddInput.Blur()
		return m, AddItemsCmd(m.Adder, strings.TrimSpace(m.AddInput.Value()))
	}

	var cmd tea.Cmd
	m.AddInput, cmd = m.AddInput.Update(msg)
	return m, cmd
}

func (m Model) visibleIdentities() []domain.Identity {
	rows := m.List.Rows()
	projects := make([]domain.Project, len(rows))
	for i, r := range rows {
		projects[i] = r.Project
	}
	return service.IdentitiesOf(projects)
}
