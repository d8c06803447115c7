package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/engine"
)

// Command factories for async operations

// FetchCmd runs one discovery round. Results reach the model through the
// engine observer; the message only reports completion.
func FetchCmd(svc ProjectActions) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		_, err := svc.Fetch(ctx)
		return FetchDoneMsg{Err: err}
	}
}

// CleanSelectedCmd cleans every selected project
func CleanSelectedCmd(svc ProjectActions) tea.Cmd {
	return func() tea.Msg {
		return CleanDoneMsg{Results: svc.CleanSelected(context.Background())}
	}
}

// CleanAllCmd cleans every project that still has artifacts
func CleanAllCmd(svc ProjectActions) tea.Cmd {
	return func() tea.Msg {
		return CleanDoneMsg{Results: svc.CleanAll(context.Background())}
	}
}

// ToggleSelectionCmd flips the selection of one project
func ToggleSelectionCmd(svc ProjectActions, id domain.Identity) tea.Cmd {
	return func() tea.Msg {
		if _, err := svc.ToggleSelection(context.Background(), id); err != nil {
			return ErrMsg{Err: err, Context: "selecting project"}
		}
		return nil
	}
}

// SetSelectionCmd selects or deselects a set of projects
func SetSelectionCmd(svc ProjectActions, ids []domain.Identity, selected bool) tea.Cmd {
	return func() tea.Msg {
		if _, err := svc.SetSelection(context.Background(), ids, selected); err != nil {
			return ErrMsg{Err: err, Context: "selecting projects"}
		}
		return nil
	}
}

// ResetCmd restores the initial state and rescans
func ResetCmd(svc ProjectActions) tea.Cmd {
	return func() tea.Msg {
		if _, err := svc.Reset(context.Background()); err != nil {
			return ErrMsg{Err: err, Context: "resetting"}
		}
		return FetchCmd(svc)()
	}
}

// LoadPreferencesCmd reads the configuration record
func LoadPreferencesCmd(svc PreferenceActions) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cfg, err := svc.Fetch(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading preferences"}
		}
		return PreferencesMsg{Config: cfg}
	}
}

// CommitPreferencesCmd writes cfg and reads it back
func CommitPreferencesCmd(svc PreferenceActions, cfg domain.Config) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		stored, err := svc.Commit(ctx, cfg)
		if err != nil {
			return ErrMsg{Err: err, Context: "saving preferences"}
		}
		return PreferencesMsg{Config: stored}
	}
}

// AddItemsCmd asks the backend to scan an extra root. The projects arrive
// later as pushed notifications.
func AddItemsCmd(adder ItemAdder, root string) tea.Cmd {
	return func() tea.Msg {
		var roots []string
		if root != "" {
			roots = []string{root}
		}
		if _, err := adder.AddItems(context.Background(), roots); err != nil {
			return ErrMsg{Err: err, Context: "adding " + root}
		}
		return AddItemsDoneMsg{Root: root}
	}
}

// OpenCmd reveals a project directory in the file manager
func OpenCmd(opener Opener, dir string) tea.Cmd {
	return func() tea.Msg {
		if err := opener.Open(dir); err != nil {
			return ErrMsg{Err: err, Context: "opening " + dir}
		}
		return StatusMsg{Message: "Opened " + dir}
	}
}

// WaitForStateCmd blocks until the engine publishes a state
func WaitForStateCmd(states <-chan engine.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-states
		if !ok {
			return nil
		}
		return StateMsg{State: s}
	}
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
