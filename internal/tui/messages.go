package tui

import (
	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/engine"
	"github.com/mmcdole/kondo/internal/service"
)

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// StateMsg carries a state published by the engine
type StateMsg struct {
	State engine.State
}

// FetchDoneMsg signals that a discovery round finished
type FetchDoneMsg struct {
	Err error
}

// CleanDoneMsg signals that a clean batch finished
type CleanDoneMsg struct {
	Results []service.CleanResult
}

// PreferencesMsg carries the configuration record after a fetch or commit
type PreferencesMsg struct {
	Config domain.Config
}

// AddItemsDoneMsg signals that an add-items operation was published
type AddItemsDoneMsg struct {
	Root string
}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}
