package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/engine"
	"github.com/mmcdole/kondo/internal/service"
	"github.com/mmcdole/kondo/internal/tui/components"
	"github.com/mmcdole/kondo/internal/tui/styles"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateHelp
	StateAddRoot
	StateConfirmCleanAll
)

// Vertical chrome: header line, search paths line, footer line
const ChromeHeight = 3

// ProjectActions is the part of the project service the UI drives.
type ProjectActions interface {
	Snapshot() engine.State
	Fetch(ctx context.Context) (engine.State, error)
	CleanSelected(ctx context.Context) []service.CleanResult
	CleanAll(ctx context.Context) []service.CleanResult
	ToggleSelection(ctx context.Context, id domain.Identity) (engine.State, error)
	SetSelection(ctx context.Context, ids []domain.Identity, selected bool) (engine.State, error)
	Reset(ctx context.Context) (engine.State, error)
}

// PreferenceActions reads and writes the configuration record.
type PreferenceActions interface {
	Current() domain.Config
	Fetch(ctx context.Context) (domain.Config, error)
	Commit(ctx context.Context, cfg domain.Config) (domain.Config, error)
}

// ItemAdder starts a pushed scan of extra roots.
type ItemAdder interface {
	AddItems(ctx context.Context, roots []string) (uuid.UUID, error)
}

// Opener reveals a directory in a file manager.
type Opener interface {
	Open(dir string) error
}

// Model is the main Bubble Tea model for the application
type Model struct {
	State ApplicationState
	Ready bool

	// Services
	Projects    ProjectActions
	Preferences PreferenceActions
	Adder       ItemAdder // nil disables adding roots
	Opener      Opener    // nil disables opening folders

	// Engine states, coalesced
	states <-chan engine.State

	// UI Components
	List     *components.ProjectList
	Spinner  spinner.Model
	Help     help.Model
	AddInput textinput.Model

	// Latest published state
	Snapshot engine.State
	Glass    bool

	Width  int
	Height int

	StatusMsg   string
	StatusIsErr bool
	Cleaning    int // clean batches in flight
}

// NewModel creates a new application model. states is fed by an engine
// observer.
func NewModel(projects ProjectActions, prefs PreferenceActions, states <-chan engine.State) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	ti := textinput.New()
	ti.Placeholder = "~/src"
	ti.Prompt = "add path: "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	h := help.New()
	h.Styles.ShortKey = styles.HelpKeyStyle
	h.Styles.ShortDesc = styles.HelpDescStyle
	h.Styles.FullKey = styles.HelpKeyStyle
	h.Styles.FullDesc = styles.HelpDescStyle

	cfg := prefs.Current()
	list := components.NewProjectList("Projects")
	list.SetGlass(cfg.EnableGlass)

	return Model{
		State:       StateBrowsing,
		Projects:    projects,
		Preferences: prefs,
		states:      states,
		List:        list,
		Spinner:     sp,
		Help:        h,
		AddInput:    ti,
		Snapshot:    projects.Snapshot(),
		Glass:       cfg.EnableGlass,
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		WaitForStateCmd(m.states),
		LoadPreferencesCmd(m.Preferences),
		FetchCmd(m.Projects),
		m.Spinner.Tick,
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.Help.Width = msg.Width
		m.List.SetSize(m.Width, m.Height-ChromeHeight)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		m.List.SetSpinner(m.Spinner.View())
		return m, cmd

	case StateMsg:
		m.applyState(msg.State)
		return m, WaitForStateCmd(m.states)

	case FetchDoneMsg:
		if msg.Err != nil {
			m.setStatus(msg.Err.Error(), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Found %d projects", len(m.Snapshot.Known)), false)
		return m, ClearStatusCmd(3 * time.Second)

	case CleanDoneMsg:
		m.Cleaning--
		var freed uint64
		failed := 0
		for _, r := range msg.Results {
			if r.Err != nil {
				failed++
				continue
			}
			freed += r.Freed
		}
		status := fmt.Sprintf("Cleaned %d projects, freed %s", len(msg.Results)-failed, humanize.Bytes(freed))
		if failed > 0 {
			status += fmt.Sprintf(" (%d failed)", failed)
		}
		m.setStatus(status, failed > 0)
		return m, ClearStatusCmd(5 * time.Second)

	case PreferencesMsg:
		m.Glass = msg.Config.EnableGlass
		m.List.SetGlass(m.Glass)
		return m, nil

	case AddItemsDoneMsg:
		if msg.Root == "" {
			return m, nil
		}
		m.setStatus("Scanning "+msg.Root, false)
		return m, ClearStatusCmd(3 * time.Second)

	case ErrMsg:
		m.setStatus(msg.Error(), true)
		return m, ClearStatusCmd(5 * time.Second)

	case StatusMsg:
		m.setStatus(msg.Message, msg.IsError)
		return m, ClearStatusCmd(3 * time.Second)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	return m, nil
}

// applyState copies a published state into the list.
func (m *Model) applyState(s engine.State) {
	m.Snapshot = s
	m.List.SetLoading(s.Projects.IsPending())

	rows := make([]components.Row, len(s.Known))
	for i, p := range s.Known {
		rows[i] = components.Row{Project: p, Status: s.CleanStatusOf(p.Identity)}
	}
	m.List.SetRows(rows)

	if err, ok := s.Projects.Err(); ok && err != nil {
		m.setStatus(err.Error(), true)
	}
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.StatusMsg = msg
	m.StatusIsErr = isErr
}
