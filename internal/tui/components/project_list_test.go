package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/loading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(path string, t domain.ProjectType, artifacts uint64) Row {
	p := domain.NewProject(domain.RawProject{
		Path:        path,
		ProjectType: t,
		Size:        domain.ProjectSize{ArtifactSize: artifacts},
	}, domain.Identity("id:"+path))
	return Row{Project: p, Status: loading.Idle[string, string]()}
}

func sampleRows() []Row {
	return []Row{
		row("~/src/web", domain.ProjectNode, 1<<20),
		row("~/src/crate", domain.ProjectCargo, 2<<20),
		row("~/src/game", domain.ProjectUnity, 0),
	}
}

func press(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestProjectListNavigation(t *testing.T) {
	l := NewProjectList("Projects")
	l.SetSize(80, 20)
	l.SetRows(sampleRows())

	p, ok := l.Current()
	require.True(t, ok)
	assert.Equal(t, "~/src/web", p.Path)

	l.Update(press("j"))
	l.Update(press("j"))
	l.Update(press("j"))
	p, _ = l.Current()
	assert.Equal(t, "~/src/game", p.Path, "cursor stops at the last row")

	l.Update(press("k"))
	p, _ = l.Current()
	assert.Equal(t, "~/src/crate", p.Path)
}

func TestProjectListSetRowsKeepsCursorOnProject(t *testing.T) {
	l := NewProjectList("Projects")
	l.SetSize(80, 20)
	l.SetRows(sampleRows())
	l.Update(press("j"))

	rows := sampleRows()
	rows = append([]Row{row("~/new", domain.ProjectMaven, 1)}, rows...)
	l.SetRows(rows)

	p, _ := l.Current()
	assert.Equal(t, "~/src/crate", p.Path)
}

func TestProjectListFilter(t *testing.T) {
	l := NewProjectList("Projects")
	l.SetSize(80, 20)
	l.SetRows(sampleRows())

	l.ToggleFilter()
	require.True(t, l.IsTyping())
	for _, r := range "crate" {
		l.Update(press(string(r)))
	}

	assert.Equal(t, "crate", l.FilterQuery())
	rows := l.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "~/src/crate", rows[0].Project.Path)

	l.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, l.IsFiltering())
	assert.Len(t, l.Rows(), 3)
}

func TestProjectListFilterMatchesType(t *testing.T) {
	l := NewProjectList("Projects")
	l.SetRows(sampleRows())
	l.filterActive = true
	l.filterInput.SetValue("unity")
	l.applyFilter()

	rows := l.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, domain.ProjectUnity, rows[0].Project.ProjectType)
}

func TestProjectListRendersStatusAndSizes(t *testing.T) {
	l := NewProjectList("Projects")
	l.SetSize(100, 20)
	rows := sampleRows()
	rows[0].Status = loading.Fulfilled[string, string]("Success!")
	rows[1].Status = loading.Rejected[string, string]("permission denied")
	l.SetRows(rows)

	view := l.View()
	assert.Contains(t, view, "Success!")
	assert.Contains(t, view, "permission denied")
	assert.Contains(t, view, "1.0 MB")
	assert.Contains(t, view, "clean", "a project without artifacts shows no size")
}

func TestProjectListEmptyStates(t *testing.T) {
	l := NewProjectList("Projects")
	l.SetSize(80, 10)
	assert.Contains(t, l.View(), "No projects")

	l.SetLoading(true)
	assert.Contains(t, l.View(), "Scanning...")
}
