package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/engine"
	"github.com/mmcdole/kondo/internal/service"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type scanOptions struct {
	json  bool
	match string
}

// scanReport is the --json output of scan.
type scanReport struct {
	Projects    []domain.Project `json:"projects"`
	SearchPaths []string         `json:"searchPaths"`
	Reclaimable uint64           `json:"reclaimable"`
}

func newScanCmd(opts *globalOptions) *cobra.Command {
	var so scanOptions
	cmd := &cobra.Command{
		Use:   "scan [roots...]",
		Short: "List discovered projects and their reclaimable space",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts, args, so)
		},
	}
	cmd.Flags().BoolVar(&so.json, "json", false, "output in JSON format")
	cmd.Flags().StringVar(&so.match, "match", "", "only list projects whose path or type fuzzy-matches")
	return cmd
}

func runScan(cmd *cobra.Command, opts *globalOptions, roots []string, so scanOptions) error {
	cfg, err := loadConfig(opts, roots)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd.Context())
	defer stop()
	a.start(ctx)
	defer a.close()

	state, err := a.projects.Fetch(ctx)
	if err != nil {
		return err
	}
	projects := service.MatchProjects(state.Known, so.match)

	if so.json {
		return writeJSON(cmd.OutOrStdout(), state, projects)
	}
	writeTable(cmd.OutOrStdout(), state, projects)
	return nil
}

func writeJSON(w io.Writer, state engine.State, projects []domain.Project) error {
	report := scanReport{Projects: projects, SearchPaths: searchPaths(state)}
	if report.Projects == nil {
		report.Projects = []domain.Project{}
	}
	for _, p := range projects {
		if p.HasArtifacts {
			report.Reclaimable += p.Size.ArtifactSize
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeTable(w io.Writer, state engine.State, projects []domain.Project) {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("TYPE", "ARTIFACTS", "PATH").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})

	var total uint64
	for _, p := range projects {
		size := dimStyle.Render("clean")
		if p.HasArtifacts {
			size = humanize.Bytes(p.Size.ArtifactSize)
			total += p.Size.ArtifactSize
		}
		t.Row(string(p.ProjectType), size, p.Path)
	}
	fmt.Fprintln(w, t.Render())

	fmt.Fprintf(w, "\n%d projects, %s reclaimable in %v\n",
		len(projects), humanize.Bytes(total), searchPaths(state))
}

func searchPaths(s engine.State) []string {
	var out []string
	for _, p := range s.SearchPaths {
		if path, ok := p.Data(); ok {
			out = append(out, path)
		}
	}
	return out
}
