package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/service"
	"github.com/spf13/cobra"
)

type cleanOptions struct {
	match  string
	dryRun bool
}

func newCleanCmd(opts *globalOptions) *cobra.Command {
	var co cleanOptions
	cmd := &cobra.Command{
		Use:   "clean [roots...]",
		Short: "Remove the build artifacts of every matching project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, opts, args, co)
		},
	}
	cmd.Flags().StringVar(&co.match, "match", "", "only clean projects whose path or type fuzzy-matches")
	cmd.Flags().BoolVar(&co.dryRun, "dry-run", false, "report what would be removed without deleting anything")
	return cmd
}

func runClean(cmd *cobra.Command, opts *globalOptions, roots []string, co cleanOptions) error {
	cfg, err := loadConfig(opts, roots)
	if err != nil {
		return err
	}
	if co.dryRun {
		cfg.Clean.DryRun = true
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

	var targets []domain.Project
	for _, p := range service.MatchProjects(state.Known, co.match) {
		if p.HasArtifacts {
			targets = append(targets, p)
		}
	}

	out := cmd.OutOrStdout()
	if len(targets) == 0 {
		fmt.Fprintln(out, dimStyle.Render("nothing to clean"))
		return nil
	}

	results := a.projects.Clean(ctx, service.IdentitiesOf(targets))

	var freed uint64
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "%s %s: %v\n", errStyle.Render("✗"), r.Path, r.Err)
			continue
		}
		freed += r.Freed
		fmt.Fprintf(out, "%s %s (%s)\n", okStyle.Render("✓"), r.Path, humanize.Bytes(r.Freed))
	}

	verb := "freed"
	if cfg.Clean.DryRun {
		verb = "would free"
	}
	fmt.Fprintf(out, "\n%s %s across %d projects\n", verb, humanize.Bytes(freed), len(results)-failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d projects failed to clean", failed, len(results))
	}
	return nil
}
