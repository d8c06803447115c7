package main

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/mmcdole/kondo/internal/store"
	"github.com/spf13/cobra"
)

// historyReport is the --json output of history.
type historyReport struct {
	Records    []store.CleanRecord `json:"records"`
	TotalFreed uint64              `json:"totalFreed"`
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past cleans and the space they freed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, nil)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			records, err := st.History()
			if err != nil {
				return fmt.Errorf("reading history: %w", err)
			}
			total, err := st.TotalFreed()
			if err != nil {
				return fmt.Errorf("reading history: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if records == nil {
					records = []store.CleanRecord{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(historyReport{Records: records, TotalFreed: total})
			}
			if len(records) == 0 {
				fmt.Fprintln(out, dimStyle.Render("no cleans recorded"))
				return nil
			}

			t := table.New().
				Border(lipgloss.HiddenBorder()).
				Headers("CLEANED", "TYPE", "FREED", "PATH").
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle.PaddingRight(2)
					}
					return lipgloss.NewStyle().PaddingRight(2)
				})
			for _, r := range records {
				t.Row(humanize.Time(r.CleanedAt), string(r.ProjectType), humanize.Bytes(r.Freed), r.Path)
			}
			fmt.Fprintln(out, t.Render())
			fmt.Fprintf(out, "\n%s freed across %d cleans\n", humanize.Bytes(total), len(records))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}
