package main

import (
	"encoding/json"
	"fmt"

	"github.com/mmcdole/kondo/internal/domain"
	"github.com/spf13/cobra"
)

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or write the stored preferences",
	}
	cmd.AddCommand(newConfigGetCmd(opts), newConfigSetCmd(opts))
	return cmd
}

func newConfigGetCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the stored preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPreferences(cmd, opts, func(a *app) error {
				cfg, err := a.prefs.Fetch(cmd.Context())
				if err != nil {
					return err
				}
				return printPreferences(cmd, cfg, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func newConfigSetCmd(opts *globalOptions) *cobra.Command {
	var enableGlass bool
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the stored preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPreferences(cmd, opts, func(a *app) error {
				cfg, err := a.prefs.Fetch(cmd.Context())
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("enable-glass") {
					cfg.EnableGlass = enableGlass
				}
				cfg, err = a.prefs.Commit(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				return printPreferences(cmd, cfg, false)
			})
		},
	}
	cmd.Flags().BoolVar(&enableGlass, "enable-glass", true, "render translucent frames in the TUI")
	return cmd
}

func withPreferences(cmd *cobra.Command, opts *globalOptions, fn func(*app) error) error {
	cfg, err := loadConfig(opts, nil)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd.Context())
	defer stop()
	cmd.SetContext(ctx)
	a.start(ctx)
	defer a.close()
	return fn(a)
}

func printPreferences(cmd *cobra.Command, cfg domain.Config, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}
	fmt.Fprintf(out, "enableGlass = %t\n", cfg.EnableGlass)
	return nil
}
