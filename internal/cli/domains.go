package cli

import (
	"fmt"
	"strconv"

	overrides "github.com/goliatone/go-overrides"
	"github.com/spf13/cobra"
)

func parseKind(raw string) (overrides.Kind, error) {
	kind, ok := overrides.ParseKind(raw)
	if !ok {
		return "", WrapExitError(ExitCommandError, fmt.Sprintf("unknown domain %q", raw), nil)
	}
	return kind, nil
}

func stateRows(app *App, kinds []overrides.Kind) []stateRow {
	rows := make([]stateRow, 0, len(kinds))
	for _, kind := range kinds {
		row := stateRow{Domain: string(kind), Enabled: []string{}, Disabled: []string{}}
		if domain, ok := app.Toolbar.Domain(kind); ok {
			state := domain.CurrentState()
			row.Enabled, row.Disabled = state.Enabled, state.Disabled
		} else if id, forced := app.Toolbar.Language().ForcedLanguage(); forced {
			row.Enabled = []string{id}
		}
		rows = append(rows, row)
	}
	return rows
}

func newStateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state [domain]",
		Short: "Show forced ids per domain",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := overrides.Kinds()
			if len(args) == 1 {
				kind, err := parseKind(args[0])
				if err != nil {
					return err
				}
				kinds = []overrides.Kind{kind}
			}
			return withApp(opts, func(app *App) error {
				return opts.printer().state(stateRows(app, kinds))
			})
		},
	}
}

func newValuesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "values <domain>",
		Short: "Show effective values for a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return withApp(opts, func(app *App) error {
				var values []overrides.EffectiveOption
				if domain, ok := app.Toolbar.Domain(kind); ok {
					values = domain.AllValues().Value()
				} else {
					values = app.Toolbar.Language().AllValues().Value()
				}
				return opts.printer().values(kind, values)
			})
		},
	}
}

func newForceCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "force <domain> <id> [true|false]",
		Short: "Force an option on or off",
		Long:  "Force an option on or off. The value defaults to true. The language\ndomain takes only an id.",
		Example: `  overridectl force flags dark-mode
  overridectl force permissions admin false
  overridectl force language fr`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			value := true
			if len(args) == 3 {
				value, err = strconv.ParseBool(args[2])
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid value", err)
				}
			}
			return withApp(opts, func(app *App) error {
				if domain, ok := app.Toolbar.Domain(kind); ok {
					domain.SetOverride(args[1], value)
					return opts.printer().message("%s %s forced %t", kind, args[1], value)
				}
				if err := app.Toolbar.Language().SetLanguage(args[1]); err != nil {
					return WrapExitError(ExitFailure, "force language", err)
				}
				return opts.printer().message("language forced to %s", args[1])
			})
		},
	}
}

func newClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <domain> [id]",
		Short: "Clear one override or every override in a domain",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return withApp(opts, func(app *App) error {
				domain, multi := app.Toolbar.Domain(kind)
				switch {
				case !multi:
					app.Toolbar.Language().ClearLanguage()
				case len(args) == 2:
					domain.ClearOverride(args[1])
				default:
					domain.ClearAll()
				}
				return opts.printer().message("%s cleared", kind)
			})
		},
	}
}

func newResetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear every override in every domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *App) error {
				app.Toolbar.Reset()
				return opts.printer().message("all overrides cleared")
			})
		},
	}
}

func newGateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "gate",
		Short: "Report whether overrides are currently applied",
		Long:  "Report whether overrides are currently applied. With gate.expression set\nthe expression is evaluated; otherwise the manual switch is on.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *App) error {
				enabled := app.Toolbar.Enabled()
				if opts.Format == formatJSON {
					return opts.printer().json(map[string]bool{"enabled": enabled})
				}
				_, err := fmt.Fprintf(opts.Out, "overrides enabled: %t\n", enabled)
				return err
			})
		},
	}
}
