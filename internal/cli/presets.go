package cli

import (
	"fmt"
	"os"

	"github.com/goliatone/go-overrides/pkg/presets"
	"github.com/spf13/cobra"
)

func newPresetsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "presets",
		Aliases: []string{"preset"},
		Short:   "Save, apply and share override presets",
	}
	cmd.AddCommand(
		newPresetsListCommand(opts),
		newPresetsSaveCommand(opts),
		newPresetsApplyCommand(opts),
		newPresetsUpdateCommand(opts),
		newPresetsRenameCommand(opts),
		newPresetsDeleteCommand(opts),
		newPresetsExportCommand(opts),
		newPresetsImportCommand(opts),
		newPresetsPushCommand(opts),
		newPresetsPullCommand(opts),
	)
	return cmd
}

// resolvePreset accepts an id or a case-insensitive name.
func resolvePreset(app *App, ref string) (presets.Preset, error) {
	if preset, ok := app.Presets.Get(ref); ok {
		return preset, nil
	}
	if preset, ok := app.Presets.FindByName(ref); ok {
		return preset, nil
	}
	return presets.Preset{}, WrapExitError(ExitFailure, "resolve preset", fmt.Errorf("%w: %s", presets.ErrPresetNotFound, ref))
}

func newPresetsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *App) error {
				return opts.printer().presets(app.Presets.List())
			})
		},
	}
}

func newPresetsSaveCommand(opts *RootOptions) *cobra.Command {
	var (
		description string
		flags       []string
		permissions []string
		features    []string
		noLanguage  bool
	)
	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Capture the current overrides as a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selection := presets.Selection{ExcludeLanguage: noLanguage}
			if cmd.Flags().Changed("flags") {
				selection.FeatureFlags = append([]string{}, flags...)
			}
			if cmd.Flags().Changed("permissions") {
				selection.Permissions = append([]string{}, permissions...)
			}
			if cmd.Flags().Changed("features") {
				selection.AppFeatures = append([]string{}, features...)
			}
			return withApp(opts, func(app *App) error {
				preset, err := app.Presets.Save(args[0], description, selection)
				if err != nil {
					return WrapExitError(ExitCommandError, "save preset", err)
				}
				return opts.printer().preset(preset)
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "preset description")
	cmd.Flags().StringSliceVar(&flags, "flags", nil, "only capture these feature flag ids")
	cmd.Flags().StringSliceVar(&permissions, "permissions", nil, "only capture these permission ids")
	cmd.Flags().StringSliceVar(&features, "features", nil, "only capture these app feature ids")
	cmd.Flags().BoolVar(&noLanguage, "no-language", false, "do not capture the forced language")
	return cmd
}

func newPresetsApplyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <id|name>",
		Short: "Replace current overrides with a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *App) error {
				preset, err := resolvePreset(app, args[0])
				if err != nil {
					return err
				}
				if err := app.Presets.Apply(cmd.Context(), preset.ID); err != nil {
					return WrapExitError(ExitFailure, "apply preset", err)
				}
				return opts.printer().message("applied %s", preset.Name)
			})
		},
	}
}

func newPresetsUpdateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id|name>",
		Short: "Re-capture the current overrides into an existing preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *App) error {
				preset, err := resolvePreset(app, args[0])
				if err != nil {
					return err
				}
				updated, _ := app.Presets.Update(preset.ID)
				return opts.printer().preset(updated)
			})
		},
	}
}

func newPresetsRenameCommand(opts *RootOptions) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "rename <id|name> <new-name>",
		Short: "Change a preset's name and description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *App) error {
				preset, err := resolvePreset(app, args[0])
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("description") {
					description = preset.Description
				}
				renamed, _ := app.Presets.UpdateMetadata(preset.ID, args[1], description)
				return opts.printer().preset(renamed)
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	return cmd
}

func newPresetsDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *App) error {
				preset, err := resolvePreset(app, args[0])
				if err != nil {
					return err
				}
				app.Presets.Delete(preset.ID)
				return opts.printer().message("deleted %s", preset.Name)
			})
		},
	}
}

func newPresetsExportCommand(opts *RootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <id|name>",
		Short: "Write a preset as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *App) error {
				preset, err := resolvePreset(app, args[0])
				if err != nil {
					return err
				}
				payload, _ := app.Presets.Export(preset.ID)
				if output == "" || output == "-" {
					_, err := fmt.Fprintln(opts.Out, payload)
					return err
				}
				if err := os.WriteFile(output, []byte(payload+"\n"), 0o644); err != nil {
					return WrapExitError(ExitCommandError, "write export", err)
				}
				return opts.printer().message("exported %s to %s", preset.Name, output)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}

func newPresetsImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add a preset from an exported JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "read import", err)
			}
			return withApp(opts, func(app *App) error {
				preset, err := app.Presets.Import(data)
				if err != nil {
					return WrapExitError(ExitFailure, "import preset", err)
				}
				return opts.printer().preset(preset)
			})
		},
	}
}

func newPresetsPushCommand(opts *RootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "push [id|name]",
		Short: "Publish presets to the configured blob sink",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return WrapExitError(ExitCommandError, "push needs a preset or --all", nil)
			}
			return withApp(opts, func(app *App) error {
				publisher, err := app.OpenPublisher(cmd.Context())
				if err != nil {
					return WrapExitError(ExitCommandError, "open sink", err)
				}
				if all {
					keys, err := publisher.PushAll(cmd.Context())
					for _, key := range keys {
						_ = opts.printer().message("pushed %s", key)
					}
					if err != nil {
						return WrapExitError(ExitFailure, "push presets", err)
					}
					return nil
				}
				preset, err := resolvePreset(app, args[0])
				if err != nil {
					return err
				}
				key, err := publisher.Push(cmd.Context(), preset.ID)
				if err != nil {
					return WrapExitError(ExitFailure, "push preset", err)
				}
				return opts.printer().message("pushed %s", key)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "publish every preset")
	return cmd
}

func newPresetsPullCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pull [key]",
		Short: "Import presets from the configured blob sink",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *App) error {
				publisher, err := app.OpenPublisher(cmd.Context())
				if err != nil {
					return WrapExitError(ExitCommandError, "open sink", err)
				}
				var imported []presets.Preset
				if len(args) == 1 {
					preset, err := publisher.Pull(cmd.Context(), args[0])
					if err != nil {
						return WrapExitError(ExitFailure, "pull preset", err)
					}
					imported = []presets.Preset{preset}
				} else if imported, err = publisher.PullAll(cmd.Context()); err != nil {
					return WrapExitError(ExitFailure, "pull presets", err)
				}
				return opts.printer().presets(imported)
			})
		},
	}
}
