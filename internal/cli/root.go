// Package cli implements the overridectl commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// RootOptions holds global flags shared by every command.
type RootOptions struct {
	ConfigPath string
	Format     string
	Verbose    bool

	// Out and Err default to the process streams.
	Out io.Writer
	Err io.Writer

	// Open builds the application; tests replace it to share one in-memory
	// toolbar across commands.
	Open func(*RootOptions) (*App, error)
}

func (o *RootOptions) printer() printer {
	return printer{format: o.Format, out: o.Out}
}

func (o *RootOptions) open() (*App, error) {
	if o.Open != nil {
		return o.Open(o)
	}
	app, err := OpenApp(o.ConfigPath, o.Verbose, o.Err)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to start", err)
	}
	return app, nil
}

// NewRootCommand builds the overridectl command tree.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(&RootOptions{})
}

// NewRootCommandWith builds the command tree around opts.
func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}

	cmd := &cobra.Command{
		Use:           "overridectl",
		Short:         "Inspect and force dev toolbar overrides",
		Long:          "overridectl forces feature flags, permissions, app features and language\nfor a development build, and saves the result as reusable presets.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != formatText && opts.Format != formatJSON {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid format %q", opts.Format), nil)
			}
			return nil
		},
	}
	cmd.SetOut(opts.Out)
	cmd.SetErr(opts.Err)

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", os.Getenv("OVERRIDES_CONFIG"), "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", formatText, "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newStateCommand(opts),
		newValuesCommand(opts),
		newForceCommand(opts),
		newClearCommand(opts),
		newResetCommand(opts),
		newGateCommand(opts),
		newPresetsCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

// withApp opens the application, runs fn and closes it.
func withApp(opts *RootOptions, fn func(*App) error) error {
	app, err := opts.open()
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
