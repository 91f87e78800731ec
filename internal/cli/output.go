package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	overrides "github.com/goliatone/go-overrides"
	"github.com/goliatone/go-overrides/pkg/presets"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitCommandError = 2
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// WrapExitError wraps err with code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err. Plain errors map to
// ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// printer renders command results as text tables or JSON.
type printer struct {
	format string
	out    io.Writer
}

func (p printer) json(value any) error {
	encoder := json.NewEncoder(p.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func (p printer) values(kind overrides.Kind, values []overrides.EffectiveOption) error {
	if p.format == formatJSON {
		return p.json(values)
	}
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", kind)
	fmt.Fprintln(tw, "ID\tNAME\tENABLED\tFORCED")
	for _, value := range values {
		forced := "-"
		if value.IsForced {
			forced = fmt.Sprintf("yes (was %t)", value.OriginalValue != nil && *value.OriginalValue)
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", value.ID, value.Name, value.IsEnabled, forced)
	}
	return tw.Flush()
}

type stateRow struct {
	Domain   string   `json:"domain"`
	Enabled  []string `json:"enabled"`
	Disabled []string `json:"disabled"`
}

func (p printer) state(rows []stateRow) error {
	if p.format == formatJSON {
		return p.json(rows)
	}
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOMAIN\tON\tOFF")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Domain, joinOrDash(row.Enabled), joinOrDash(row.Disabled))
	}
	return tw.Flush()
}

func (p printer) presets(list []presets.Preset) error {
	if p.format == formatJSON {
		return p.json(list)
	}
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUPDATED\tDESCRIPTION")
	for _, preset := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", preset.ID, preset.Name, preset.UpdatedAt.Format("2006-01-02 15:04"), preset.Description)
	}
	return tw.Flush()
}

func (p printer) preset(preset presets.Preset) error {
	if p.format == formatJSON {
		return p.json(preset)
	}
	_, err := fmt.Fprintf(p.out, "%s\t%s\n", preset.ID, preset.Name)
	return err
}

func (p printer) message(format string, args ...any) error {
	if p.format == formatJSON {
		return p.json(map[string]string{"status": "ok", "message": fmt.Sprintf(format, args...)})
	}
	_, err := fmt.Fprintf(p.out, format+"\n", args...)
	return err
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ",")
}
