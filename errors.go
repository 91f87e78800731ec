package overrides

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyOptionID indicates an option id that is empty after trimming.
	ErrEmptyOptionID = errors.New("overrides: option id must not be empty")
	// ErrDuplicateOptionID indicates the same id was registered twice.
	ErrDuplicateOptionID = errors.New("overrides: option ids must be unique")
	// ErrUnknownOption indicates an id that is not currently registered.
	ErrUnknownOption = errors.New("overrides: option not registered")
)

// ValidationError rejects an option list passed to SetAvailableOptions.
type ValidationError struct {
	Domain   Kind
	Index    int
	OptionID string
	Err      error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("overrides: %s option[%d] id=%q: %v", e.Domain, e.Index, e.OptionID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
