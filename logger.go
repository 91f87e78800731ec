package overrides

import "github.com/goliatone/go-overrides/pkg/logging"

// Logger is the structured logger used by domains and gates. *slog.Logger
// satisfies it.
type Logger = logging.Logger
