package session

import (
	"context"
	"fmt"
	"log/slog"
)

// runBackground runs best-effort work. Failures are logged and swallowed so
// the session stays usable.
func runBackground(ctx context.Context, logger *slog.Logger, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		logger.Error("background task failed", "task", name, "error", err)
	}
}

// runUserAction runs work the user asked for. Failures propagate to the caller.
func runUserAction(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
