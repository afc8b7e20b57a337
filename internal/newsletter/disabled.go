package newsletter

import (
	"context"
	"log/slog"
)

// Disabled stands in when the list credentials are missing.
type Disabled struct {
	log *slog.Logger
}

func NewDisabled(log *slog.Logger) *Disabled {
	if log == nil {
		log = slog.Default()
	}
	return &Disabled{log: log}
}

func (d *Disabled) Subscribe(ctx context.Context, email string) (Outcome, error) {
	d.log.DebugContext(ctx, "newsletter.skipped", "reason", "not_configured", "email", email)
	return Skipped, ErrNotConfigured
}
