package ports

import (
	"context"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
)

// AlertNotifier delivers alert notifications out of band (email today).
type AlertNotifier interface {
	// Configured reports whether delivery credentials are present. The
	// pipeline skips notification entirely when false.
	Configured() bool

	// Notify sends one alert. Failures are logged by the caller and never
	// block persistence or throttling.
	Notify(ctx context.Context, alert domain.AlertRecord) error
}
