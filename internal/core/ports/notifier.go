package ports

import "context"

// AlertNotifier delivers a formatted incident alert to an external channel.
// Delivery is best-effort; the notify stage falls back to the operational
// log when Send fails.
type AlertNotifier interface {
	Send(ctx context.Context, message string) error
}
