package notifier

import (
	"context"

	"lookout/pkg/models"
)

// Notifier delivers an alert to the recipient channel. A delivery failure is
// terminal for the event: its ledger record already exists and the pipeline
// never retries the alert.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}
