package source

import (
	"context"

	"lookout/pkg/models"
)

// Source produces the batch of notification events for one pipeline pass.
// Fetch returns the current snapshot; it never blocks waiting for new events
// beyond the transport round trip.
type Source interface {
	Fetch(ctx context.Context) ([]models.Event, error)
	Name() string
}

// Checkpointer is implemented by sources that track an upstream position or
// cache validator. The checkpoint must only advance once the fetched batch
// has been fully processed; an uncommitted checkpoint means the same events
// are served again on the next pass.
type Checkpointer interface {
	CommitCheckpoint()
}
