package notify

import (
	"context"

	"github.com/KaioHerculano/livesync/internal/domain"
)

// Notifier delivers one transition event to a target's webhook endpoint.
//
// Send never returns an error: delivery problems come back as ok=false with
// a human-readable detail, and the detail string goes into the delivery log
// either way.
type Notifier interface {
	Send(ctx context.Context, target *domain.WatchTarget, kind domain.EventKind, title, thumbnail string) (ok bool, detail string)
}
