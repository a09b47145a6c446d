package repo

import (
	"context"
	"errors"

	"github.com/KaioHerculano/livesync/internal/domain"
)

var (
	// ErrDuplicateTarget means the (user, platform, channel) tuple is
	// already registered.
	ErrDuplicateTarget = errors.New("target already exists for this user, platform and channel")

	ErrNotFound = errors.New("target not found")
)

// Ports (interfaces) — swap in any DB adapter later.

type TargetStore interface {
	Add(ctx context.Context, t *domain.WatchTarget) error
	Get(ctx context.Context, id domain.TargetID) (*domain.WatchTarget, error)
	// List returns all targets, or only the active ones.
	List(ctx context.Context, activeOnly bool) ([]domain.WatchTarget, error)
	// UpdateStatus writes the last-known status field and nothing else.
	UpdateStatus(ctx context.Context, id domain.TargetID, status domain.Status) error
	// Delete removes a target and cascades its notification records.
	Delete(ctx context.Context, id domain.TargetID) error
}

type NotificationStore interface {
	Append(ctx context.Context, r *domain.NotificationRecord) error
	// ListByTarget returns records newest-first, at most limit of them.
	ListByTarget(ctx context.Context, id domain.TargetID, limit int) ([]domain.NotificationRecord, error)
}
