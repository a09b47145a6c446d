package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaioHerculano/livesync/internal/domain"
	"github.com/KaioHerculano/livesync/internal/repo"
)

var (
	_ repo.TargetStore       = (*Store)(nil)
	_ repo.NotificationStore = (*Store)(nil)
)

// Store keeps everything in process memory. Used in tests and when no
// DATABASE_URL is configured.
type Store struct {
	mu      sync.RWMutex
	targets map[domain.TargetID]*domain.WatchTarget
	records map[domain.TargetID][]domain.NotificationRecord
}

func New() *Store {
	return &Store{
		targets: make(map[domain.TargetID]*domain.WatchTarget),
		records: make(map[domain.TargetID][]domain.NotificationRecord),
	}
}

func (m *Store) Add(ctx context.Context, t *domain.WatchTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.targets {
		if existing.UserID == t.UserID && existing.Platform == t.Platform && existing.ChannelID == t.ChannelID {
			return repo.ErrDuplicateTarget
		}
	}
	if t.ID == "" {
		t.ID = domain.TargetID(uuid.NewString())
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.LastStatus == "" {
		t.LastStatus = domain.StatusUnknown
	}
	cp := *t
	m.targets[t.ID] = &cp
	return nil
}

func (m *Store) Get(ctx context.Context, id domain.TargetID) (*domain.WatchTarget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.targets[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *Store) List(ctx context.Context, activeOnly bool) ([]domain.WatchTarget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.WatchTarget, 0, len(m.targets))
	for _, t := range m.targets {
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (m *Store) UpdateStatus(ctx context.Context, id domain.TargetID, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.targets[id]
	if !ok {
		return repo.ErrNotFound
	}
	t.LastStatus = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Store) Delete(ctx context.Context, id domain.TargetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.targets[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.targets, id)
	delete(m.records, id)
	return nil
}

func (m *Store) Append(ctx context.Context, r *domain.NotificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	m.records[r.TargetID] = append(m.records[r.TargetID], *r)
	return nil
}

func (m *Store) ListByTarget(ctx context.Context, id domain.TargetID, limit int) ([]domain.NotificationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.records[id]
	out := make([]domain.NotificationRecord, 0, len(recs))
	// appended chronologically; reverse for newest-first
	for i := len(recs) - 1; i >= 0; i-- {
		out = append(out, recs[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
