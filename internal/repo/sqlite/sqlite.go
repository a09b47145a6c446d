package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/KaioHerculano/livesync/internal/domain"
	"github.com/KaioHerculano/livesync/internal/repo"
)

var (
	_ repo.TargetStore       = (*Store)(nil)
	_ repo.NotificationStore = (*Store)(nil)
)

type Store struct {
	db *sql.DB
}

// New opens (or creates) the database file and brings the schema up to date.
func New(ctx context.Context, dataSourceName string) (*Store, error) {
	// modernc.org/sqlite takes pragmas as _pragma=name(value) pairs;
	// foreign_keys must be set per connection or ON DELETE CASCADE is a no-op.
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS watch_targets (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	user_id      TEXT NOT NULL,
	platform     TEXT NOT NULL,
	channel_id   TEXT NOT NULL,
	webhook_url  TEXT NOT NULL,
	active       INTEGER NOT NULL DEFAULT 1,
	last_status  TEXT NOT NULL DEFAULT 'UNKNOWN',
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	UNIQUE (user_id, platform, channel_id)
);

CREATE TABLE IF NOT EXISTS notification_logs (
	id          TEXT PRIMARY KEY,
	target_id   TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	detail      TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	FOREIGN KEY(target_id) REFERENCES watch_targets(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_notification_logs_target_created
	ON notification_logs (target_id, created_at DESC);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// ---- TargetStore ----

func (s *Store) Add(ctx context.Context, t *domain.WatchTarget) error {
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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watch_targets
		   (id, name, user_id, platform, channel_id, webhook_url, active, last_status, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		string(t.ID), t.Name, t.UserID, string(t.Platform), t.ChannelID,
		t.WebhookURL, t.Active, string(t.LastStatus),
		t.CreatedAt.Format(time.RFC3339Nano), t.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return repo.ErrDuplicateTarget
		}
		return err
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id domain.TargetID) (*domain.WatchTarget, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, user_id, platform, channel_id, webhook_url, active, last_status, created_at, updated_at
		   FROM watch_targets WHERE id = ?`, string(id))
	t, err := scanTarget(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *Store) List(ctx context.Context, activeOnly bool) ([]domain.WatchTarget, error) {
	q := `SELECT id, name, user_id, platform, channel_id, webhook_url, active, last_status, created_at, updated_at
	        FROM watch_targets`
	if activeOnly {
		q += ` WHERE active = 1`
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WatchTarget
	for rows.Next() {
		t, err := scanTarget(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, id domain.TargetID, status domain.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE watch_targets SET last_status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339Nano), string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id domain.TargetID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watch_targets WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ---- NotificationStore ----

func (s *Store) Append(ctx context.Context, r *domain.NotificationRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_logs (id, target_id, outcome, detail, created_at)
		 VALUES (?,?,?,?,?)`,
		r.ID, string(r.TargetID), string(r.Outcome), r.Detail,
		r.CreatedAt.Format(time.RFC3339Nano))
	return err
}

func (s *Store) ListByTarget(ctx context.Context, id domain.TargetID, limit int) ([]domain.NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, target_id, outcome, detail, created_at
		   FROM notification_logs
		  WHERE target_id = ?
		  ORDER BY created_at DESC
		  LIMIT ?`, string(id), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.NotificationRecord
	for rows.Next() {
		var r domain.NotificationRecord
		var targetID, outcome, createdAt string
		if err := rows.Scan(&r.ID, &targetID, &outcome, &r.Detail, &createdAt); err != nil {
			return nil, err
		}
		r.TargetID = domain.TargetID(targetID)
		r.Outcome = domain.Outcome(outcome)
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanTarget(scan func(dest ...any) error) (*domain.WatchTarget, error) {
	var t domain.WatchTarget
	var id, platform, status, createdAt, updatedAt string
	if err := scan(&id, &t.Name, &t.UserID, &platform, &t.ChannelID,
		&t.WebhookURL, &t.Active, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	t.ID = domain.TargetID(id)
	t.Platform = domain.Platform(platform)
	t.LastStatus = domain.Status(status)
	var err error
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &t, nil
}
