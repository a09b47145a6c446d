package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KaioHerculano/livesync/internal/domain"
	"github.com/KaioHerculano/livesync/internal/repo"
)

var (
	_ repo.TargetStore       = (*Store)(nil)
	_ repo.NotificationStore = (*Store)(nil)
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	s := &Store{pool: p}
	if err := s.migrate(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS watch_targets (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	user_id      TEXT NOT NULL,
	platform     TEXT NOT NULL,
	channel_id   TEXT NOT NULL,
	webhook_url  TEXT NOT NULL,
	active       BOOLEAN NOT NULL DEFAULT TRUE,
	last_status  TEXT NOT NULL DEFAULT 'UNKNOWN',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	UNIQUE (user_id, platform, channel_id)
);

CREATE TABLE IF NOT EXISTS notification_logs (
	id          TEXT PRIMARY KEY,
	target_id   TEXT NOT NULL REFERENCES watch_targets(id) ON DELETE CASCADE,
	outcome     TEXT NOT NULL,
	detail      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notification_logs_target_created
	ON notification_logs (target_id, created_at DESC);
`)
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
	_, err := s.pool.Exec(ctx,
		`INSERT INTO watch_targets
		   (id, name, user_id, platform, channel_id, webhook_url, active, last_status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		string(t.ID), t.Name, t.UserID, string(t.Platform), t.ChannelID,
		t.WebhookURL, t.Active, string(t.LastStatus), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repo.ErrDuplicateTarget
		}
		return err
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id domain.TargetID) (*domain.WatchTarget, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, user_id, platform, channel_id, webhook_url, active, last_status, created_at, updated_at
		   FROM watch_targets WHERE id = $1`, string(id))
	t, err := scanTarget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *Store) List(ctx context.Context, activeOnly bool) ([]domain.WatchTarget, error) {
	q := `SELECT id, name, user_id, platform, channel_id, webhook_url, active, last_status, created_at, updated_at
	        FROM watch_targets ORDER BY created_at DESC`
	if activeOnly {
		q = `SELECT id, name, user_id, platform, channel_id, webhook_url, active, last_status, created_at, updated_at
		       FROM watch_targets WHERE active ORDER BY created_at DESC`
	}
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WatchTarget
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, id domain.TargetID, status domain.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE watch_targets SET last_status = $2, updated_at = $3 WHERE id = $1`,
		string(id), string(status), time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id domain.TargetID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM watch_targets WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
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
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notification_logs (id, target_id, outcome, detail, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.ID, string(r.TargetID), string(r.Outcome), r.Detail, r.CreatedAt)
	return err
}

func (s *Store) ListByTarget(ctx context.Context, id domain.TargetID, limit int) ([]domain.NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, target_id, outcome, detail, created_at
		   FROM notification_logs
		  WHERE target_id = $1
		  ORDER BY created_at DESC
		  LIMIT $2`, string(id), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.NotificationRecord
	for rows.Next() {
		var r domain.NotificationRecord
		var targetID, outcome string
		if err := rows.Scan(&r.ID, &targetID, &outcome, &r.Detail, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.TargetID = domain.TargetID(targetID)
		r.Outcome = domain.Outcome(outcome)
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanTarget(row pgx.Row) (*domain.WatchTarget, error) {
	var t domain.WatchTarget
	var id, platform, status string
	if err := row.Scan(&id, &t.Name, &t.UserID, &platform, &t.ChannelID,
		&t.WebhookURL, &t.Active, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.ID = domain.TargetID(id)
	t.Platform = domain.Platform(platform)
	t.LastStatus = domain.Status(status)
	return &t, nil
}
