package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/KaioHerculano/livesync/internal/domain"
	"github.com/KaioHerculano/livesync/internal/repo"
)

func target(user, channel string) *domain.WatchTarget {
	return &domain.WatchTarget{
		Name:       "alert for " + channel,
		UserID:     user,
		Platform:   domain.PlatformTikTok,
		ChannelID:  channel,
		WebhookURL: "https://discord.example/webhook",
		Active:     true,
	}
}

func TestAdd_SetsDefaultsAndRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	s := New()

	tg := target("u1", "creator")
	if err := s.Add(ctx, tg); err != nil {
		t.Fatalf("add: %v", err)
	}
	if tg.ID == "" || tg.LastStatus != domain.StatusUnknown || tg.CreatedAt.IsZero() {
		t.Fatalf("defaults not applied: %+v", tg)
	}

	err := s.Add(ctx, target("u1", "creator"))
	if !errors.Is(err, repo.ErrDuplicateTarget) {
		t.Fatalf("want ErrDuplicateTarget, got %v", err)
	}

	// same channel for another user is fine
	if err := s.Add(ctx, target("u2", "creator")); err != nil {
		t.Fatalf("other user should not collide: %v", err)
	}
}

func TestList_ActiveOnly(t *testing.T) {
	ctx := context.Background()
	s := New()

	active := target("u1", "a")
	inactive := target("u1", "b")
	inactive.Active = false
	_ = s.Add(ctx, active)
	_ = s.Add(ctx, inactive)

	all, _ := s.List(ctx, false)
	if len(all) != 2 {
		t.Fatalf("want 2, got %d", len(all))
	}
	act, _ := s.List(ctx, true)
	if len(act) != 1 || act[0].ChannelID != "a" {
		t.Fatalf("want only the active target, got %+v", act)
	}
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	s := New()
	tg := target("u1", "a")
	_ = s.Add(ctx, tg)

	if err := s.UpdateStatus(ctx, tg.ID, domain.StatusOnline); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.Get(ctx, tg.ID)
	if got.LastStatus != domain.StatusOnline {
		t.Fatalf("status not persisted: %+v", got)
	}

	if err := s.UpdateStatus(ctx, "nope", domain.StatusOnline); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDelete_CascadesRecords(t *testing.T) {
	ctx := context.Background()
	s := New()
	tg := target("u1", "a")
	_ = s.Add(ctx, tg)
	_ = s.Append(ctx, &domain.NotificationRecord{TargetID: tg.ID, Outcome: domain.OutcomeSuccess, Detail: "sent"})

	if err := s.Delete(ctx, tg.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, tg.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("target should be gone, got %v", err)
	}
	recs, _ := s.ListByTarget(ctx, tg.ID, 0)
	if len(recs) != 0 {
		t.Fatalf("records should cascade, got %d", len(recs))
	}
}

func TestListByTarget_NewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := New()
	tg := target("u1", "a")
	_ = s.Add(ctx, tg)

	for _, detail := range []string{"first", "second", "third"} {
		_ = s.Append(ctx, &domain.NotificationRecord{TargetID: tg.ID, Outcome: domain.OutcomeSuccess, Detail: detail})
	}

	recs, _ := s.ListByTarget(ctx, tg.ID, 2)
	if len(recs) != 2 {
		t.Fatalf("want 2, got %d", len(recs))
	}
	if recs[0].Detail != "third" || recs[1].Detail != "second" {
		t.Fatalf("want newest first, got %+v", recs)
	}
}
