package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/KaioHerculano/livesync/internal/domain"
	"github.com/KaioHerculano/livesync/internal/probe"
	"github.com/KaioHerculano/livesync/internal/repo"
)

// --- fakes ---

type fakeTargets struct {
	mu          sync.Mutex
	targets     []domain.WatchTarget
	updateCalls int
	failUpdate  map[domain.TargetID]bool
}

func (f *fakeTargets) Add(ctx context.Context, t *domain.WatchTarget) error { return nil }
func (f *fakeTargets) Get(ctx context.Context, id domain.TargetID) (*domain.WatchTarget, error) {
	return nil, repo.ErrNotFound
}
func (f *fakeTargets) Delete(ctx context.Context, id domain.TargetID) error { return nil }

func (f *fakeTargets) List(ctx context.Context, activeOnly bool) ([]domain.WatchTarget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.WatchTarget, 0, len(f.targets))
	for _, t := range f.targets {
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTargets) UpdateStatus(ctx context.Context, id domain.TargetID, status domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failUpdate[id] {
		return errors.New("db write refused")
	}
	for i := range f.targets {
		if f.targets[i].ID == id {
			f.targets[i].LastStatus = status
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakeTargets) status(id domain.TargetID) domain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.targets {
		if t.ID == id {
			return t.LastStatus
		}
	}
	return ""
}

type fakeRecords struct {
	mu   sync.Mutex
	recs []domain.NotificationRecord
}

func (f *fakeRecords) Append(ctx context.Context, r *domain.NotificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, *r)
	return nil
}

func (f *fakeRecords) ListByTarget(ctx context.Context, id domain.TargetID, limit int) ([]domain.NotificationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.NotificationRecord(nil), f.recs...), nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	ok     bool
	detail string
	calls  int
}

func (f *fakeNotifier) Send(ctx context.Context, target *domain.WatchTarget, kind domain.EventKind, title, thumbnail string) (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.ok, f.detail
}

func (f *fakeNotifier) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeProber struct {
	mu      sync.Mutex
	live    bool
	delay   time.Duration
	started chan struct{} // closed-ish signal: one send per probe
	block   chan struct{} // probe waits here when set
	calls   int
}

func (f *fakeProber) Probe(ctx context.Context, channelID string) domain.ProbeResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return domain.ProbeResult{Live: f.live, Title: "stream"}
}

func (f *fakeProber) probes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func tiktokTarget(id string, status domain.Status) domain.WatchTarget {
	return domain.WatchTarget{
		ID:         domain.TargetID(id),
		Name:       "t-" + id,
		UserID:     "u1",
		Platform:   domain.PlatformTikTok,
		ChannelID:  "creator-" + id,
		WebhookURL: "https://discord.example/webhook",
		Active:     true,
		LastStatus: status,
	}
}

func newTestPoller(ts *fakeTargets, rs *fakeRecords, pr probe.Prober, nt *fakeNotifier, concurrency int) *Poller {
	return New(zap.NewNop(), ts, rs,
		probe.Registry{domain.PlatformTikTok: pr},
		nt,
		Config{Interval: time.Minute, ProbeTimeout: time.Second, Concurrency: concurrency},
	)
}

// --- tests ---

func TestPoller_StartedEdgeNotifiesOnce(t *testing.T) {
	ts := &fakeTargets{targets: []domain.WatchTarget{tiktokTarget("A", domain.StatusOffline)}}
	rs := &fakeRecords{}
	nt := &fakeNotifier{ok: true, detail: "sent successfully"}
	pl := newTestPoller(ts, rs, &fakeProber{live: true}, nt, 2)

	if err := pl.RunOnce(context.Background()); err != nil {
		t.Fatalf("pass 1: %v", err)
	}
	if nt.sent() != 1 {
		t.Fatalf("want 1 notification, got %d", nt.sent())
	}
	if got := ts.status("A"); got != domain.StatusOnline {
		t.Fatalf("status = %s, want ONLINE", got)
	}
	if len(rs.recs) != 1 || rs.recs[0].Outcome != domain.OutcomeSuccess {
		t.Fatalf("want one SUCCESS record, got %+v", rs.recs)
	}

	// stream stays live: no second notification, no further writes
	updatesBefore := ts.updateCalls
	if err := pl.RunOnce(context.Background()); err != nil {
		t.Fatalf("pass 2: %v", err)
	}
	if nt.sent() != 1 {
		t.Fatalf("steady state must not notify, got %d", nt.sent())
	}
	if ts.updateCalls != updatesBefore {
		t.Fatalf("unchanged status must skip the write")
	}
}

func TestPoller_EndedEdge(t *testing.T) {
	ts := &fakeTargets{targets: []domain.WatchTarget{tiktokTarget("A", domain.StatusOnline)}}
	rs := &fakeRecords{}
	nt := &fakeNotifier{ok: true, detail: "sent successfully"}
	pl := newTestPoller(ts, rs, &fakeProber{live: false}, nt, 1)

	if err := pl.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if nt.sent() != 1 {
		t.Fatalf("want ended notification, got %d", nt.sent())
	}
	if got := ts.status("A"); got != domain.StatusOffline {
		t.Fatalf("status = %s, want OFFLINE", got)
	}
}

func TestPoller_UnknownOfflineIsSilent(t *testing.T) {
	ts := &fakeTargets{targets: []domain.WatchTarget{tiktokTarget("A", domain.StatusUnknown)}}
	rs := &fakeRecords{}
	nt := &fakeNotifier{ok: true}
	pl := newTestPoller(ts, rs, &fakeProber{live: false}, nt, 1)

	if err := pl.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if nt.sent() != 0 || len(rs.recs) != 0 {
		t.Fatalf("first offline sighting must be silent, sent=%d recs=%d", nt.sent(), len(rs.recs))
	}
	if got := ts.status("A"); got != domain.StatusOffline {
		t.Fatalf("status = %s, want OFFLINE", got)
	}
}

func TestPoller_FailedDeliveryStillRecordsAndPersists(t *testing.T) {
	ts := &fakeTargets{targets: []domain.WatchTarget{tiktokTarget("A", domain.StatusOffline)}}
	rs := &fakeRecords{}
	nt := &fakeNotifier{ok: false, detail: "discord returned status 429"}
	pl := newTestPoller(ts, rs, &fakeProber{live: true}, nt, 1)

	if err := pl.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(rs.recs) != 1 || rs.recs[0].Outcome != domain.OutcomeFailure {
		t.Fatalf("want one FAILURE record, got %+v", rs.recs)
	}
	if !strings.Contains(rs.recs[0].Detail, "429") {
		t.Fatalf("detail should carry the cause: %q", rs.recs[0].Detail)
	}
	// status persistence is independent of delivery success
	if got := ts.status("A"); got != domain.StatusOnline {
		t.Fatalf("status = %s, want ONLINE", got)
	}
}

func TestPoller_PersistenceErrorIsSurfacedAndIsolated(t *testing.T) {
	ts := &fakeTargets{
		targets: []domain.WatchTarget{
			tiktokTarget("A", domain.StatusOffline),
			tiktokTarget("B", domain.StatusOffline),
		},
		failUpdate: map[domain.TargetID]bool{"A": true},
	}
	rs := &fakeRecords{}
	nt := &fakeNotifier{ok: true}
	pl := newTestPoller(ts, rs, &fakeProber{live: true}, nt, 2)

	err := pl.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "target A") {
		t.Fatalf("want surfaced write error for A, got %v", err)
	}
	// B's unit of work must be unaffected
	if got := ts.status("B"); got != domain.StatusOnline {
		t.Fatalf("B status = %s, want ONLINE", got)
	}
}

func TestPoller_ConcurrentTargetsDoNotBlockEachOther(t *testing.T) {
	slow := tiktokTarget("SLOW", domain.StatusOffline)
	fast := tiktokTarget("FAST", domain.StatusOffline)
	ts := &fakeTargets{targets: []domain.WatchTarget{slow, fast}}
	rs := &fakeRecords{}
	nt := &fakeNotifier{ok: true}
	pl := newTestPoller(ts, rs, &fakeProber{live: true, delay: 50 * time.Millisecond}, nt, 2)

	start := time.Now()
	if err := pl.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 90*time.Millisecond {
		t.Fatalf("units should run in parallel, pass took %s", elapsed)
	}
	if ts.status("SLOW") != domain.StatusOnline || ts.status("FAST") != domain.StatusOnline {
		t.Fatalf("both targets should be updated: SLOW=%s FAST=%s", ts.status("SLOW"), ts.status("FAST"))
	}
}

func TestPoller_InFlightGuardSkipsOverlappingPass(t *testing.T) {
	ts := &fakeTargets{targets: []domain.WatchTarget{tiktokTarget("A", domain.StatusOffline)}}
	rs := &fakeRecords{}
	nt := &fakeNotifier{ok: true}
	pr := &fakeProber{live: true, started: make(chan struct{}, 1), block: make(chan struct{})}
	pl := newTestPoller(ts, rs, pr, nt, 1)

	done := make(chan struct{})
	go func() {
		_ = pl.RunOnce(context.Background())
		close(done)
	}()

	<-pr.started // first pass is now inside the probe

	// an overlapping pass must skip the busy target, not queue behind it
	if err := pl.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if pr.probes() != 1 {
		t.Fatalf("overlapping pass re-probed a busy target: %d probes", pr.probes())
	}

	close(pr.block)
	<-done

	if nt.sent() != 1 {
		t.Fatalf("want exactly one notification, got %d", nt.sent())
	}
}

func TestPoller_RunLoopDoesImmediatePass(t *testing.T) {
	ts := &fakeTargets{targets: []domain.WatchTarget{tiktokTarget("A", domain.StatusOffline)}}
	rs := &fakeRecords{}
	nt := &fakeNotifier{ok: true}
	pr := &fakeProber{live: true}
	pl := New(zap.NewNop(), ts, rs,
		probe.Registry{domain.PlatformTikTok: pr},
		nt,
		Config{Interval: 2 * time.Millisecond, ProbeTimeout: time.Second, Concurrency: 1},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pl.Run(ctx)

	deadline := time.After(500 * time.Millisecond)
	for pr.probes() == 0 {
		select {
		case <-deadline:
			t.Fatal("no pass ran")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	cancel()
}
