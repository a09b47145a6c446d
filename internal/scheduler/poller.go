package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/KaioHerculano/livesync/internal/detect"
	"github.com/KaioHerculano/livesync/internal/domain"
	"github.com/KaioHerculano/livesync/internal/notify"
	"github.com/KaioHerculano/livesync/internal/probe"
	"github.com/KaioHerculano/livesync/internal/repo"
)

type Config struct {
	Interval     time.Duration
	ProbeTimeout time.Duration
	Concurrency  int
}

// Poller drives recurring evaluation passes over all active watch targets.
// Each pass fans one unit of work per target through a bounded worker set;
// within a target the chain probe -> evaluate -> notify -> record -> persist
// runs strictly in order.
type Poller struct {
	logger   *zap.Logger
	targets  repo.TargetStore
	records  repo.NotificationStore
	probers  probe.Registry
	notifier notify.Notifier
	cfg      Config

	mu       sync.Mutex
	inFlight map[domain.TargetID]struct{}
}

func New(
	logger *zap.Logger,
	targets repo.TargetStore,
	records repo.NotificationStore,
	probers probe.Registry,
	notifier notify.Notifier,
	cfg Config,
) *Poller {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	return &Poller{
		logger:   logger,
		targets:  targets,
		records:  records,
		probers:  probers,
		notifier: notifier,
		cfg:      cfg,
		inFlight: make(map[domain.TargetID]struct{}),
	}
}

// Run starts the loop. It does an immediate pass, then runs each tick.
// Stops when ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	if p.cfg.Interval == 0 {
		p.logger.Info("poller_disabled")
		return
	}
	t := time.NewTicker(p.cfg.Interval)
	defer t.Stop()

	if err := p.RunOnce(ctx); err != nil {
		p.logger.Warn("poll_pass_error", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller_stopped")
			return
		case <-t.C:
			if err := p.RunOnce(ctx); err != nil {
				p.logger.Warn("poll_pass_error", zap.Error(err))
			}
		}
	}
}

// RunOnce evaluates every active target exactly once. It is also the manual
// trigger entrypoint, so an operator-invoked pass and a scheduled one share
// the same code path and the same in-flight guard.
//
// Probe and delivery failures are handled inside the unit of work; only
// persistence failures bubble up, aggregated across targets.
func (p *Poller) RunOnce(ctx context.Context) error {
	ts, err := p.targets.List(ctx, true)
	if err != nil {
		return fmt.Errorf("list active targets: %w", err)
	}
	if len(ts) == 0 {
		return nil
	}

	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup
	var errMu sync.Mutex
	var errs error

	for _, tgt := range ts {
		t := tgt
		if !p.acquire(t.ID) {
			// still being evaluated by a previous pass; skip, don't queue
			p.logger.Debug("target_in_flight_skipped", zap.String("target_id", string(t.ID)))
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			p.release(t.ID)
			wg.Wait()
			return multierr.Append(errs, ctx.Err())
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer p.release(t.ID)

			if err := p.evaluate(ctx, &t); err != nil {
				errMu.Lock()
				errs = multierr.Append(errs, err)
				errMu.Unlock()
			}
		}()
	}

	wg.Wait()
	return errs
}

func (p *Poller) acquire(id domain.TargetID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[id]; busy {
		return false
	}
	p.inFlight[id] = struct{}{}
	return true
}

func (p *Poller) release(id domain.TargetID) {
	p.mu.Lock()
	delete(p.inFlight, id)
	p.mu.Unlock()
}

// evaluate runs one target's sequential chain. A cancelled pass lets units
// already past dispatch finish the whole chain, so the delivery log and the
// persisted status never drift apart; the detached base context does that.
func (p *Poller) evaluate(ctx context.Context, t *domain.WatchTarget) error {
	prober, ok := p.probers.ForPlatform(t.Platform)
	if !ok {
		p.logger.Warn("unknown_platform",
			zap.String("target_id", string(t.ID)),
			zap.String("platform", string(t.Platform)),
		)
		return nil
	}

	base := context.WithoutCancel(ctx)

	pctx, cancel := context.WithTimeout(base, p.cfg.ProbeTimeout)
	res := prober.Probe(pctx, t.ChannelID)
	cancel()

	d := detect.Evaluate(t.LastStatus, res)

	if d.Notify {
		ok, detail := p.notifier.Send(base, t, d.Kind, res.Title, res.Thumbnail)
		outcome := domain.OutcomeSuccess
		if !ok {
			outcome = domain.OutcomeFailure
		}
		rec := &domain.NotificationRecord{
			TargetID:  t.ID,
			Outcome:   outcome,
			Detail:    detail,
			CreatedAt: time.Now().UTC(),
		}
		// a delivery-log failure never blocks the status update
		if err := p.records.Append(base, rec); err != nil {
			p.logger.Warn("record_append_error",
				zap.String("target_id", string(t.ID)),
				zap.Error(err),
			)
		}
		p.logger.Info("transition_notified",
			zap.String("target_id", string(t.ID)),
			zap.String("kind", string(d.Kind)),
			zap.Bool("delivered", ok),
			zap.String("detail", detail),
		)
	}

	if d.Changed(t.LastStatus) {
		if err := p.targets.UpdateStatus(base, t.ID, d.NewStatus); err != nil {
			return fmt.Errorf("update status for target %s: %w", t.ID, err)
		}
		p.logger.Debug("status_updated",
			zap.String("target_id", string(t.ID)),
			zap.String("from", string(t.LastStatus)),
			zap.String("to", string(d.NewStatus)),
		)
	}
	return nil
}
