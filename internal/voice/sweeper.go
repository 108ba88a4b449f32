package voice

import (
	"context"
	"fmt"
	"time"

	"hvac-backoffice/internal/callsession"
	"hvac-backoffice/internal/calls"
	"hvac-backoffice/pkg/logger"
)

// Sweeper finalizes and removes sessions whose caller went silent past the TTL.
type Sweeper struct {
	Store    callsession.Store
	Calls    CallRecords
	Interval time.Duration
	Limit    int

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewSweeper(store callsession.Store, records CallRecords, interval time.Duration, limit int) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if limit <= 0 {
		limit = 100
	}
	return &Sweeper{Store: store, Calls: records, Interval: interval, Limit: limit, clock: time.Now}
}

// Run sweeps on every tick until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(w.Interval)
	defer t.Stop()
	log := logger.From(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := w.Sweep(ctx)
			if err != nil {
				log.Error("session sweep failed", "err", err)
				continue
			}
			if n > 0 {
				log.Info("expired sessions finalized", "count", n)
			}
		}
	}
}

// Sweep handles one batch of expired sessions and returns how many were removed.
func (w *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := w.clock().UTC()
	expired, err := w.Store.Expired(ctx, now, w.Limit)
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}

	log := logger.From(ctx)
	done := 0
	for _, s := range expired {
		status := abandonedStatus
		if s.State().Terminal() {
			status = "completed"
		}
		if _, err := w.Calls.Finalize(ctx, s.CompanyID, s.CallID, status, s); err != nil && !calls.IsNotFound(err) {
			log.Warn("finalize expired session failed", "company_id", s.CompanyID, "call_id", s.CallID, "err", err)
			continue
		}
		if err := w.Store.Delete(ctx, s.Phone, s.CallID); err != nil {
			log.Warn("delete expired session failed", "call_id", s.CallID, "err", err)
			continue
		}
		done++
	}
	return done, nil
}
