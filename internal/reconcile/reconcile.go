// Package reconcile implements the periodic comparison between the
// ledger's tracked job ids and the cluster scheduler's live set,
// releasing learners whose jobs have vanished.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/hpcledger/internal/ledger"
	"github.com/jackzampolin/hpcledger/internal/schedadapter"
)

// Reconciler runs Tick on a fixed interval against a ledger and a
// scheduler adapter.
type Reconciler struct {
	store  ledger.LedgerStore
	prober schedadapter.Prober
	logger *slog.Logger

	attempts uint
	delay    time.Duration
}

// New builds a Reconciler. A nil logger falls back to slog.Default,
// matching the teacher's logging convention throughout internal/jobs.
func New(store ledger.LedgerStore, prober schedadapter.Prober, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:    store,
		prober:   prober,
		logger:   logger,
		attempts: 3,
		delay:    time.Second,
	}
}

// Tick runs one reconcile pass:
//  1. probe the cluster (retried on transient failure);
//  2. compute live vs tracked job ids;
//  3. release every tracked job id the probe no longer reports.
//
// A probe failure that exhausts the retry budget is logged and the tick
// is skipped: the ledger is left byte-identical, never mutated on a
// failed probe.
func (r *Reconciler) Tick(ctx context.Context) {
	live, err := r.probeWithRetry(ctx)
	if err != nil {
		r.logger.Warn("reconcile: probe failed, skipping tick", "error", err)
		return
	}

	tracked := make(map[string]ledger.Fname)
	for _, e := range r.store.Snapshot() {
		if e.JobID != nil {
			tracked[*e.JobID] = e.Fname
		}
	}

	for jobID, fname := range tracked {
		if _, ok := live[jobID]; ok {
			continue
		}
		if err := r.store.Release(fname); err != nil {
			r.logger.Error("reconcile: releasing stale claim failed", "job_id", jobID, "fname", fname.String(), "error", err)
			continue
		}
		r.logger.Info("reconcile: released stale claim", "job_id", jobID, "fname", fname.String())
	}
}

func (r *Reconciler) probeWithRetry(ctx context.Context) (map[string]schedadapter.JobInfo, error) {
	var live map[string]schedadapter.JobInfo
	err := retry.Do(
		func() error {
			var probeErr error
			live, probeErr = r.prober.Probe(ctx, true)
			return probeErr
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
	)
	return live, err
}
