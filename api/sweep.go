/*
sweep.go - Scheduled batch recompute

PURPOSE:
  Runs the ledger's recompute sweep on a cron schedule so late orders,
  cancellations and rule edits flow into non-paid commissions without a
  manual /api/admin/sweep call.

DESIGN:
  - cron-driven, default "0 3 * * *" (daily, off-peak)
  - Per-run timeout; a hung orders source cannot pile runs up
  - Sweep failures are logged per key and never stop the schedule

CONFIGURATION:
  - Spec: cron expression ("" disables the scheduler entirely)
  - RunTimeout: bound on one full sweep (default: 30 minutes)

USAGE:
  scheduler := NewSweepScheduler(ledger, cfg.SweepSpec)
  if err := scheduler.Start(); err != nil { ... }
  defer scheduler.Stop()

SEE ALSO:
  - commission/ledger.go: SweepPending
  - handlers.go: TriggerSweep endpoint (manual sweep)
*/
package api

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Reshigan/SalesSync-sub022/commission"
)

const (
	DefaultSweepSpec       = "0 3 * * *"
	defaultSweepRunTimeout = 30 * time.Minute
)

// SweepScheduler runs the batch recompute on a cron schedule.
type SweepScheduler struct {
	Ledger     *commission.Ledger
	Spec       string
	RunTimeout time.Duration

	cron *cron.Cron
}

// NewSweepScheduler creates a scheduler. An empty spec disables it.
func NewSweepScheduler(ledger *commission.Ledger, spec string) *SweepScheduler {
	return &SweepScheduler{
		Ledger:     ledger,
		Spec:       spec,
		RunTimeout: defaultSweepRunTimeout,
	}
}

// Start registers the cron entry and begins the schedule.
func (s *SweepScheduler) Start() error {
	if s.Spec == "" {
		log.Println("[Sweep] Disabled, not starting")
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.Spec, s.run); err != nil {
		return err
	}
	s.cron.Start()

	log.Printf("[Sweep] Scheduled with spec %q", s.Spec)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *SweepScheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		log.Println("[Sweep] Stopped")
	}
}

func (s *SweepScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.RunTimeout)
	defer cancel()

	started := time.Now()
	result, err := s.Ledger.SweepPending(ctx, "") // All tenants.
	if err != nil {
		log.Printf("[Sweep] Run failed after %v: %v", time.Since(started), err)
		return
	}

	log.Printf("[Sweep] Recomputed %d commissions (%d failed) in %v",
		result.Recomputed, result.Failed, time.Since(started))
	for _, e := range result.Errors {
		log.Printf("[Sweep] %v", e)
	}
}
