/*
scheduler.go - Automated monthly accrual scheduler

PURPOSE:
  Periodically checks whether a new calendar month has started and, when
  it has, runs the accrual sweep for every tenant in the store.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Fires the sweep once per calendar month, tracked by an in-process
    marker only. The marker does not survive a restart, and the engine
    itself has no period guard, so a restart inside an already-swept
    month runs the sweep again and credits employees twice. Deployments
    that care must gate restarts or reconcile from the audit trail.
  - Tenants are swept independently; one tenant failing does not stop
    the others.

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := api.NewAccrualScheduler(accrual, store, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunAccrual endpoint (manual sweep)
  - leave/accrual.go: the sweep itself
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/syntaxone/leave-engine/leave"
)

// AccrualScheduler runs the monthly accrual sweep in the background.
type AccrualScheduler struct {
	Accrual       *leave.Accrual
	Store         leave.Store
	CheckInterval time.Duration
	Enabled       bool

	log    *zap.Logger
	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex

	// lastRun is the "2006-01" marker of the last swept month. Touched only
	// by the run goroutine, so it needs no lock.
	lastRun string
}

// NewAccrualScheduler creates a new scheduler.
func NewAccrualScheduler(accrual *leave.Accrual, store leave.Store, log *zap.Logger) *AccrualScheduler {
	return &AccrualScheduler{
		Accrual:       accrual,
		Store:         store,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		log:           log,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (as *AccrualScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		as.log.Info("accrual scheduler disabled, not starting")
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.wg.Add(1)

	go as.run()

	as.log.Info("accrual scheduler started",
		zap.Duration("check_interval", as.CheckInterval))
}

// Stop stops the scheduler.
func (as *AccrualScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		close(as.stop)
		as.wg.Wait()
		as.log.Info("accrual scheduler stopped")
	}
}

func (as *AccrualScheduler) run() {
	defer as.wg.Done()

	// Check immediately on start
	as.checkAndSweep()

	for {
		select {
		case <-as.ticker.C:
			as.checkAndSweep()
		case <-as.stop:
			return
		}
	}
}

func (as *AccrualScheduler) checkAndSweep() {
	month := time.Now().UTC().Format("2006-01")
	if as.lastRun == month {
		return
	}
	as.lastRun = month

	as.log.Info("running monthly accrual sweep", zap.String("month", month))
	as.sweepAll(context.Background())
}

func (as *AccrualScheduler) sweepAll(ctx context.Context) {
	tenants, err := as.Store.ListTenants(ctx)
	if err != nil {
		as.log.Error("listing tenants for accrual sweep", zap.Error(err))
		return
	}

	for _, tenant := range tenants {
		report, err := as.Accrual.RunMonthly(ctx, tenant)
		if err != nil {
			as.log.Error("accrual sweep failed",
				zap.String("tenant", string(tenant)),
				zap.Error(err))
			continue
		}
		as.log.Info("accrual sweep completed",
			zap.String("tenant", string(tenant)),
			zap.String("run_id", report.RunID),
			zap.Int("employees", report.Employees),
			zap.Int("types", report.Types),
			zap.String("credited", report.Credited.String()))
	}
}

// RunNow triggers an immediate sweep of all tenants regardless of the
// month marker (for testing/admin).
func (as *AccrualScheduler) RunNow() {
	as.sweepAll(context.Background())
}
