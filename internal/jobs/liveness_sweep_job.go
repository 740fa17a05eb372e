package jobs

import (
	"context"
	"log/slog"
	"time"

	"relay/internal/core/domain/model/kernel"

	"github.com/robfig/cron/v3"
)

// ConnectionSweeper is the connection registry as seen by the sweep.
type ConnectionSweeper interface {
	Stale(cutoff time.Time) []kernel.UUID
	Unregister(id kernel.UUID)
}

// OrderEvictor drops finished orders from the cache.
type OrderEvictor interface {
	EvictTerminal(cutoff time.Time) int
}

// LivenessSweepJob unregisters connections that stayed silent longer than the
// liveness timeout and evicts terminal orders past their retention.
type LivenessSweepJob struct {
	connections ConnectionSweeper
	orders      OrderEvictor
	schedule    string
	timeout     time.Duration
	retention   time.Duration
	cron        *cron.Cron
	logger      *slog.Logger
}

// NewLivenessSweepJob creates the sweep. schedule accepts cron expressions
// with seconds or descriptors such as "@every 10s".
func NewLivenessSweepJob(
	connections ConnectionSweeper,
	orders OrderEvictor,
	schedule string,
	timeout time.Duration,
	retention time.Duration,
	logger *slog.Logger,
) *LivenessSweepJob {
	return &LivenessSweepJob{
		connections: connections,
		orders:      orders,
		schedule:    schedule,
		timeout:     timeout,
		retention:   retention,
		cron:        cron.New(cron.WithSeconds()),
		logger:      logger.With("component", "liveness_sweep_job"),
	}
}

// Sweep runs one pass at now and reports how many connections were closed and
// how many orders were evicted.
func (j *LivenessSweepJob) Sweep(now time.Time) (int, int) {
	stale := j.connections.Stale(now.Add(-j.timeout))
	for _, id := range stale {
		j.connections.Unregister(id)
	}

	evicted := 0
	if j.orders != nil {
		evicted = j.orders.EvictTerminal(now.Add(-j.retention))
	}

	if len(stale) > 0 || evicted > 0 {
		j.logger.Info("liveness sweep", "closedConnections", len(stale), "evictedOrders", evicted)
	}
	return len(stale), evicted
}

// Start schedules the sweep.
func (j *LivenessSweepJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.Sweep(time.Now())
	})

	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Liveness sweep job started", "schedule", j.schedule)
	return nil
}

// Stop stops the sweep.
func (j *LivenessSweepJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Liveness sweep job stopped")
}
