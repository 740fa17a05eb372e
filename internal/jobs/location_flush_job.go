package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// LocationFlusher broadcasts coalesced location samples whose interval elapsed.
type LocationFlusher interface {
	Flush(now time.Time) int
}

// LocationFlushJob runs every second so that a coalesced sample is delivered at
// most one interval late even when its driver goes quiet.
type LocationFlushJob struct {
	aggregator LocationFlusher
	cron       *cron.Cron
	logger     *slog.Logger
}

func NewLocationFlushJob(aggregator LocationFlusher, logger *slog.Logger) *LocationFlushJob {
	return &LocationFlushJob{
		aggregator: aggregator,
		cron:       cron.New(cron.WithSeconds()),
		logger:     logger.With("component", "location_flush_job"),
	}
}

// Start begins flushing every second.
func (j *LocationFlushJob) Start() error {
	_, err := j.cron.AddFunc("* * * * * *", func() {
		if n := j.aggregator.Flush(time.Now()); n > 0 {
			j.logger.Debug("flushed coalesced locations", "count", n)
		}
	})

	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Location flush job started (running every second)")
	return nil
}

// Stop stops the flush job.
func (j *LocationFlushJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Location flush job stopped")
}
