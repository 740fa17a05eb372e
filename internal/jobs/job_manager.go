package jobs

import (
	"fmt"
)

// JobManager coordinates all scheduled jobs in the relay.
type JobManager struct {
	livenessSweepJob *LivenessSweepJob
	locationFlushJob *LocationFlushJob
}

func NewJobManager(livenessSweepJob *LivenessSweepJob, locationFlushJob *LocationFlushJob) *JobManager {
	return &JobManager{
		livenessSweepJob: livenessSweepJob,
		locationFlushJob: locationFlushJob,
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.locationFlushJob.Start(); err != nil {
		return fmt.Errorf("failed to start location flush job: %w", err)
	}

	if err := jm.livenessSweepJob.Start(); err != nil {
		// Stop already started jobs if this one fails
		jm.locationFlushJob.Stop()
		return fmt.Errorf("failed to start liveness sweep job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs and waits for running passes to finish.
func (jm *JobManager) StopAll() {
	jm.livenessSweepJob.Stop()
	jm.locationFlushJob.Stop()
}
