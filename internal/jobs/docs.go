// Package jobs provides scheduled background tasks for the relay.
//
// Jobs use github.com/robfig/cron/v3 with second resolution.
//
// # Available Jobs
//
// 1. LivenessSweepJob - unregisters connections idle past the liveness timeout
// and evicts delivered or cancelled orders past their retention
// 2. LocationFlushJob - runs every second to broadcast coalesced driver locations
//
// # Usage
//
//	jobManager := jobs.NewJobManager(
//		jobs.NewLivenessSweepJob(registry, orders, "@every 10s", time.Minute, time.Hour, logger),
//		jobs.NewLocationFlushJob(aggregator, logger),
//	)
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
package jobs
