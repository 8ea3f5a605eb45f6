package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"podcast-backend/internal/domains/episode/model"
	"podcast-backend/pkg/container"
)

// asynqScheduler wraps asynq.Scheduler.
type asynqScheduler struct {
	*asynq.Scheduler
}

// setupScheduler registers the periodic cache resync. Every write chain
// already ends in a resync; the hourly run is the safety net that heals
// the cache after missed chains or manual edits to the remote store.
func setupScheduler(c *container.Container) *asynqScheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     c.Config.Redis.Host,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	payload, err := json.Marshal(model.SyncCachePayload{})
	if err != nil {
		log.Fatalf("[Scheduler] Failed to marshal resync payload: %v", err)
	}

	task := asynq.NewTask(model.TypeSyncCache, payload)
	if _, err := scheduler.Register(
		"0 * * * *", // hourly
		task,
		asynq.Queue(model.QueueEpisodes),
		asynq.MaxRetry(1),
		asynq.Timeout(5*time.Minute),
	); err != nil {
		log.Fatalf("[Scheduler] Failed to register cache resync job: %v", err)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatalf("[Scheduler] Failed: %v", err)
		}
	}()

	return &asynqScheduler{Scheduler: scheduler}
}

// Shutdown stops the scheduler.
func (s *asynqScheduler) Shutdown() {
	s.Scheduler.Shutdown()
}
