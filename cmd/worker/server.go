package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"podcast-backend/internal/domains/episode/model"
	"podcast-backend/pkg/container"
)

// asynqServer wraps asynq.Server with graceful-shutdown plumbing.
type asynqServer struct {
	*asynq.Server
}

// setupAsynqServer creates and starts the Asynq server. Concurrency on
// the episodes queue is 1: chain steps of a single write must not
// overtake each other, and the id computation in the append job relies
// on appends running one at a time.
func setupAsynqServer(c *container.Container, handlers *HandlerRegistry) *asynqServer {
	mux := asynq.NewServeMux()
	handlers.RegisterHandlers(mux)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     c.Config.Redis.Host,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		},
		asynq.Config{
			Queues: map[string]int{
				model.QueueEpisodes: 10,
			},
			Concurrency: 1,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq] Task failed - Type: %s, Error: %v", task.Type(), err)
			}),
		},
	)

	go func() {
		log.Println("[Worker] Starting...")
		if err := srv.Run(mux); err != nil {
			log.Fatalf("[Worker] Failed: %v", err)
		}
	}()

	return &asynqServer{Server: srv}
}

// Shutdown waits for in-flight tasks, then stops the server.
func (s *asynqServer) Shutdown() {
	log.Println("[Worker] Shutting down...")
	s.Server.Shutdown()
	log.Println("[Worker] Stopped")
}
