package main

import (
	"github.com/hibiken/asynq"

	episodeJob "podcast-backend/internal/domains/episode/job"
	"podcast-backend/internal/domains/episode/model"
	"podcast-backend/pkg/container"
)

// HandlerRegistry holds all job handlers.
type HandlerRegistry struct {
	appendEpisode *episodeJob.AppendEpisodeHandler
	deleteRemote  *episodeJob.DeleteRemoteHandler
	syncCache     *episodeJob.SyncCacheHandler
}

// initializeHandlers creates all job handlers with their dependencies.
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		appendEpisode: episodeJob.NewAppendEpisodeHandler(c.Store, c.GitHub, c.AsynqClient),
		deleteRemote:  episodeJob.NewDeleteRemoteHandler(c.GitHub, c.AsynqClient),
		syncCache:     episodeJob.NewSyncCacheHandler(c.Store, c.Projection, c.GitHub),
	}
}

// RegisterHandlers registers all handlers with the mux.
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(model.TypeAppendEpisode, h.appendEpisode.ProcessTask)
	mux.HandleFunc(model.TypeDeleteRemote, h.deleteRemote.ProcessTask)
	mux.HandleFunc(model.TypeSyncCache, h.syncCache.ProcessTask)
}
