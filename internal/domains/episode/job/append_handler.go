package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"podcast-backend/internal/domains/episode/model"
	"podcast-backend/internal/domains/episode/repository"
	"podcast-backend/internal/infrastructure/github"
)

// AppendEpisodeHandler is step one of the create chain: assign the id,
// persist the record (remote store when configured, local per-id file
// otherwise) and hand off to the cache resync step. The chain never
// aborts: a failed persist is logged and the resync still runs, so the
// system converges on the next successful sync instead of wedging.
type AppendEpisodeHandler struct {
	store *repository.Store
	gh    *github.Client
	queue *asynq.Client
}

func NewAppendEpisodeHandler(store *repository.Store, gh *github.Client, queue *asynq.Client) *AppendEpisodeHandler {
	return &AppendEpisodeHandler{store: store, gh: gh, queue: queue}
}

func (h *AppendEpisodeHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload model.AppendEpisodePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal AppendEpisode payload")
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	ep := payload.Episode
	if ep.ID == 0 {
		id, err := h.store.NextID(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to compute next episode id")
			return fmt.Errorf("next id: %w", err)
		}
		ep.ID = id
	}

	log.Info().Int("episode_id", ep.ID).Str("title", ep.Title).Msg("Appending episode")

	if h.gh.Enabled() {
		if err := h.gh.UpsertEpisodeFile(ctx, ep.ID, ep); err != nil {
			log.Error().Err(err).Int("episode_id", ep.ID).Msg("Failed to append episode to remote store")
		}
	} else {
		if _, err := h.store.Add(ctx, ep); err != nil {
			log.Error().Err(err).Int("episode_id", ep.ID).Msg("Failed to persist episode locally")
		}
	}

	if err := enqueueSyncCache(ctx, h.queue); err != nil {
		log.Error().Err(err).Msg("Failed to queue cache resync after append")
		return fmt.Errorf("queue resync: %w", err)
	}
	return nil
}

func enqueueSyncCache(ctx context.Context, queue *asynq.Client) error {
	raw, err := json.Marshal(model.SyncCachePayload{})
	if err != nil {
		return err
	}
	task := asynq.NewTask(model.TypeSyncCache, raw)
	_, err = queue.EnqueueContext(ctx, task, asynq.Queue(model.QueueEpisodes), asynq.MaxRetry(2))
	return err
}
