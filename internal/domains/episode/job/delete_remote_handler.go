package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"podcast-backend/internal/domains/episode/model"
	"podcast-backend/internal/infrastructure/github"
)

// DeleteRemoteHandler is step one of the delete chain: remove the
// per-episode file from the canonical store, then hand off to resync.
// An already-absent file counts as done.
type DeleteRemoteHandler struct {
	gh    *github.Client
	queue *asynq.Client
}

func NewDeleteRemoteHandler(gh *github.Client, queue *asynq.Client) *DeleteRemoteHandler {
	return &DeleteRemoteHandler{gh: gh, queue: queue}
}

func (h *DeleteRemoteHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload model.DeleteRemotePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal DeleteRemote payload")
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if !h.gh.Enabled() {
		log.Warn().Int("episode_id", payload.EpisodeID).Msg("Remote delete skipped: client not configured")
		return nil
	}

	if err := h.gh.DeleteEpisodeFile(ctx, payload.EpisodeID); err != nil {
		log.Error().Err(err).Int("episode_id", payload.EpisodeID).Msg("Failed to delete episode from remote store")
	}

	if err := enqueueSyncCache(ctx, h.queue); err != nil {
		log.Error().Err(err).Msg("Failed to queue cache resync after remote delete")
		return fmt.Errorf("queue resync: %w", err)
	}
	return nil
}
