package job

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"podcast-backend/internal/domains/episode/model"
	"podcast-backend/internal/domains/episode/repository"
	"podcast-backend/internal/infrastructure/github"
)

// SyncCacheHandler rebuilds the cache projection from the source of
// truth: the remote store when configured, the local metadata store
// otherwise. Every write chain ends here, and the scheduler runs it
// periodically as a safety net.
type SyncCacheHandler struct {
	store *repository.Store
	proj  *repository.Projection
	gh    *github.Client
}

func NewSyncCacheHandler(store *repository.Store, proj *repository.Projection, gh *github.Client) *SyncCacheHandler {
	return &SyncCacheHandler{store: store, proj: proj, gh: gh}
}

func (h *SyncCacheHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var episodes []model.Episode
	var err error

	if h.gh.Enabled() {
		episodes, err = h.fetchFromRemote(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to fetch episodes from remote store")
			return err
		}
	} else {
		episodes, err = h.store.All(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load episodes from local store")
			return err
		}
	}

	if len(episodes) == 0 {
		// A fetch that legitimately returns nothing and one that was
		// silently empty are indistinguishable here; the cache is
		// overwritten with an empty list either way.
		log.Warn().Msg("Cache resync found no episodes; writing empty list")
	}

	if err := h.proj.Rebuild(ctx, episodes); err != nil {
		log.Error().Err(err).Msg("Failed to rebuild episode cache")
		return err
	}

	log.Info().Int("count", len(episodes)).Msg("Episode cache rebuilt")
	return nil
}

// fetchFromRemote lists the canonical episode directory and decodes
// every per-episode file, dropping entries that fail to parse or carry
// no id.
func (h *SyncCacheHandler) fetchFromRemote(ctx context.Context) ([]model.Episode, error) {
	items, err := h.gh.ListEpisodeFiles(ctx)
	if err != nil {
		return nil, err
	}

	episodes := make([]model.Episode, 0, len(items))
	for _, item := range items {
		ep, err := h.gh.FetchEpisode(ctx, item.Path)
		if err != nil {
			log.Warn().Err(err).Str("path", item.Path).Msg("Skipping undecodable episode file")
			continue
		}
		if ep.ID <= 0 {
			log.Warn().Str("path", item.Path).Msg("Skipping episode file without id")
			continue
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}
