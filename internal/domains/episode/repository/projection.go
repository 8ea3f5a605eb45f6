package repository

import (
	"context"
	"fmt"
	"sort"

	"podcast-backend/internal/domains/episode/model"
	"podcast-backend/pkg/cache"
)

// Cache keys for the denormalized episode projection.
const (
	KeyAllEpisodes   = "episodes:all"
	episodeKeyPrefix = "episode:"
)

// EpisodeKey is the per-id cache key.
func EpisodeKey(id int) string {
	return fmt.Sprintf("%s%d", episodeKeyPrefix, id)
}

// Projection is the fast-read mirror of the episode list: one sorted
// full-list entry plus one entry per episode. It is a pure projection of
// the canonical store and is rebuilt, never independently written,
// outside of the optimistic delete below.
type Projection struct {
	cache cache.Cache
}

func NewProjection(c cache.Cache) *Projection {
	return &Projection{cache: c}
}

// Rebuild replaces the whole projection with the given authoritative
// set. Stale per-id keys are cleared first so deleted episodes do not
// leak forward forever.
func (p *Projection) Rebuild(ctx context.Context, episodes []model.Episode) error {
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].ID < episodes[j].ID })

	if err := p.cache.DeletePattern(ctx, episodeKeyPrefix+"*"); err != nil {
		return fmt.Errorf("clear stale episode keys: %w", err)
	}

	if episodes == nil {
		episodes = []model.Episode{}
	}
	if err := p.cache.Set(ctx, KeyAllEpisodes, episodes, 0); err != nil {
		return fmt.Errorf("write episode list: %w", err)
	}

	for _, ep := range episodes {
		if err := p.cache.Set(ctx, EpisodeKey(ep.ID), ep, 0); err != nil {
			return fmt.Errorf("write episode %d: %w", ep.ID, err)
		}
	}
	return nil
}

// ReadAll returns the cached list, or an empty list on a cold cache.
// It never triggers a rebuild; rebuilds are push-only.
func (p *Projection) ReadAll(ctx context.Context) ([]model.Episode, error) {
	var episodes []model.Episode
	found, err := p.cache.Get(ctx, KeyAllEpisodes, &episodes)
	if err != nil {
		return nil, err
	}
	if !found || episodes == nil {
		return []model.Episode{}, nil
	}
	return episodes, nil
}

// ReadOne returns the cached per-id entry, with found=false on a miss.
func (p *Projection) ReadOne(ctx context.Context, id int) (model.Episode, bool, error) {
	var ep model.Episode
	found, err := p.cache.Get(ctx, EpisodeKey(id), &ep)
	return ep, found, err
}

// StoreOne writes one per-id entry. Read-through repopulation after a
// fallback lookup.
func (p *Projection) StoreOne(ctx context.Context, ep model.Episode) error {
	return p.cache.Set(ctx, EpisodeKey(ep.ID), ep, 0)
}

// StoreList replaces the full-list entry only.
func (p *Projection) StoreList(ctx context.Context, episodes []model.Episode) error {
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].ID < episodes[j].ID })
	return p.cache.Set(ctx, KeyAllEpisodes, episodes, 0)
}

// Remove drops an episode from the list entry and deletes its per-id
// key. This is the optimistic local removal on delete: readers stop
// seeing the episode before the remote delete chain completes.
func (p *Projection) Remove(ctx context.Context, id int) error {
	episodes, err := p.ReadAll(ctx)
	if err != nil {
		return err
	}

	kept := episodes[:0]
	for _, ep := range episodes {
		if ep.ID != id {
			kept = append(kept, ep)
		}
	}

	if err := p.cache.Delete(ctx, EpisodeKey(id)); err != nil {
		return err
	}
	return p.cache.Set(ctx, KeyAllEpisodes, kept, 0)
}

// Ping proxies the underlying cache health check.
func (p *Projection) Ping(ctx context.Context) error {
	return p.cache.Ping(ctx)
}
