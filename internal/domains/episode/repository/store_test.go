package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast-backend/internal/domains/episode/model"
	"podcast-backend/pkg/cache"
)

func newTestStore(t *testing.T) (*Store, *Projection, string) {
	t.Helper()
	dir := t.TempDir()
	proj := NewProjection(cache.NewMemoryCache())
	return NewStore(proj, dir), proj, dir
}

func TestAddAssignsFirstID(t *testing.T) {
	ctx := context.Background()
	store, _, dir := newTestStore(t)

	ep, err := store.Add(ctx, model.Episode{Title: "Pilot", Filename: "pilot.mp3"})
	require.NoError(t, err)
	assert.Equal(t, 1, ep.ID)
	assert.NotEmpty(t, ep.CreatedAt)
	assert.Equal(t, ep.CreatedAt, ep.UpdatedAt)

	// The per-id file must exist and round-trip.
	raw, err := os.ReadFile(filepath.Join(dir, "1.json"))
	require.NoError(t, err)
	var onDisk model.Episode
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, "Pilot", onDisk.Title)
}

func TestAddAssignsMaxPlusOne(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	_, err := store.Add(ctx, model.Episode{ID: 3, Title: "Three"})
	require.NoError(t, err)
	_, err = store.Add(ctx, model.Episode{ID: 7, Title: "Seven"})
	require.NoError(t, err)

	ep, err := store.Add(ctx, model.Episode{Title: "Next"})
	require.NoError(t, err)
	assert.Equal(t, 8, ep.ID, "new ids continue from the highest existing id, gaps are not reused")
}

func TestFindFallsBackToDiskAndRepopulates(t *testing.T) {
	ctx := context.Background()
	store, proj, _ := newTestStore(t)

	_, err := store.Add(ctx, model.Episode{ID: 2, Title: "Cached later"})
	require.NoError(t, err)

	// Wipe the cache; Find must still succeed from the per-id file and
	// put the entry back.
	require.NoError(t, proj.Rebuild(ctx, nil))

	ep, err := store.Find(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Cached later", ep.Title)

	_, found, err := proj.ReadOne(ctx, 2)
	require.NoError(t, err)
	assert.True(t, found, "a disk hit must repopulate the cache")
}

func TestFindFallsBackToLegacyList(t *testing.T) {
	ctx := context.Background()
	store, _, dir := newTestStore(t)

	legacy := []model.Episode{
		{ID: 11, Title: "Old eleven", Filename: "eleven.mp3"},
		{ID: 12, Title: "Old twelve", Filename: "twelve.mp3"},
	}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, legacyListFile), raw, 0o644))

	ep, err := store.Find(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, "Old twelve", ep.Title)
}

func TestFindNotFoundAtAnyLayer(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	_, err := store.Find(ctx, 99)
	assert.ErrorIs(t, err, model.ErrEpisodeNotFound)
}

func TestAllMergesLegacyUnderPerIDFiles(t *testing.T) {
	ctx := context.Background()
	store, _, dir := newTestStore(t)

	legacy := []model.Episode{
		{ID: 1, Title: "Legacy one"},
		{ID: 2, Title: "Legacy two"},
	}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, legacyListFile), raw, 0o644))

	// Per-id file for id 2 shadows the legacy entry.
	_, err = store.Add(ctx, model.Episode{ID: 2, Title: "Rewritten two"})
	require.NoError(t, err)

	episodes, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, "Legacy one", episodes[0].Title)
	assert.Equal(t, "Rewritten two", episodes[1].Title)
}

func TestFindByFilenameMatchesBasename(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	_, err := store.Add(ctx, model.Episode{ID: 1, Title: "One", Filename: "1700000000_intro.mp3"})
	require.NoError(t, err)

	ep, err := store.FindByFilename(ctx, "subdir/1700000000_intro.mp3")
	require.NoError(t, err)
	assert.Equal(t, 1, ep.ID)

	_, err = store.FindByFilename(ctx, "missing.mp3")
	assert.ErrorIs(t, err, model.ErrEpisodeNotFound)
}

func TestUpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	_, err := store.Add(ctx, model.Episode{ID: 1, Title: "Before", Description: "Kept"})
	require.NoError(t, err)

	title := "After"
	ep, err := store.Update(ctx, 1, model.EpisodeUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "After", ep.Title)
	assert.Equal(t, "Kept", ep.Description)

	// The merged record is what lands back on disk.
	again, err := store.Find(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "After", again.Title)
	assert.Equal(t, "Kept", again.Description)
}

func TestUpdateMissingEpisode(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	title := "Never"
	_, err := store.Update(ctx, 5, model.EpisodeUpdate{Title: &title})
	assert.ErrorIs(t, err, model.ErrEpisodeNotFound)
}

func TestDeleteRemovesFileAndCache(t *testing.T) {
	ctx := context.Background()
	store, proj, dir := newTestStore(t)

	_, err := store.Add(ctx, model.Episode{ID: 4, Title: "Doomed"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, 4))

	_, statErr := os.Stat(filepath.Join(dir, "4.json"))
	assert.True(t, os.IsNotExist(statErr))

	_, found, err := proj.ReadOne(ctx, 4)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = store.Find(ctx, 4)
	assert.ErrorIs(t, err, model.ErrEpisodeNotFound, "no layer may resurrect a deleted episode")
}

func TestDeleteScrubsLegacyList(t *testing.T) {
	ctx := context.Background()
	store, _, dir := newTestStore(t)

	legacy := []model.Episode{
		{ID: 7, Title: "Legacy seven", Filename: "7.mp3"},
		{ID: 8, Title: "Legacy eight", Filename: "8.mp3"},
	}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, legacyListFile), raw, 0o644))

	require.NoError(t, store.Delete(ctx, 7))

	_, err = store.Find(ctx, 7)
	assert.ErrorIs(t, err, model.ErrEpisodeNotFound, "the legacy list must not resurrect a deleted episode")

	episodes, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, 8, episodes[0].ID)
}

func TestDeleteMissingEpisode(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	err := store.Delete(ctx, 123)
	assert.ErrorIs(t, err, model.ErrEpisodeNotFound)
}

func TestNextIDEmptyStore(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	id, err := store.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, id)
}
