package job

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast-backend/internal/config"
	"podcast-backend/internal/domains/episode/model"
	"podcast-backend/internal/domains/episode/repository"
	"podcast-backend/internal/infrastructure/github"
	"podcast-backend/pkg/cache"
)

func syncTask(t *testing.T) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(model.SyncCachePayload{})
	require.NoError(t, err)
	return asynq.NewTask(model.TypeSyncCache, payload)
}

func TestSyncCacheFromLocalStore(t *testing.T) {
	ctx := context.Background()
	proj := repository.NewProjection(cache.NewMemoryCache())
	store := repository.NewStore(proj, t.TempDir())

	_, err := store.Add(ctx, model.Episode{ID: 2, Title: "Two"})
	require.NoError(t, err)
	_, err = store.Add(ctx, model.Episode{ID: 1, Title: "One"})
	require.NoError(t, err)

	// Poison the cache; the rebuild must replace it wholesale.
	require.NoError(t, proj.Rebuild(ctx, []model.Episode{{ID: 99, Title: "Stale"}}))

	h := NewSyncCacheHandler(store, proj, nil)
	require.NoError(t, h.ProcessTask(ctx, syncTask(t)))

	got, err := proj.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "One", got[0].Title)
	assert.Equal(t, "Two", got[1].Title)

	_, found, err := proj.ReadOne(ctx, 99)
	require.NoError(t, err)
	assert.False(t, found, "stale entries must not survive a rebuild")
}

func TestSyncCacheFromRemoteStore(t *testing.T) {
	ctx := context.Background()

	encode := func(ep model.Episode) string {
		raw, err := json.Marshal(ep)
		require.NoError(t, err)
		return base64.StdEncoding.EncodeToString(raw)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/episodes/contents/production/episodes", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]github.ContentItem{
			{Type: "file", Name: "1.json", Path: "production/episodes/1.json"},
			{Type: "file", Name: "2.json", Path: "production/episodes/2.json"},
			{Type: "file", Name: "broken.json", Path: "production/episodes/broken.json"},
		})
	})
	mux.HandleFunc("/repos/acme/episodes/contents/production/episodes/1.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"sha": "a", "content": encode(model.Episode{ID: 1, Title: "Remote one"})})
	})
	mux.HandleFunc("/repos/acme/episodes/contents/production/episodes/2.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"sha": "b", "content": encode(model.Episode{ID: 2, Title: "Remote two"})})
	})
	mux.HandleFunc("/repos/acme/episodes/contents/production/episodes/broken.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"sha": "c", "content": "not-base64!!!"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	gh := github.NewFromConfig(config.GitHubConfig{
		Token:     "t",
		Owner:     "acme",
		Repo:      "episodes",
		Branch:    "main",
		EnvFolder: "production",
	})
	require.NotNil(t, gh)
	gh.SetAPIBase(srv.URL)

	proj := repository.NewProjection(cache.NewMemoryCache())
	store := repository.NewStore(proj, t.TempDir())

	h := NewSyncCacheHandler(store, proj, gh)
	require.NoError(t, h.ProcessTask(ctx, syncTask(t)))

	got, err := proj.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2, "undecodable files are skipped, not fatal")
	assert.Equal(t, "Remote one", got[0].Title)
	assert.Equal(t, "Remote two", got[1].Title)
}

func TestSyncCacheEmptyStoreWritesEmptyList(t *testing.T) {
	ctx := context.Background()
	proj := repository.NewProjection(cache.NewMemoryCache())
	store := repository.NewStore(proj, t.TempDir())

	require.NoError(t, proj.Rebuild(ctx, []model.Episode{{ID: 1, Title: "Soon gone"}}))

	h := NewSyncCacheHandler(store, proj, nil)
	require.NoError(t, h.ProcessTask(ctx, syncTask(t)))

	got, err := proj.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
