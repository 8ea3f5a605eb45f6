package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"podcast-backend/internal/domains/episode/model"
	"podcast-backend/internal/domains/episode/repository"
	"podcast-backend/internal/infrastructure/github"
)

// Service coordinates episode writes across the metadata store, the
// remote canonical store and the cache projection. Writes are fire and
// forget: the caller gets a quick "queued" answer and the sync chains
// converge the three representations afterwards.
type Service struct {
	store   *repository.Store
	proj    *repository.Projection
	backend *StorageBackend
	gh      *github.Client // nil in local-only mode
	queue   *asynq.Client
}

func NewService(store *repository.Store, proj *repository.Projection, backend *StorageBackend, gh *github.Client, queue *asynq.Client) *Service {
	return &Service{
		store:   store,
		proj:    proj,
		backend: backend,
		gh:      gh,
		queue:   queue,
	}
}

// List serves from the cache projection when warm and falls back to the
// metadata store on a cold cache.
func (s *Service) List(ctx context.Context) ([]model.Episode, error) {
	episodes, err := s.proj.ReadAll(ctx)
	if err == nil && len(episodes) > 0 {
		return episodes, nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("Cache list read failed, falling back to store")
	}
	return s.store.All(ctx)
}

func (s *Service) Get(ctx context.Context, id int) (model.Episode, error) {
	return s.store.Find(ctx, id)
}

func (s *Service) FindByFilename(ctx context.Context, filename string) (model.Episode, error) {
	return s.store.FindByFilename(ctx, filename)
}

// Create stores the audio bytes durably first, then queues the ordered
// chain that appends the record to the canonical store and rebuilds the
// cache. The id is assigned inside the append job, against the cache
// snapshot at execution time.
func (s *Service) Create(ctx context.Context, req model.CreateEpisodeRequest, upload Upload) (model.Episode, error) {
	filename := s.backend.UploadFilename(upload.Filename)

	fileURL, disk, err := s.backend.StoreAudio(ctx, filename, upload.Reader, upload.Size, upload.ContentType)
	if err != nil {
		return model.Episode{}, err
	}

	now := time.Now().Format(model.TimeLayout)
	ep := model.Episode{
		Title:         req.Title,
		Description:   req.Description,
		Filename:      filename,
		URL:           fileURL,
		StorageDisk:   disk,
		FileSize:      model.FormatFileSize(upload.Size),
		Format:        formatFromFilename(upload.Filename),
		PublishedDate: req.PublishedDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Duration != nil {
		ep.Duration = *req.Duration
	}

	if err := s.enqueue(ctx, model.TypeAppendEpisode, model.AppendEpisodePayload{Episode: ep}); err != nil {
		// The synchronous path failed after the bytes landed; clean
		// them up so a retried upload does not strand files.
		s.backend.DeleteByURL(ctx, fileURL)
		return model.Episode{}, fmt.Errorf("queue episode creation: %w", err)
	}

	log.Info().Str("filename", filename).Str("disk", disk).Msg("Episode creation queued")
	return ep, nil
}

// Update merges the edit synchronously into the metadata store, pushes
// the merged record to the canonical store when configured, then queues
// a cache rebuild. An unknown id aborts before any remote state is
// touched.
func (s *Service) Update(ctx context.Context, id int, req model.UpdateEpisodeRequest, upload *Upload) (model.Episode, error) {
	current, err := s.store.Find(ctx, id)
	if err != nil {
		return model.Episode{}, err
	}

	upd := model.EpisodeUpdate{
		Title:         &req.Title,
		Description:   &req.Description,
		PublishedDate: &req.PublishedDate,
		Duration:      req.Duration,
	}

	if upload != nil {
		filename := s.backend.UploadFilename(upload.Filename)
		fileURL, disk, err := s.backend.StoreAudio(ctx, filename, upload.Reader, upload.Size, upload.ContentType)
		if err != nil {
			return model.Episode{}, err
		}
		// Old bytes go only after the new ones are confirmed stored.
		s.backend.DeleteByURL(ctx, current.URL)

		size := model.FormatFileSize(upload.Size)
		format := formatFromFilename(upload.Filename)
		upd.Filename = &filename
		upd.URL = &fileURL
		upd.StorageDisk = &disk
		upd.FileSize = &size
		upd.Format = &format
	}

	updated, err := s.store.Update(ctx, id, upd)
	if err != nil {
		return model.Episode{}, err
	}

	if s.gh.Enabled() {
		if err := s.gh.UpsertEpisodeFile(ctx, id, updated); err != nil {
			log.Error().Err(err).Int("episode_id", id).Msg("Synchronous remote upsert failed")
		}
		if err := s.enqueue(ctx, model.TypeSyncCache, model.SyncCachePayload{}); err != nil {
			log.Error().Err(err).Msg("Failed to queue cache resync after update")
		}
	}

	return updated, nil
}

// Delete removes the audio bytes and local record, drops the episode
// from the cache immediately so readers stop seeing it, and queues the
// remote delete chain.
func (s *Service) Delete(ctx context.Context, id int) error {
	current, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}

	s.backend.DeleteByURL(ctx, current.URL)

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	if s.gh.Enabled() {
		if err := s.enqueue(ctx, model.TypeDeleteRemote, model.DeleteRemotePayload{EpisodeID: id}); err != nil {
			log.Error().Err(err).Int("episode_id", id).Msg("Failed to queue remote episode delete")
		}
	}

	log.Info().Int("episode_id", id).Msg("Episode deleted")
	return nil
}

// EnqueueResync queues a full cache rebuild from the canonical store.
func (s *Service) EnqueueResync(ctx context.Context) error {
	return s.enqueue(ctx, model.TypeSyncCache, model.SyncCachePayload{})
}

func (s *Service) enqueue(ctx context.Context, taskType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := asynq.NewTask(taskType, raw)
	_, err = s.queue.EnqueueContext(ctx, task, asynq.Queue(model.QueueEpisodes), asynq.MaxRetry(2))
	return err
}

func formatFromFilename(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return strings.ToUpper(ext)
}
