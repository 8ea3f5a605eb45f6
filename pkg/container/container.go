package container

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"podcast-backend/internal/config"
	"podcast-backend/internal/domains/episode/handler"
	"podcast-backend/internal/domains/episode/repository"
	"podcast-backend/internal/domains/episode/service"
	infraCache "podcast-backend/internal/infrastructure/cache"
	"podcast-backend/internal/infrastructure/github"
	"podcast-backend/internal/infrastructure/storage"
	"podcast-backend/pkg/cache"
)

// Container is the root of the dependency graph. Every component is a
// singleton built once at startup; nothing reaches for ambient globals.
type Container struct {
	Config *config.Config

	// Infrastructure
	Cache       cache.Cache
	redis       *infraCache.RedisCache
	MinIO       *storage.MinIOStorage // nil when object storage unconfigured
	GitHub      *github.Client        // nil in local-only mode
	AsynqClient *asynq.Client

	// Episode domain
	Projection     *repository.Projection
	Store          *repository.Store
	StorageBackend *service.StorageBackend
	EpisodeService *service.Service

	// HTTP handlers
	EpisodeHandler *handler.EpisodeHandler
	StreamHandler  *handler.StreamHandler
}

func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	c := &Container{Config: cfg}

	c.redis = infraCache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	c.Cache = c.redis

	if cfg.ObjectStorageReady() {
		minioStorage, err := storage.NewMinIOStorage(cfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		c.MinIO = minioStorage
	} else {
		log.Warn().Msg("Object storage not configured; uploads go to local disk")
	}

	c.GitHub = github.NewFromConfig(cfg.GitHub)
	if !c.GitHub.Enabled() {
		log.Warn().Msg("Remote episode store not configured; running local-only")
	}

	c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	c.Projection = repository.NewProjection(c.Cache)
	c.Store = repository.NewStore(c.Projection, cfg.Storage.EpisodesDir)
	c.StorageBackend = service.NewStorageBackend(cfg, c.MinIO)
	c.EpisodeService = service.NewService(c.Store, c.Projection, c.StorageBackend, c.GitHub, c.AsynqClient)

	c.EpisodeHandler = handler.NewEpisodeHandler(c.EpisodeService)
	c.StreamHandler = handler.NewStreamHandler(c.EpisodeService, c.StorageBackend, cfg.App.BaseURL)

	return c, nil
}

// Cleanup releases long-lived connections.
func (c *Container) Cleanup() {
	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close asynq client")
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis client")
		}
	}
}
