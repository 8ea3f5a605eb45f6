package service

import (
	"context"
	"io"

	"podcast-backend/internal/domains/episode/model"
)

// Upload is one incoming audio file.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// EpisodeService is the surface the HTTP handlers talk to.
type EpisodeService interface {
	List(ctx context.Context) ([]model.Episode, error)
	Get(ctx context.Context, id int) (model.Episode, error)
	FindByFilename(ctx context.Context, filename string) (model.Episode, error)
	Create(ctx context.Context, req model.CreateEpisodeRequest, upload Upload) (model.Episode, error)
	Update(ctx context.Context, id int, req model.UpdateEpisodeRequest, upload *Upload) (model.Episode, error)
	Delete(ctx context.Context, id int) error
	EnqueueResync(ctx context.Context) error
}
