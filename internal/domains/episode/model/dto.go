package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// CreateEpisodeRequest is the metadata part of the multipart upload
// form. The audio file itself is handled separately by the handler.
type CreateEpisodeRequest struct {
	Title         string   `form:"title"`
	Description   string   `form:"description"`
	PublishedDate string   `form:"published_date"`
	Duration      *float64 `form:"duration_seconds"`
}

func (r CreateEpisodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Description, validation.Length(0, 10000)),
		validation.Field(&r.PublishedDate, validation.Date(DateLayout)),
		validation.Field(&r.Duration, validation.Min(0.0)),
	)
}

// UpdateEpisodeRequest carries an edit; the audio file is optional and,
// when present, replaces the stored one.
type UpdateEpisodeRequest struct {
	Title         string   `form:"title"`
	Description   string   `form:"description"`
	PublishedDate string   `form:"published_date"`
	Duration      *float64 `form:"duration_seconds"`
}

func (r UpdateEpisodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Description, validation.Length(0, 10000)),
		validation.Field(&r.PublishedDate, validation.Date(DateLayout)),
		validation.Field(&r.Duration, validation.Min(0.0)),
	)
}

// EpisodeListResponse is the list endpoint envelope payload.
type EpisodeListResponse struct {
	Episodes []Episode `json:"episodes"`
	Total    int       `json:"total"`
}

// StreamInfoResponse is returned by the by-id stream lookup.
type StreamInfoResponse struct {
	Episode       Episode `json:"episode"`
	StreamURL     string  `json:"stream_url"`
	SupportsRange bool    `json:"supports_range"`
}
