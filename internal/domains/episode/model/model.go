package model

import (
	"fmt"
	"math"
	"path"
	"strings"
	"time"
)

// Storage disk values recorded on an episode at upload time.
const (
	DiskLocal  = "local"
	DiskRemote = "remote"
)

const (
	// TimeLayout is the timestamp format used in episode JSON files.
	TimeLayout = "2006-01-02 15:04:05"
	// DateLayout is the published date format.
	DateLayout = "2006-01-02"
)

// Episode is one podcast audio item. The JSON shape is the wire format
// of the canonical per-episode files in the remote store, so field names
// must stay stable.
type Episode struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Filename    string  `json:"filename"`
	// URL is either an absolute http(s) URL, a "/episodes/..." path
	// (object storage, relative to the public media base) or an
	// "/audios/..." path (local public root).
	URL           string  `json:"url"`
	StorageDisk   string  `json:"storage_disk"`
	Duration      float64 `json:"duration_seconds,omitempty"`
	FileSize      string  `json:"file_size,omitempty"`
	Format        string  `json:"format,omitempty"`
	PublishedDate string  `json:"published_date,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
	UpdatedAt     string  `json:"updated_at,omitempty"`
}

// EpisodeUpdate carries a partial edit. Nil fields are left untouched by
// the merge, matching the non-destructive field-level update semantics of
// the metadata store.
type EpisodeUpdate struct {
	Title         *string
	Description   *string
	Filename      *string
	URL           *string
	StorageDisk   *string
	Duration      *float64
	FileSize      *string
	Format        *string
	PublishedDate *string
}

// ApplyTo merges the non-nil fields into e and stamps updated_at.
func (u EpisodeUpdate) ApplyTo(e *Episode) {
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Filename != nil {
		e.Filename = *u.Filename
	}
	if u.URL != nil {
		e.URL = *u.URL
	}
	if u.StorageDisk != nil {
		e.StorageDisk = *u.StorageDisk
	}
	if u.Duration != nil {
		e.Duration = *u.Duration
	}
	if u.FileSize != nil {
		e.FileSize = *u.FileSize
	}
	if u.Format != nil {
		e.Format = *u.Format
	}
	if u.PublishedDate != nil {
		e.PublishedDate = *u.PublishedDate
	}
	e.UpdatedAt = time.Now().Format(TimeLayout)
}

// DisplayDuration renders the canonical duration in seconds as
// "MM:SS", or "H:MM:SS" past the hour mark.
func (e *Episode) DisplayDuration() string {
	total := int(math.Round(e.Duration))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatFileSize renders a byte count as a human string, e.g. "4.8 MB".
// 1024-based with two-decimal rounding; this exact format is already
// baked into existing records in the canonical store, so it cannot
// change without rewriting them.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	base := math.Log(float64(bytes)) / math.Log(1024)
	idx := int(math.Floor(base))
	if idx >= len(units) {
		idx = len(units) - 1
	}

	size := math.Round(math.Pow(1024, base-float64(idx))*100) / 100
	return fmt.Sprintf("%g %s", size, units[idx])
}

// SanitizeFilename strips any path segments from a client-supplied
// filename, treating backslashes as separators too since uploads may
// come from Windows clients. Every boundary crossing goes through this.
func SanitizeFilename(name string) string {
	return path.Base(strings.ReplaceAll(name, "\\", "/"))
}
