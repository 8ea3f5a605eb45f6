package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"bytes", 512, "512 B"},
		{"kilobytes", 2048, "2 KB"},
		{"megabytes", 5033165, "4.8 MB"},
		{"gigabytes", 3 * 1024 * 1024 * 1024, "3 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFileSize(tt.bytes))
		})
	}
}

func TestDisplayDuration(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{"under a minute", 42, "0:42"},
		{"minutes", 125, "2:05"},
		{"over an hour", 3725, "1:02:05"},
		{"rounds fractions", 59.6, "1:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := Episode{Duration: tt.seconds}
			assert.Equal(t, tt.want, ep.DisplayDuration())
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a.mp3", SanitizeFilename("a.mp3"))
	assert.Equal(t, "a.mp3", SanitizeFilename("../../etc/a.mp3"))
	assert.Equal(t, "a.mp3", SanitizeFilename("/audios/a.mp3"))
	assert.Equal(t, "a.mp3", SanitizeFilename("..\\..\\a.mp3"))
}

func TestEpisodeUpdateMerge(t *testing.T) {
	ep := Episode{
		ID:          3,
		Title:       "Old title",
		Description: "Old description",
		Filename:    "old.mp3",
		URL:         "/audios/old.mp3",
	}

	title := "New title"
	upd := EpisodeUpdate{Title: &title}
	upd.ApplyTo(&ep)

	assert.Equal(t, "New title", ep.Title)
	assert.Equal(t, "Old description", ep.Description, "nil fields must not be touched")
	assert.Equal(t, "old.mp3", ep.Filename)
	assert.NotEmpty(t, ep.UpdatedAt)
}
