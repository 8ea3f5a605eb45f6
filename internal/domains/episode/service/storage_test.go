package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast-backend/internal/config"
)

func newLocalBackend(t *testing.T) (*StorageBackend, string) {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{PublicRoot: root},
		MinIO:   config.MinIOConfig{PublicURL: "https://media.example.com"},
	}
	return NewStorageBackend(cfg, nil), root
}

func TestUploadFilenameFormat(t *testing.T) {
	backend, _ := newLocalBackend(t)

	name := backend.UploadFilename("My Episode.mp3")
	parts := strings.SplitN(name, "_", 2)
	require.Len(t, parts, 2)
	assert.Regexp(t, `^\d+$`, parts[0])
	assert.Equal(t, "My Episode.mp3", parts[1])

	// Path segments in the original name never reach the stored name.
	name = backend.UploadFilename("../../etc/passwd.mp3")
	assert.True(t, strings.HasSuffix(name, "_passwd.mp3"))
	assert.NotContains(t, name, "..")
}

func TestStoreAudioLocalDisk(t *testing.T) {
	ctx := context.Background()
	backend, root := newLocalBackend(t)

	url, disk, err := backend.StoreAudio(ctx, "1700000000_intro.mp3", strings.NewReader("audio-bytes"), 11, "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "/audios/1700000000_intro.mp3", url)
	assert.Equal(t, "local", disk)

	raw, err := os.ReadFile(filepath.Join(root, "audios", "1700000000_intro.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(raw))
}

func TestResolveExternalURL(t *testing.T) {
	backend, _ := newLocalBackend(t)

	tests := []struct {
		name     string
		url      string
		want     string
		external bool
	}{
		{"absolute https", "https://cdn.example.com/ep.mp3", "https://cdn.example.com/ep.mp3", true},
		{"absolute http", "http://cdn.example.com/ep.mp3", "http://cdn.example.com/ep.mp3", true},
		{"cloud prefix", "/episodes/intro.mp3", "https://media.example.com/episodes/intro.mp3", true},
		{"cloud prefix no slash", "episodes/intro.mp3", "https://media.example.com/episodes/intro.mp3", true},
		{"local prefix", "/audios/intro.mp3", "", false},
		{"bare filename", "intro.mp3", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := backend.ResolveExternalURL(tt.url)
			assert.Equal(t, tt.external, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveExternalURLNoPublicBase(t *testing.T) {
	backend, _ := newLocalBackend(t)
	backend.cfg.MinIO.PublicURL = ""

	_, ok := backend.ResolveExternalURL("/episodes/intro.mp3")
	assert.False(t, ok, "cloud URLs cannot be served without a public media base")
}

func TestLocalFilePath(t *testing.T) {
	backend, root := newLocalBackend(t)

	tests := []struct {
		name  string
		url   string
		want  string
		local bool
	}{
		{"local prefix", "/audios/intro.mp3", filepath.Join(root, "audios", "intro.mp3"), true},
		{"bare filename", "intro.mp3", filepath.Join(root, "audios", "intro.mp3"), true},
		{"bare with traversal", "../intro.mp3", filepath.Join(root, "audios", "intro.mp3"), true},
		{"cloud prefix", "/episodes/intro.mp3", "", false},
		{"absolute url", "https://cdn.example.com/ep.mp3", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := backend.LocalFilePath(tt.url)
			assert.Equal(t, tt.local, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeleteByURLLocal(t *testing.T) {
	ctx := context.Background()
	backend, root := newLocalBackend(t)

	dir := filepath.Join(root, "audios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	target := filepath.Join(dir, "gone.mp3")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	backend.DeleteByURL(ctx, "/audios/gone.mp3")

	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))

	// Deleting an already-missing file is silent.
	backend.DeleteByURL(ctx, "/audios/gone.mp3")
}
