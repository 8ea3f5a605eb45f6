package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"podcast-backend/internal/config"
	"podcast-backend/internal/domains/episode/model"
	"podcast-backend/internal/infrastructure/storage"
)

// URL prefixes that classify where an episode's bytes live. An absolute
// http(s) URL outranks both.
const (
	cloudPrefix = "/episodes/"
	localPrefix = "/audios/"
)

// StorageBackend decides where new audio bytes go and resolves an
// episode URL back to a serving location. The write-path decision is
// recorded on the episode as storage_disk, so reads never re-derive it
// from settings that may have changed since.
type StorageBackend struct {
	cfg   *config.Config
	minio *storage.MinIOStorage // nil when object storage is not configured
}

func NewStorageBackend(cfg *config.Config, minio *storage.MinIOStorage) *StorageBackend {
	return &StorageBackend{cfg: cfg, minio: minio}
}

// UploadFilename builds the stored name for an upload:
// <unix-timestamp>_<original-basename>. Collision avoidance only; two
// uploads of the same name within one second still collide.
func (b *StorageBackend) UploadFilename(original string) string {
	return fmt.Sprintf("%d_%s", time.Now().Unix(), model.SanitizeFilename(original))
}

// StoreAudio writes the audio bytes and returns the recorded URL plus
// the disk it landed on. Object storage is preferred whenever its
// required settings are present; otherwise bytes go to local disk.
func (b *StorageBackend) StoreAudio(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, string, error) {
	filename = model.SanitizeFilename(filename)

	if b.cfg.ObjectStorageReady() {
		if b.minio == nil {
			return "", "", model.ErrStorageNotConfigured
		}
		key := strings.TrimPrefix(cloudPrefix, "/") + filename
		if err := b.minio.Upload(ctx, key, r, size, contentType); err != nil {
			return "", "", fmt.Errorf("upload to object storage: %w", err)
		}
		return cloudPrefix + filename, model.DiskRemote, nil
	}

	dir := filepath.Join(b.cfg.Storage.PublicRoot, "audios")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create audio dir: %w", err)
	}

	dst, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", "", fmt.Errorf("create audio file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(dst.Name())
		return "", "", fmt.Errorf("write audio file: %w", err)
	}
	return localPrefix + filename, model.DiskLocal, nil
}

// ResolveExternalURL maps an episode URL to an absolute external URL, or
// reports that the location is not external. Classification order:
// absolute http(s) first, then the cloud objects prefix resolved against
// the configured public media base.
func (b *StorageBackend) ResolveExternalURL(episodeURL string) (string, bool) {
	if episodeURL == "" {
		return "", false
	}
	if strings.HasPrefix(episodeURL, "http") {
		return episodeURL, true
	}
	if strings.HasPrefix(episodeURL, cloudPrefix) || strings.HasPrefix(episodeURL, strings.TrimPrefix(cloudPrefix, "/")) {
		base := b.cfg.MinIO.PublicURL
		if base == "" {
			return "", false
		}
		return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(episodeURL, "/"), true
	}
	return "", false
}

// LocalFilePath maps an episode URL to a path under the public file
// root, or reports that the bytes are not local. A bare filename is
// resolved by basename only, so path traversal in stored data cannot
// escape the audio directory.
func (b *StorageBackend) LocalFilePath(episodeURL string) (string, bool) {
	if strings.HasPrefix(episodeURL, "http") || strings.HasPrefix(episodeURL, cloudPrefix) {
		return "", false
	}
	if strings.HasPrefix(episodeURL, localPrefix) {
		return filepath.Join(b.cfg.Storage.PublicRoot, filepath.FromSlash(strings.TrimPrefix(episodeURL, "/"))), true
	}
	return filepath.Join(b.cfg.Storage.PublicRoot, "audios", model.SanitizeFilename(episodeURL)), true
}

// DeleteByURL removes stored audio, mirroring the read-path
// classification to pick the right backend. Failures are logged, not
// returned: file deletion is best effort around metadata changes.
func (b *StorageBackend) DeleteByURL(ctx context.Context, episodeURL string) {
	if episodeURL == "" {
		return
	}

	isCloud := strings.HasPrefix(episodeURL, "http") || strings.HasPrefix(episodeURL, cloudPrefix)
	if isCloud {
		if b.minio == nil || !b.cfg.ObjectStorageReady() {
			log.Warn().Str("url", episodeURL).Msg("Object storage deletion skipped: not configured")
			return
		}
		key := strings.TrimPrefix(episodeURL, "/")
		if strings.HasPrefix(episodeURL, "http") {
			parsed, err := url.Parse(episodeURL)
			if err != nil {
				log.Warn().Err(err).Str("url", episodeURL).Msg("Cannot parse episode URL for deletion")
				return
			}
			key = strings.TrimPrefix(parsed.Path, "/")
		}
		if err := b.minio.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to delete object from storage")
		}
		return
	}

	path, ok := b.LocalFilePath(episodeURL)
	if !ok {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("Failed to delete local audio file")
	}
}
