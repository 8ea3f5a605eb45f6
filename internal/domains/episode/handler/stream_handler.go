package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"podcast-backend/internal/domains/episode/model"
	"podcast-backend/internal/domains/episode/service"
)

const streamChunkSize = 8 * 1024

var rangePattern = regexp.MustCompile(`bytes=(\d+)-(\d*)`)

var mimeTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
}

// StreamHandler serves audio bytes with HTTP range semantics, or
// redirects to the external location when the bytes live off-box.
type StreamHandler struct {
	svc     service.EpisodeService
	backend *service.StorageBackend
	baseURL string
}

func NewStreamHandler(svc service.EpisodeService, backend *service.StorageBackend, baseURL string) *StreamHandler {
	return &StreamHandler{svc: svc, backend: backend, baseURL: strings.TrimRight(baseURL, "/")}
}

// Stream handles GET /api/stream/:filename.
//
// Resolve the episode, classify its location, then either redirect
// (external), serve the whole file (no Range header) or serve the
// requested byte window (Range header). External redirects let the
// object-storage CDN answer range requests natively instead of proxying
// bytes through this process.
func (h *StreamHandler) Stream(c *gin.Context) {
	filename := model.SanitizeFilename(c.Param("filename"))

	ep, err := h.svc.FindByFilename(c.Request.Context(), filename)
	if errors.Is(err, model.ErrEpisodeNotFound) {
		c.String(http.StatusNotFound, "Episode not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("Episode lookup failed")
		c.String(http.StatusInternalServerError, "Failed to resolve episode")
		return
	}

	if external, ok := h.backend.ResolveExternalURL(ep.URL); ok {
		c.Redirect(http.StatusFound, external)
		return
	}

	audioPath, ok := h.backend.LocalFilePath(ep.URL)
	if !ok {
		c.String(http.StatusNotFound, "Audio file not found on local storage")
		return
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		c.String(http.StatusNotFound, "Audio file not found on local storage")
		return
	}
	fileSize := info.Size()
	mimeType := mimeTypeFor(filename)

	rangeHeader := c.GetHeader("Range")
	if rangeHeader == "" {
		h.serveFull(c, audioPath, fileSize, mimeType)
		return
	}
	h.serveRange(c, audioPath, fileSize, mimeType, rangeHeader)
}

// StreamInfo handles GET /api/episodes/:id/stream.
func (h *StreamHandler) StreamInfo(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Episode not found"})
		return
	}

	ep, err := h.svc.Get(c.Request.Context(), id)
	if errors.Is(err, model.ErrEpisodeNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Episode not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get episode"})
		return
	}

	c.JSON(http.StatusOK, model.StreamInfoResponse{
		Episode:       ep,
		StreamURL:     fmt.Sprintf("%s/api/stream/%s", h.baseURL, url.PathEscape(ep.Filename)),
		SupportsRange: true,
	})
}

func (h *StreamHandler) serveFull(c *gin.Context, path string, fileSize int64, mimeType string) {
	writeBaseHeaders(c, mimeType, fileSize)
	c.Status(http.StatusOK)
	streamWindow(c, path, 0, fileSize)
}

func (h *StreamHandler) serveRange(c *gin.Context, path string, fileSize int64, mimeType, rangeHeader string) {
	matches := rangePattern.FindStringSubmatch(rangeHeader)
	if matches == nil {
		c.String(http.StatusRequestedRangeNotSatisfiable, "Invalid range")
		return
	}

	start, _ := strconv.ParseInt(matches[1], 10, 64)
	end := fileSize - 1
	if matches[2] != "" {
		end, _ = strconv.ParseInt(matches[2], 10, 64)
	}

	if start >= fileSize || end >= fileSize || start > end {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
		c.String(http.StatusRequestedRangeNotSatisfiable, "Range not satisfiable")
		return
	}

	length := end - start + 1
	writeBaseHeaders(c, mimeType, length)
	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	c.Header("Access-Control-Allow-Headers", "Range")
	c.Status(http.StatusPartialContent)
	streamWindow(c, path, start, length)
}

func writeBaseHeaders(c *gin.Context, mimeType string, contentLength int64) {
	c.Header("Content-Type", mimeType)
	c.Header("Content-Length", strconv.FormatInt(contentLength, 10))
	c.Header("Accept-Ranges", "bytes")
	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("Access-Control-Allow-Origin", "*")
}

// streamWindow copies length bytes starting at offset to the response
// in bounded chunks, flushing after each so playback can start before
// the transfer finishes. A client disconnect stops the copy.
func streamWindow(c *gin.Context, path string, offset, length int64) {
	file, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to open audio file for streaming")
		return
	}
	defer file.Close()

	if offset > 0 {
		if _, err := file.Seek(offset, io.SeekStart); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to seek audio file")
			return
		}
	}

	buf := make([]byte, streamChunkSize)
	remaining := length
	ctx := c.Request.Context()

	for remaining > 0 {
		select {
		case <-ctx.Done():
			return
		default:
		}

		toRead := int64(streamChunkSize)
		if remaining < toRead {
			toRead = remaining
		}

		n, err := file.Read(buf[:toRead])
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				return
			}
			c.Writer.Flush()
			remaining -= int64(n)
		}
		if err != nil {
			return
		}
	}
}

func mimeTypeFor(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "audio/mpeg"
}
