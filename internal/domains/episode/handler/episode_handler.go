package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"podcast-backend/internal/domains/episode/model"
	"podcast-backend/internal/domains/episode/service"
	"podcast-backend/internal/shared/response"
)

// maxUploadBytes caps audio uploads at 50 MiB.
const maxUploadBytes = 50 << 20

var allowedUploadExts = map[string]bool{
	".mp3": true,
	".m4a": true,
	".wav": true,
}

// EpisodeHandler exposes the episode CRUD API.
type EpisodeHandler struct {
	svc service.EpisodeService
}

func NewEpisodeHandler(svc service.EpisodeService) *EpisodeHandler {
	return &EpisodeHandler{svc: svc}
}

// List handles GET /api/episodes.
func (h *EpisodeHandler) List(c *gin.Context) {
	episodes, err := h.svc.List(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list episodes")
		response.InternalServerError(c, "Failed to list episodes")
		return
	}
	response.Success(c, http.StatusOK, model.EpisodeListResponse{
		Episodes: episodes,
		Total:    len(episodes),
	})
}

// Get handles GET /api/episodes/:id.
func (h *EpisodeHandler) Get(c *gin.Context) {
	id, ok := episodeID(c)
	if !ok {
		return
	}

	ep, err := h.svc.Get(c.Request.Context(), id)
	if errors.Is(err, model.ErrEpisodeNotFound) {
		response.NotFound(c, "Episode not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Int("episode_id", id).Msg("Failed to get episode")
		response.InternalServerError(c, "Failed to get episode")
		return
	}
	response.Success(c, http.StatusOK, ep)
}

// Create handles POST /api/episodes. The audio bytes are stored before
// the response; the metadata propagates through the queued sync chain,
// so success here means "queued", not "persisted everywhere".
func (h *EpisodeHandler) Create(c *gin.Context) {
	var req model.CreateEpisodeRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "Invalid form data")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Validation failed", err)
		return
	}

	fileHeader, err := c.FormFile("audio_file")
	if err != nil {
		response.BadRequest(c, "No audio file provided")
		return
	}
	upload, cleanup, ok := openUpload(c, fileHeader)
	if !ok {
		return
	}
	defer cleanup()

	ep, err := h.svc.Create(c.Request.Context(), req, upload)
	if err != nil {
		h.writeError(c, err, "Error creating episode")
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{
		"message": "Episode creation queued",
		"episode": ep,
	})
}

// Update handles PUT /api/episodes/:id. The audio file is optional;
// when present it replaces the stored one.
func (h *EpisodeHandler) Update(c *gin.Context) {
	id, ok := episodeID(c)
	if !ok {
		return
	}

	var req model.UpdateEpisodeRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "Invalid form data")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Validation failed", err)
		return
	}

	var upload *service.Upload
	if fileHeader, err := c.FormFile("audio_file"); err == nil {
		u, cleanup, ok := openUpload(c, fileHeader)
		if !ok {
			return
		}
		defer cleanup()
		upload = &u
	}

	ep, err := h.svc.Update(c.Request.Context(), id, req, upload)
	if err != nil {
		h.writeError(c, err, "Error updating episode")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Episode updated successfully",
		"episode": ep,
	})
}

// Delete handles DELETE /api/episodes/:id. The episode disappears from
// the cached list before the remote delete chain completes.
func (h *EpisodeHandler) Delete(c *gin.Context) {
	id, ok := episodeID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "Error deleting episode")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Episode deleted successfully",
	})
}

// Sync handles POST /api/episodes/sync: a manual full cache rebuild.
func (h *EpisodeHandler) Sync(c *gin.Context) {
	if err := h.svc.EnqueueResync(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to queue episode resync")
		response.InternalServerError(c, "Failed to queue episodes sync")
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{
		"message": "Episodes sync queued",
	})
}

func (h *EpisodeHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, model.ErrEpisodeNotFound):
		response.NotFound(c, "Episode not found")
	case errors.Is(err, model.ErrStorageNotConfigured):
		log.Error().Err(err).Msg("Object storage not ready for upload")
		response.UnprocessableEntity(c, "Cloud storage configuration is incomplete")
	default:
		log.Error().Err(err).Msg(fallback)
		response.InternalServerError(c, fallback)
	}
}

func episodeID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		response.BadRequest(c, "Invalid episode id")
		return 0, false
	}
	return id, true
}

func openUpload(c *gin.Context, fileHeader *multipart.FileHeader) (service.Upload, func(), bool) {
	if fileHeader.Size > maxUploadBytes {
		response.BadRequest(c, "Audio file exceeds the 50 MB limit")
		return service.Upload{}, nil, false
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedUploadExts[ext] {
		response.BadRequest(c, "Audio file must be mp3, m4a or wav")
		return service.Upload{}, nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "The audio file failed to upload")
		return service.Upload{}, nil, false
	}

	return service.Upload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Reader:      file,
	}, func() { file.Close() }, true
}
