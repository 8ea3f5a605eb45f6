package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast-backend/internal/domains/episode/model"
	"podcast-backend/internal/domains/episode/service"
)

func newEpisodeRouter(t *testing.T, svc service.EpisodeService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewEpisodeHandler(svc)
	r := gin.New()
	api := r.Group("/api")
	{
		api.GET("/episodes", h.List)
		api.GET("/episodes/:id", h.Get)
		api.POST("/episodes", h.Create)
		api.PUT("/episodes/:id", h.Update)
		api.DELETE("/episodes/:id", h.Delete)
		api.POST("/episodes/sync", h.Sync)
	}
	return r
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestListEpisodes(t *testing.T) {
	svc := &stubEpisodeService{episodes: []model.Episode{
		{ID: 1, Title: "One", Filename: "one.mp3"},
		{ID: 2, Title: "Two", Filename: "two.mp3"},
	}}
	r := newEpisodeRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/episodes", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	envelope := decodeEnvelope(t, w)
	assert.JSONEq(t, `true`, string(envelope["success"]))

	var data model.EpisodeListResponse
	require.NoError(t, json.Unmarshal(envelope["data"], &data))
	assert.Equal(t, 2, data.Total)
	require.Len(t, data.Episodes, 2)
	assert.Equal(t, "One", data.Episodes[0].Title)
}

func TestGetEpisode(t *testing.T) {
	svc := &stubEpisodeService{episodes: []model.Episode{
		{ID: 7, Title: "Seven", Filename: "seven.mp3"},
	}}
	r := newEpisodeRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/episodes/7", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	envelope := decodeEnvelope(t, w)
	var ep model.Episode
	require.NoError(t, json.Unmarshal(envelope["data"], &ep))
	assert.Equal(t, "Seven", ep.Title)
}

func TestGetEpisodeNotFound(t *testing.T) {
	r := newEpisodeRouter(t, &stubEpisodeService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/episodes/99", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{
		"success": false,
		"error": {"code": "NOT_FOUND", "message": "Episode not found"}
	}`, w.Body.String())
}

func TestGetEpisodeInvalidID(t *testing.T) {
	r := newEpisodeRouter(t, &stubEpisodeService{})

	for _, id := range []string{"abc", "0", "-3"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/episodes/"+id, nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "id %q", id)
	}
}

func TestCreateEpisodeQueued(t *testing.T) {
	svc := &stubEpisodeService{}
	r := newEpisodeRouter(t, svc)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Fresh episode"))
	part, err := mw.CreateFormFile("audio_file", "fresh.mp3")
	require.NoError(t, err)
	_, err = part.Write([]byte("mp3-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/episodes", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "Episode creation queued")
}

func TestCreateEpisodeValidation(t *testing.T) {
	r := newEpisodeRouter(t, &stubEpisodeService{})

	// Missing title fails validation before the file is even looked at.
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("description", "No title"))
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/episodes", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_FAILED")
}

func TestCreateEpisodeMissingFile(t *testing.T) {
	r := newEpisodeRouter(t, &stubEpisodeService{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "No audio"))
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/episodes", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No audio file provided")
}

func TestCreateEpisodeRejectsExtension(t *testing.T) {
	r := newEpisodeRouter(t, &stubEpisodeService{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Wrong type"))
	part, err := mw.CreateFormFile("audio_file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("not audio"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/episodes", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "mp3, m4a or wav")
}

func TestDeleteEpisode(t *testing.T) {
	svc := &stubEpisodeService{episodes: []model.Episode{
		{ID: 3, Title: "Doomed", Filename: "doomed.mp3"},
	}}
	r := newEpisodeRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/episodes/3", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Episode deleted successfully")
}

func TestDeleteEpisodeNotFound(t *testing.T) {
	r := newEpisodeRouter(t, &stubEpisodeService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/episodes/3", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncQueued(t *testing.T) {
	r := newEpisodeRouter(t, &stubEpisodeService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/episodes/sync", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "Episodes sync queued")
}
