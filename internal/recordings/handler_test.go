package recordings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/models"
)

type stubStore struct {
	created    *models.Recording
	createErr  error
	rec        *models.Recording
	getErr     error
	list       []models.Recording
	lastLimit  int
	lastOffset int
	deletedID  uuid.UUID
	deleteErr  error
}

func (s *stubStore) Create(ctx context.Context, rec *models.Recording) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = rec
	return nil
}

func (s *stubStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.rec, nil
}

func (s *stubStore) List(ctx context.Context, limit, offset int) ([]models.Recording, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	return s.list, nil
}

func (s *stubStore) Delete(ctx context.Context, id uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedID = id
	return nil
}

type blobUpload struct {
	key         string
	contentType string
	data        []byte
}

type stubBlobs struct {
	uploads    []blobUpload
	uploadErr  error
	deletedKey string
	deleteErr  error
	presignURL string
}

func (s *stubBlobs) UploadRecording(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploads = append(s.uploads, blobUpload{key: key, contentType: contentType, data: data})
	return key, nil
}

func (s *stubBlobs) DeleteRecording(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedKey = key
	return nil
}

func (s *stubBlobs) GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return s.presignURL, nil
}

func (s *stubBlobs) PresignExpire() time.Duration { return time.Hour }

type scheduledCall struct {
	id   uuid.UUID
	data []byte
}

type stubScheduler struct {
	calls []scheduledCall
	err   error
}

func (s *stubScheduler) Schedule(ctx context.Context, recordingID uuid.UUID, data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, scheduledCall{id: recordingID, data: data})
	return nil
}

func newTestRouter(store *stubStore, blobs *stubBlobs, sched *stubScheduler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, blobs, sched, nil)
	r := gin.New()
	r.POST("/recordings/upload", h.Upload)
	r.GET("/recordings", h.List)
	r.GET("/recordings/:id", h.GetByID)
	r.GET("/recordings/:id/download-url", h.GenerateDownloadURL)
	r.DELETE("/recordings/:id", h.Delete)
	return r
}

func newUploadRequest(t *testing.T, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/recordings/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestUploadSuccess(t *testing.T) {
	store := &stubStore{}
	blobs := &stubBlobs{}
	sched := &stubScheduler{}
	router := newTestRouter(store, blobs, sched)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newUploadRequest(t, "standup.mp3", "audio/mpeg", []byte("0123456789")))

	require.Equal(t, http.StatusAccepted, w.Code)
	env := decodeEnvelope(t, w)
	require.True(t, env.Success)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, models.RecordingStatusProcessing, resp.Status)

	// record inserted with status=uploaded before the pipeline is scheduled
	require.NotNil(t, store.created)
	assert.Equal(t, models.RecordingStatusUploaded, store.created.Status)
	assert.Equal(t, int64(10), store.created.FileSize)
	assert.Equal(t, "standup.mp3", store.created.Filename)
	assert.Equal(t, resp.RecordingID, store.created.ID)

	require.Len(t, blobs.uploads, 1)
	assert.Equal(t, "recordings/"+resp.RecordingID.String()+".mp3", blobs.uploads[0].key)
	assert.Equal(t, "audio/mpeg", blobs.uploads[0].contentType)
	assert.Equal(t, store.created.StoragePath, blobs.uploads[0].key)

	require.Len(t, sched.calls, 1)
	assert.Equal(t, resp.RecordingID, sched.calls[0].id)
	assert.Equal(t, []byte("0123456789"), sched.calls[0].data)
}

func TestUploadRejectsNonMediaContentType(t *testing.T) {
	store := &stubStore{}
	blobs := &stubBlobs{}
	sched := &stubScheduler{}
	router := newTestRouter(store, blobs, sched)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newUploadRequest(t, "notes.txt", "text/plain", []byte("hello")))

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	assert.Contains(t, env.Error, "audio or video")

	// no side effects at all
	assert.Nil(t, store.created)
	assert.Empty(t, blobs.uploads)
	assert.Empty(t, sched.calls)
}

func TestUploadMissingFile(t *testing.T) {
	router := newTestRouter(&stubStore{}, &stubBlobs{}, &stubScheduler{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/recordings/upload", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadBlobStoreFailure(t *testing.T) {
	store := &stubStore{}
	blobs := &stubBlobs{uploadErr: errors.New("bucket unavailable")}
	sched := &stubScheduler{}
	router := newTestRouter(store, blobs, sched)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newUploadRequest(t, "standup.mp3", "audio/mpeg", []byte("x")))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	// blob write precedes the insert, so nothing was persisted
	assert.Nil(t, store.created)
	assert.Empty(t, sched.calls)
}

func TestGetByIDNotFound(t *testing.T) {
	store := &stubStore{getErr: models.ErrNotFound}
	router := newTestRouter(store, &stubBlobs{}, &stubScheduler{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recordings/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetByIDSuccess(t *testing.T) {
	id := uuid.New()
	transcript := "hello"
	store := &stubStore{rec: &models.Recording{ID: id, Filename: "a.mp3", Status: models.RecordingStatusProcessed, Transcript: &transcript}}
	router := newTestRouter(store, &stubBlobs{}, &stubScheduler{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recordings/"+id.String(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	var rec models.Recording
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, id, rec.ID)
	require.NotNil(t, rec.Transcript)
	assert.Equal(t, "hello", *rec.Transcript)
}

func TestListPagination(t *testing.T) {
	store := &stubStore{list: []models.Recording{}}
	router := newTestRouter(store, &stubBlobs{}, &stubScheduler{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recordings", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, store.lastLimit)
	assert.Equal(t, 0, store.lastOffset)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recordings?limit=500&offset=20", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, store.lastLimit)
	assert.Equal(t, 20, store.lastOffset)
}

func TestDeleteProceedsWhenBlobMissing(t *testing.T) {
	id := uuid.New()
	store := &stubStore{rec: &models.Recording{ID: id, StoragePath: "recordings/" + id.String() + ".mp3"}}
	blobs := &stubBlobs{deleteErr: errors.New("no such key")}
	router := newTestRouter(store, blobs, &stubScheduler{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/recordings/"+id.String(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, store.deletedID)
}

func TestDeleteNotFound(t *testing.T) {
	store := &stubStore{getErr: models.ErrNotFound}
	router := newTestRouter(store, &stubBlobs{}, &stubScheduler{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/recordings/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateDownloadURL(t *testing.T) {
	id := uuid.New()
	store := &stubStore{rec: &models.Recording{ID: id, StoragePath: "recordings/" + id.String() + ".mp3"}}
	blobs := &stubBlobs{presignURL: "https://signed.example/recording"}
	router := newTestRouter(store, blobs, &stubScheduler{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recordings/"+id.String()+"/download-url", nil))

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "https://signed.example/recording", data["download_url"])
	assert.Equal(t, float64(3600), data["expires_in"])
}
