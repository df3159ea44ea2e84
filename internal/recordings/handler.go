package recordings

import (
	"context"
	"errors"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/internal/pipeline"
	"github.com/meetscribe/backend/pkg/response"
	"github.com/meetscribe/backend/pkg/storage"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// Store is the recording persistence the handlers need. *Repository implements it.
type Store interface {
	Create(ctx context.Context, rec *models.Recording) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error)
	List(ctx context.Context, limit, offset int) ([]models.Recording, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BlobStore is the blob storage the handlers need. *storage.S3 implements it.
type BlobStore interface {
	UploadRecording(ctx context.Context, key, contentType string, data []byte) (string, error)
	DeleteRecording(ctx context.Context, key string) error
	GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error)
	PresignExpire() time.Duration
}

// UploadResponse is the acknowledgment for POST /recordings/upload. Processing
// continues in the background after this is sent.
type UploadResponse struct {
	RecordingID uuid.UUID `json:"recording_id"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
}

// Handler handles recording HTTP endpoints.
type Handler struct {
	store     Store
	blobs     BlobStore
	scheduler pipeline.Scheduler
	logger    *zap.Logger
}

// NewHandler creates a recordings handler.
func NewHandler(store Store, blobs BlobStore, scheduler pipeline.Scheduler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, blobs: blobs, scheduler: scheduler, logger: logger}
}

// Upload handles POST /recordings/upload (multipart field "file").
// Side-effect order: blob store write, metadata insert, schedule pipeline,
// respond. The response does not wait for processing.
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.IsMediaContentType(contentType) {
		response.BadRequest(c, models.ErrUnsupportedMedia.Error())
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "failed to read file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.BadRequest(c, "failed to read file")
		return
	}

	id := uuid.New()
	key := storage.RecordingKey(id.String(), fileHeader.Filename)

	storagePath, err := h.blobs.UploadRecording(c.Request.Context(), key, contentType, data)
	if err != nil {
		h.logger.Error("blob upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to store recording")
		return
	}

	filename := fileHeader.Filename
	if filename == "" {
		filename = "recording" + path.Ext(key)
	}
	rec := &models.Recording{
		ID:          id,
		Filename:    filename,
		StoragePath: storagePath,
		FileSize:    int64(len(data)),
		Status:      models.RecordingStatusUploaded,
		UploadTime:  time.Now().UTC(),
	}
	if err := h.store.Create(c.Request.Context(), rec); err != nil {
		if errors.Is(err, models.ErrConflict) {
			response.Conflict(c, "recording already exists")
			return
		}
		h.logger.Error("insert recording failed", zap.Error(err), zap.String("recording_id", id.String()))
		response.Internal(c, "failed to save recording metadata")
		return
	}

	if err := h.scheduler.Schedule(c.Request.Context(), id, data); err != nil {
		h.logger.Error("schedule processing failed", zap.Error(err), zap.String("recording_id", id.String()))
		response.Internal(c, "failed to queue recording for processing")
		return
	}

	h.logger.Info("recording uploaded",
		zap.String("recording_id", id.String()),
		zap.String("filename", filename),
		zap.Int64("file_size", rec.FileSize))
	response.Accepted(c, UploadResponse{
		RecordingID: id,
		Status:      models.RecordingStatusProcessing,
		Message:     "recording uploaded and queued for processing",
	})
}

// GetByID handles GET /recordings/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	rec, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "recording not found")
			return
		}
		h.logger.Error("get recording failed", zap.Error(err), zap.String("recording_id", id.String()))
		response.Internal(c, "failed to retrieve recording")
		return
	}
	response.OK(c, rec)
}

// List handles GET /recordings?limit&offset, newest first.
func (h *Handler) List(c *gin.Context) {
	limit := queryInt(c, "limit", defaultListLimit)
	offset := queryInt(c, "offset", 0)
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	list, err := h.store.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list recordings failed", zap.Error(err))
		response.Internal(c, "failed to retrieve recordings")
		return
	}
	response.OK(c, list)
}

// Delete handles DELETE /recordings/:id. The blob is removed first; a missing
// blob is logged and the record delete proceeds.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	rec, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "recording not found")
			return
		}
		h.logger.Error("get recording failed", zap.Error(err), zap.String("recording_id", id.String()))
		response.Internal(c, "failed to delete recording")
		return
	}

	if err := h.blobs.DeleteRecording(c.Request.Context(), rec.StoragePath); err != nil {
		h.logger.Warn("blob delete failed, deleting record anyway",
			zap.Error(err), zap.String("storage_path", rec.StoragePath))
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "recording not found")
			return
		}
		h.logger.Error("delete recording failed", zap.Error(err), zap.String("recording_id", id.String()))
		response.Internal(c, "failed to delete recording")
		return
	}
	response.OK(c, gin.H{"message": "recording deleted", "recording_id": id})
}

// GenerateDownloadURL handles GET /recordings/:id/download-url.
func (h *Handler) GenerateDownloadURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	rec, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "recording not found")
			return
		}
		h.logger.Error("get recording failed", zap.Error(err), zap.String("recording_id", id.String()))
		response.Internal(c, "failed to retrieve recording")
		return
	}

	expire := h.blobs.PresignExpire()
	url, err := h.blobs.GeneratePresignedDownloadURL(c.Request.Context(), rec.StoragePath, expire)
	if err != nil {
		h.logger.Error("presign download failed", zap.Error(err), zap.String("recording_id", id.String()))
		response.Internal(c, "failed to generate download URL")
		return
	}
	response.OK(c, gin.H{"download_url": url, "expires_in": int(expire.Seconds())})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
