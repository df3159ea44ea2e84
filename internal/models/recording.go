package models

import (
	"time"

	"github.com/google/uuid"
)

// Recording status lifecycle. Transitions only move forward:
// uploaded -> processing -> processed | failed.
const (
	RecordingStatusUploaded   = "uploaded"
	RecordingStatusProcessing = "processing"
	RecordingStatusProcessed  = "processed"
	RecordingStatusFailed     = "failed"
)

// Recording is one uploaded meeting recording plus its processing metadata.
// Transcript and Summary are set together, once, when processing succeeds;
// ProcessedAt is set exactly when the status is terminal.
type Recording struct {
	ID          uuid.UUID  `json:"id"`
	Filename    string     `json:"filename"`
	StoragePath string     `json:"storage_path"`
	FileSize    int64      `json:"file_size"`
	Status      string     `json:"status"`
	UploadTime  time.Time  `json:"upload_time"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Transcript  *string    `json:"transcript,omitempty"`
	Summary     *string    `json:"summary,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Terminal reports whether the recording has reached a final status.
func (r *Recording) Terminal() bool {
	return r.Status == RecordingStatusProcessed || r.Status == RecordingStatusFailed
}
