// Package pipeline drives an uploaded recording through transcription and
// summarization to a terminal status, persisting each transition.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/models"
)

// Repository is the subset of recording persistence the pipeline needs.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	MarkProcessed(ctx context.Context, id uuid.UUID, transcript, summary string, processedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, processedAt time.Time) error
}

// BlobStore fetches stored recording bytes.
type BlobStore interface {
	DownloadRecording(ctx context.Context, key string) ([]byte, error)
}

// Transcriber converts raw audio/video bytes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, data []byte) (string, error)
}

// Summarizer condenses a transcript into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Notifier announces that a recording reached a terminal state. Optional.
type Notifier interface {
	RecordingFinished(ctx context.Context, rec *models.Recording) error
}

// Config bounds the retry policy: MaxAttempts total attempts with a fixed
// RetryDelay between them. A failed attempt re-runs fetch, transcription and
// summarization from scratch; nothing is checkpointed.
type Config struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// Processor is the per-recording state machine:
// uploaded -> processing -> processed | failed.
type Processor struct {
	repo        Repository
	blobs       BlobStore
	transcriber Transcriber
	summarizer  Summarizer
	notifier    Notifier
	cfg         Config
	logger      *zap.Logger
}

// NewProcessor creates a recording processor.
func NewProcessor(repo Repository, blobs BlobStore, t Transcriber, s Summarizer, cfg Config, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Processor{repo: repo, blobs: blobs, transcriber: t, summarizer: s, cfg: cfg, logger: logger}
}

// SetNotifier sets the optional terminal-state notifier.
func (p *Processor) SetNotifier(n Notifier) { p.notifier = n }

// Process drives one recording to a terminal state. data may carry the uploaded
// bytes when the caller still has them in hand; when nil the blob is fetched
// from storage. Recordings already in a terminal state are skipped untouched.
//
// Processing failures are persisted as status=failed and still returned so the
// caller can log or dead-letter the job; they are never retried again here.
func (p *Processor) Process(ctx context.Context, id uuid.UUID, data []byte) error {
	rec, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load recording %s: %w", id, err)
	}
	if rec.Terminal() {
		p.logger.Info("recording already in terminal state, skipping",
			zap.String("recording_id", id.String()), zap.String("status", rec.Status))
		return nil
	}

	if err := p.repo.UpdateStatus(ctx, id, models.RecordingStatusProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	var transcript, summary string
	attempt := func() error {
		raw := data
		if raw == nil {
			var err error
			raw, err = p.blobs.DownloadRecording(ctx, rec.StoragePath)
			if err != nil {
				return fmt.Errorf("fetch blob %s: %w", rec.StoragePath, err)
			}
		}

		text, err := p.transcriber.Transcribe(ctx, path.Base(rec.StoragePath), raw)
		if err != nil {
			return fmt.Errorf("transcribe: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return errors.New("transcription returned empty text")
		}

		sum, err := p.summarizer.Summarize(ctx, text)
		if err != nil {
			return fmt.Errorf("summarize: %w", err)
		}
		if strings.TrimSpace(sum) == "" {
			return errors.New("summarization returned empty text")
		}

		// status, processed_at, transcript and summary change together.
		now := time.Now().UTC()
		if err := p.repo.MarkProcessed(ctx, id, text, sum, now); err != nil {
			return fmt.Errorf("persist result: %w", err)
		}
		transcript, summary = text, sum
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.cfg.RetryDelay), uint64(p.cfg.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		now := time.Now().UTC()
		if failErr := p.repo.MarkFailed(ctx, id, now); failErr != nil {
			// Recording the failure must never crash the host process.
			p.logger.Error("persist failed status", zap.Error(failErr), zap.String("recording_id", id.String()))
		}
		p.logger.Error("processing failed", zap.Error(err),
			zap.String("recording_id", id.String()), zap.Int("max_attempts", p.cfg.MaxAttempts))
		rec.Status = models.RecordingStatusFailed
		rec.ProcessedAt = &now
		p.notify(ctx, rec)
		return err
	}

	now := time.Now().UTC()
	rec.Status = models.RecordingStatusProcessed
	rec.ProcessedAt = &now
	rec.Transcript = &transcript
	rec.Summary = &summary
	p.notify(ctx, rec)

	p.logger.Info("recording processed",
		zap.String("recording_id", id.String()),
		zap.Int("transcript_len", len(transcript)),
		zap.Int("summary_len", len(summary)))
	return nil
}

func (p *Processor) notify(ctx context.Context, rec *models.Recording) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.RecordingFinished(ctx, rec); err != nil {
		p.logger.Warn("notify failed", zap.Error(err), zap.String("recording_id", rec.ID.String()))
	}
}
