package pipeline

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/pkg/queue"
)

// Scheduler hands a recording to the pipeline without blocking the caller.
type Scheduler interface {
	Schedule(ctx context.Context, recordingID uuid.UUID, data []byte) error
}

// QueueScheduler schedules through the Redis job queue. The raw bytes do not
// cross the queue; the worker re-fetches them from the blob store.
type QueueScheduler struct {
	q *queue.Queue
}

// NewQueueScheduler creates a queue-backed scheduler.
func NewQueueScheduler(q *queue.Queue) *QueueScheduler {
	return &QueueScheduler{q: q}
}

func (s *QueueScheduler) Schedule(ctx context.Context, recordingID uuid.UUID, _ []byte) error {
	return s.q.EnqueueProcessRecording(ctx, recordingID)
}

// GoScheduler runs the processor on a detached goroutine, passing the uploaded
// bytes straight through so the blob is not fetched twice. Used when Redis is
// not configured.
type GoScheduler struct {
	processor *Processor
	logger    *zap.Logger
}

// NewGoScheduler creates an in-process scheduler.
func NewGoScheduler(p *Processor, logger *zap.Logger) *GoScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoScheduler{processor: p, logger: logger}
}

// Schedule spawns the pipeline and returns immediately. The spawned run is
// detached from the request context on purpose: the upload response must not
// wait for, or be cancelled with, processing.
func (s *GoScheduler) Schedule(_ context.Context, recordingID uuid.UUID, data []byte) error {
	go func() {
		if err := s.processor.Process(context.Background(), recordingID, data); err != nil {
			s.logger.Error("background processing failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		}
	}()
	return nil
}
