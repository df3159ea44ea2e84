package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meetscribe/backend/pkg/queue"
)

// Worker consumes processing jobs from the queue and drives the pipeline.
type Worker struct {
	processor *Processor
	queue     *queue.Queue
	logger    *zap.Logger
}

// NewWorker creates a queue worker.
func NewWorker(p *Processor, q *queue.Queue, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{processor: p, queue: q, logger: logger}
}

// Run dequeues jobs until ctx is done. A job whose processing fails is pushed
// to the DLQ, never re-enqueued: by the time Process returns an error the
// record is already terminal and the retry budget is spent.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("pipeline worker stopping")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("pipeline worker stopping")
				return
			}
			w.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.PollBackoff)
			continue
		}
		if job == nil {
			continue
		}

		w.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := w.handle(ctx, job); err != nil {
			w.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if dlqErr := w.queue.Fail(ctx, job); dlqErr != nil {
				w.logger.Error("dlq enqueue failed", zap.Error(dlqErr))
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeProcessRecording {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ProcessRecordingPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return w.processor.Process(ctx, payload.RecordingID, nil)
}
