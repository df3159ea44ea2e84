package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/models"
)

// gatedTranscriber blocks inside Transcribe until release is closed, so the
// test controls when background processing may finish.
type gatedTranscriber struct {
	release  chan struct{}
	lastData []byte
	lastCtx  context.Context
}

func (g *gatedTranscriber) Transcribe(ctx context.Context, filename string, data []byte) (string, error) {
	g.lastData = data
	g.lastCtx = ctx
	<-g.release
	return "hello", nil
}

type signalNotifier struct {
	finished chan *models.Recording
}

func (s *signalNotifier) RecordingFinished(ctx context.Context, rec *models.Recording) error {
	s.finished <- rec
	return nil
}

func TestGoSchedulerRunsDetachedWithBytesInHand(t *testing.T) {
	id := uuid.New()
	repo := &stubRepo{rec: uploadedRecording(id)}
	blobs := &stubBlobs{err: errors.New("should not be called")}
	tr := &gatedTranscriber{release: make(chan struct{})}
	sum := &stubSummarizer{text: "summary"}
	notifier := &signalNotifier{finished: make(chan *models.Recording, 1)}

	p := NewProcessor(repo, blobs, tr, sum, testConfig(), nil)
	p.SetNotifier(notifier)
	s := NewGoScheduler(p, nil)

	reqCtx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Schedule(reqCtx, id, []byte("in-hand")))

	// Schedule returned while the transcriber is still gated: the upload
	// response never waits for processing. Cancelling the request context
	// before releasing the gate must not cancel the spawned run.
	cancel()
	close(tr.release)

	select {
	case rec := <-notifier.finished:
		assert.Equal(t, models.RecordingStatusProcessed, rec.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("background processing did not finish")
	}

	assert.NoError(t, tr.lastCtx.Err())
	assert.Equal(t, []byte("in-hand"), tr.lastData)
	assert.Equal(t, 0, blobs.fetches)
	require.NotNil(t, repo.processed)
	assert.Equal(t, "hello", repo.processed.transcript)
}
