package notifications

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/models"
)

type stubTokens struct {
	tokens []string
	err    error
}

func (s stubTokens) ListTokens(ctx context.Context) ([]string, error) {
	return s.tokens, s.err
}

func TestRecordingFinishedSendsPush(t *testing.T) {
	var got []pushMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	n := NewExpoNotifier(stubTokens{tokens: []string{"ExponentPushToken[a]", "ExponentPushToken[b]"}}, srv.URL, nil)
	rec := &models.Recording{ID: uuid.New(), Filename: "standup.mp3", Status: models.RecordingStatusProcessed}
	require.NoError(t, n.RecordingFinished(context.Background(), rec))

	require.Len(t, got, 2)
	assert.Equal(t, "ExponentPushToken[a]", got[0].To)
	assert.Equal(t, "Recording ready", got[0].Title)
	assert.Equal(t, rec.ID.String(), got[0].Data["recording_id"])
}

func TestRecordingFinishedFailureTitle(t *testing.T) {
	var got []pushMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	n := NewExpoNotifier(stubTokens{tokens: []string{"ExponentPushToken[a]"}}, srv.URL, nil)
	rec := &models.Recording{ID: uuid.New(), Filename: "standup.mp3", Status: models.RecordingStatusFailed}
	require.NoError(t, n.RecordingFinished(context.Background(), rec))

	require.Len(t, got, 1)
	assert.Equal(t, "Recording failed", got[0].Title)
}

func TestRecordingFinishedNoDevices(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := NewExpoNotifier(stubTokens{}, srv.URL, nil)
	rec := &models.Recording{ID: uuid.New(), Status: models.RecordingStatusProcessed}
	require.NoError(t, n.RecordingFinished(context.Background(), rec))
	assert.False(t, called)
}
