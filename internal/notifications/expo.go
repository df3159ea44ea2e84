// Package notifications pushes recording status updates to registered devices
// via the Expo push service.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/models"
)

// DefaultPushURL is the Expo push endpoint.
const DefaultPushURL = "https://exp.host/--/api/v2/push/send"

// TokenSource lists registered push tokens.
type TokenSource interface {
	ListTokens(ctx context.Context) ([]string, error)
}

// pushMessage is one Expo push request entry.
type pushMessage struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// ExpoNotifier sends recording lifecycle pushes to every registered device.
type ExpoNotifier struct {
	tokens  TokenSource
	pushURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewExpoNotifier creates a notifier. pushURL empty uses DefaultPushURL.
func NewExpoNotifier(tokens TokenSource, pushURL string, logger *zap.Logger) *ExpoNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pushURL == "" {
		pushURL = DefaultPushURL
	}
	return &ExpoNotifier{
		tokens:  tokens,
		pushURL: pushURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// RecordingFinished pushes a notification to all registered devices when a
// recording reaches a terminal state. The recording id travels in the data
// payload so clients can deep-link to the detail screen.
func (n *ExpoNotifier) RecordingFinished(ctx context.Context, rec *models.Recording) error {
	tokens, err := n.tokens.ListTokens(ctx)
	if err != nil {
		return fmt.Errorf("list tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	title := "Recording ready"
	body := fmt.Sprintf("%s has been transcribed and summarized", rec.Filename)
	if rec.Status == models.RecordingStatusFailed {
		title = "Recording failed"
		body = fmt.Sprintf("Processing of %s failed", rec.Filename)
	}

	messages := make([]pushMessage, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, pushMessage{
			To:    token,
			Title: title,
			Body:  body,
			Data:  map[string]any{"recording_id": rec.ID.String(), "status": rec.Status},
		})
	}

	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal push messages: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.pushURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push status: %d", resp.StatusCode)
	}

	n.logger.Info("push sent", zap.String("recording_id", rec.ID.String()), zap.Int("devices", len(messages)))
	return nil
}
