package models

import (
	"time"

	"github.com/google/uuid"
)

// Device is a registered push-notification target (Expo push token).
type Device struct {
	ID        uuid.UUID `json:"id"`
	PushToken string    `json:"push_token"`
	Platform  string    `json:"platform,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
