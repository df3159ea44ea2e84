package notifications

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetscribe/backend/internal/models"
)

// DeviceRepository persists push-notification device tokens.
type DeviceRepository struct {
	pool *pgxpool.Pool
}

// NewDeviceRepository creates a device repository.
func NewDeviceRepository(pool *pgxpool.Pool) *DeviceRepository {
	return &DeviceRepository{pool: pool}
}

// Upsert registers a push token, updating the platform when it is already known.
func (r *DeviceRepository) Upsert(ctx context.Context, pushToken, platform string) (*models.Device, error) {
	const q = `INSERT INTO devices (id, push_token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (push_token) DO UPDATE SET platform = EXCLUDED.platform
		RETURNING id, push_token, platform, created_at`
	var d models.Device
	err := r.pool.QueryRow(ctx, q, uuid.New(), pushToken, platform).
		Scan(&d.ID, &d.PushToken, &d.Platform, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListTokens returns all registered push tokens.
func (r *DeviceRepository) ListTokens(ctx context.Context) ([]string, error) {
	const q = `SELECT push_token FROM devices ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
