package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/andrei-git-tower/last-word/internal/notify"
)

// RealtimeEndpoints returns the account's enabled endpoints with realtime
// delivery mode. Paused and digest-mode endpoints never reach the dispatcher.
func (s *Store) RealtimeEndpoints(ctx context.Context, accountID uuid.UUID) ([]notify.Endpoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, provider, url,
		       COALESCE(secret, ''), COALESCE(auth_header_name, ''), COALESCE(auth_header_value, ''),
		       enabled, delivery_mode
		FROM notification_endpoints
		WHERE account_id = $1 AND enabled = true AND delivery_mode = 'realtime'`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("load endpoints: %w", err)
	}
	defer rows.Close()

	var out []notify.Endpoint
	for rows.Next() {
		var ep notify.Endpoint
		if err := rows.Scan(
			&ep.ID, &ep.AccountID, &ep.Provider, &ep.URL,
			&ep.Secret, &ep.AuthHeaderName, &ep.AuthHeaderValue,
			&ep.Enabled, &ep.DeliveryMode,
		); err != nil {
			return nil, fmt.Errorf("scan endpoint: %w", err)
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// CreateDelivery writes the audit row for one dispatch attempt.
func (s *Store) CreateDelivery(ctx context.Context, d notify.Delivery) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_deliveries (id, endpoint_id, insight_id, status, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		id, d.EndpointID, d.InsightID, d.Status,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert delivery: %w", err)
	}
	return id, nil
}

// UpdateDelivery records the outcome of a dispatch attempt.
func (s *Store) UpdateDelivery(ctx context.Context, id uuid.UUID, d notify.Delivery) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notification_deliveries SET
			status = $2, http_status = $3, duration_ms = $4,
			error = $5, response_body = $6, updated_at = now()
		WHERE id = $1`,
		id, d.Status, d.HTTPStatus, d.DurationMs, nullable(d.Error), nullable(d.ResponseBody),
	)
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}
	return nil
}
