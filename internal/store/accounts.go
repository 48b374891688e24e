package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountIDByKey resolves an opaque access key to the owning account.
// Returns ErrUnknownKey when no account matches.
func (s *Store) AccountIDByKey(ctx context.Context, accessKey string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM accounts WHERE access_key = $1`,
		accessKey,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrUnknownKey
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("lookup account: %w", err)
	}
	return id, nil
}
