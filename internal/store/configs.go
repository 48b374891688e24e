package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/andrei-git-tower/last-word/internal/tenant"
)

// TenantConfig loads an account's interview configuration as stored, without
// normalization. Returns ErrNotFound when the account has no config row; the
// resolver substitutes defaults in that case.
func (s *Store) TenantConfig(ctx context.Context, accountID uuid.UUID) (tenant.Config, error) {
	var (
		cfg       tenant.Config
		pathsJSON []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT product_description, competitors, plans, paths,
		       min_exchanges, max_exchanges, COALESCE(brand_voice, '')
		FROM tenant_configs WHERE account_id = $1`,
		accountID,
	).Scan(
		&cfg.ProductDescription, &cfg.Competitors, &cfg.Plans, &pathsJSON,
		&cfg.MinExchanges, &cfg.MaxExchanges, &cfg.BrandVoice,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return tenant.Config{}, ErrNotFound
	}
	if err != nil {
		return tenant.Config{}, fmt.Errorf("load tenant config: %w", err)
	}

	if len(pathsJSON) > 0 {
		if err := json.Unmarshal(pathsJSON, &cfg.Paths); err != nil {
			return tenant.Config{}, fmt.Errorf("parse retention paths: %w", err)
		}
	}
	return cfg, nil
}
