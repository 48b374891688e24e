package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/andrei-git-tower/last-word/internal/insight"
)

// CreateInsight inserts a near-empty partial row so conversation context is
// durably captured even if the customer abandons mid-interview.
func (s *Store) CreateInsight(ctx context.Context, accountID uuid.UUID, uc *insight.UserContext) (uuid.UUID, error) {
	ucJSON, err := marshalContext(uc)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO insights (id, account_id, status, user_context, created_at)
		VALUES ($1, $2, 'partial', $3, now())`,
		id, accountID, ucJSON,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert partial insight: %w", err)
	}
	return id, nil
}

// FinalizeInsight writes the completed insight. A known id updates the
// partial row in place; a nil id inserts fresh. Either way the full
// transcript travels with the row.
func (s *Store) FinalizeInsight(ctx context.Context, id *uuid.UUID, accountID uuid.UUID, ins insight.Insight, transcript []insight.Message, uc *insight.UserContext) (uuid.UUID, error) {
	transcriptJSON, err := json.Marshal(transcript)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal transcript: %w", err)
	}
	ucJSON, err := marshalContext(uc)
	if err != nil {
		return uuid.Nil, err
	}

	if id != nil {
		_, err = s.pool.Exec(ctx, `
			UPDATE insights SET
				status = 'completed',
				surface_reason = $2, deep_reasons = $3, sentiment = $4,
				salvageable = $5, key_quote = $6, category = $7,
				competitor = $8, feature_gaps = $9, usage_duration = $10,
				retention_path = $11, retention_accepted = $12,
				transcript = $13, user_context = $14,
				completed_at = now()
			WHERE id = $1 AND account_id = $15`,
			*id,
			ins.SurfaceReason, ins.DeepReasons, ins.Sentiment,
			ins.Salvageable, ins.KeyQuote, ins.Category,
			nullable(ins.Competitor), ins.FeatureGaps, nullable(ins.UsageDuration),
			string(ins.RetentionPath), ins.RetentionAccepted,
			transcriptJSON, ucJSON,
			accountID,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("finalize insight: %w", err)
		}
		return *id, nil
	}

	fresh := uuid.New()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO insights (
			id, account_id, status,
			surface_reason, deep_reasons, sentiment, salvageable,
			key_quote, category, competitor, feature_gaps, usage_duration,
			retention_path, retention_accepted, transcript, user_context,
			created_at, completed_at
		) VALUES ($1, $2, 'completed', $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())`,
		fresh, accountID,
		ins.SurfaceReason, ins.DeepReasons, ins.Sentiment, ins.Salvageable,
		ins.KeyQuote, ins.Category, nullable(ins.Competitor), ins.FeatureGaps,
		nullable(ins.UsageDuration), string(ins.RetentionPath), ins.RetentionAccepted,
		transcriptJSON, ucJSON,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert insight: %w", err)
	}
	return fresh, nil
}

func marshalContext(uc *insight.UserContext) ([]byte, error) {
	if uc == nil {
		return nil, nil
	}
	b, err := json.Marshal(uc)
	if err != nil {
		return nil, fmt.Errorf("marshal user context: %w", err)
	}
	return b, nil
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
