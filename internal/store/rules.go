package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/andrei-git-tower/last-word/internal/rules"
)

// Rules loads an account's targeting rules ordered by priority ascending.
func (s *Store) Rules(ctx context.Context, accountID uuid.UUID) ([]rules.Rule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT priority, logic, conditions, prompt_text
		FROM rules WHERE account_id = $1
		ORDER BY priority ASC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	defer rows.Close()

	var out []rules.Rule
	for rows.Next() {
		var (
			r              rules.Rule
			conditionsJSON []byte
		)
		if err := rows.Scan(&r.Priority, &r.Logic, &conditionsJSON, &r.PromptText); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		if len(conditionsJSON) > 0 {
			if err := json.Unmarshal(conditionsJSON, &r.Conditions); err != nil {
				return nil, fmt.Errorf("parse rule conditions: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
