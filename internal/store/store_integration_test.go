//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/andrei-git-tower/last-word/internal/insight"
	"github.com/andrei-git-tower/last-word/internal/notify"
	"github.com/andrei-git-tower/last-word/internal/tenant"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func setupTestAccount(t *testing.T, s *Store) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	accessKey := "integration-test-" + id.String()[:8]

	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, name, access_key) VALUES ($1, 'integration test', $2)`,
		id, accessKey,
	)
	if err != nil {
		t.Fatalf("failed to insert account: %v", err)
	}
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM accounts WHERE id = $1", id)
	})

	got, err := s.AccountIDByKey(ctx, accessKey)
	if err != nil {
		t.Fatalf("AccountIDByKey failed: %v", err)
	}
	if got != id {
		t.Fatalf("expected account %s, got %s", id, got)
	}
	return id
}

func TestIntegration_TenantConfigRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	accountID := setupTestAccount(t, s)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenant_configs (account_id, product_description, competitors, plans, paths, min_exchanges, max_exchanges, brand_voice)
		VALUES ($1, 'a time tracker', '{"Harvest","Toggl"}', '{"Free","Pro"}',
		        '{"pause":{"enabled":true,"offer":"Pause for 3 months"}}', 2, 6, NULL)`,
		accountID,
	)
	if err != nil {
		t.Fatalf("failed to insert config: %v", err)
	}
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM tenant_configs WHERE account_id = $1", accountID)
	})

	cfg, err := s.TenantConfig(ctx, accountID)
	if err != nil {
		t.Fatalf("TenantConfig failed: %v", err)
	}
	if cfg.ProductDescription != "a time tracker" {
		t.Errorf("expected product description, got %q", cfg.ProductDescription)
	}
	if len(cfg.Competitors) != 2 || cfg.Competitors[0] != "Harvest" {
		t.Errorf("expected competitors array, got %v", cfg.Competitors)
	}
	if !cfg.Paths[tenant.PathPause].Enabled {
		t.Error("expected pause path enabled from jsonb")
	}
	if cfg.Paths[tenant.PathPause].Offer != "Pause for 3 months" {
		t.Errorf("expected offer copy, got %q", cfg.Paths[tenant.PathPause].Offer)
	}
	// NULL brand_voice comes back as the empty string, never a scan error.
	if cfg.BrandVoice != "" {
		t.Errorf("expected empty brand voice, got %q", cfg.BrandVoice)
	}

	_, err = s.TenantConfig(ctx, uuid.New())
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound for absent config, got %v", err)
	}
}

func TestIntegration_RulesOrderedByPriority(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	accountID := setupTestAccount(t, s)

	for _, r := range []struct {
		priority int
		text     string
	}{
		{20, "second"},
		{10, "first"},
	} {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO rules (id, account_id, priority, logic, conditions, prompt_text)
			VALUES ($1, $2, $3, 'AND', '[{"variable":"plan","operator":"==","value":"pro"}]', $4)`,
			uuid.New(), accountID, r.priority, r.text,
		)
		if err != nil {
			t.Fatalf("failed to insert rule: %v", err)
		}
	}
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM rules WHERE account_id = $1", accountID)
	})

	got, err := s.Rules(ctx, accountID)
	if err != nil {
		t.Fatalf("Rules failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(got))
	}
	if got[0].PromptText != "first" || got[1].PromptText != "second" {
		t.Errorf("expected priority ascending order, got %q then %q", got[0].PromptText, got[1].PromptText)
	}
	if len(got[0].Conditions) != 1 || got[0].Conditions[0].Variable != "plan" {
		t.Errorf("expected parsed conditions, got %+v", got[0].Conditions)
	}
}

func TestIntegration_InsightPartialThenFinalizeInPlace(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	accountID := setupTestAccount(t, s)

	seats := 12
	uc := &insight.UserContext{Plan: "pro", Seats: &seats}
	partialID, err := s.CreateInsight(ctx, accountID, uc)
	if err != nil {
		t.Fatalf("CreateInsight failed: %v", err)
	}
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM insights WHERE account_id = $1", accountID)
	})

	var status string
	if err := s.pool.QueryRow(ctx, "SELECT status FROM insights WHERE id = $1", partialID).Scan(&status); err != nil {
		t.Fatalf("query partial failed: %v", err)
	}
	if status != "partial" {
		t.Errorf("expected status partial, got %q", status)
	}

	ins := insight.Normalize(insight.Insight{
		SurfaceReason: "too expensive",
		DeepReasons:   []string{"low usage"},
		Sentiment:     "negative",
		Category:      "pricing",
		RetentionPath: tenant.PathOffboard,
	}, "", "")
	transcript := []insight.Message{
		{Role: "user", Content: "too expensive"},
		{Role: "assistant", Content: "thanks for sharing"},
	}

	finalID, err := s.FinalizeInsight(ctx, &partialID, accountID, ins, transcript, uc)
	if err != nil {
		t.Fatalf("FinalizeInsight failed: %v", err)
	}
	if finalID != partialID {
		t.Errorf("expected in-place finalize of %s, got %s", partialID, finalID)
	}

	var count int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM insights WHERE account_id = $1", accountID).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected a single row after in-place finalize, got %d", count)
	}

	var reason string
	var reasons []string
	if err := s.pool.QueryRow(ctx,
		"SELECT surface_reason, deep_reasons FROM insights WHERE id = $1", partialID,
	).Scan(&reason, &reasons); err != nil {
		t.Fatalf("query finalized failed: %v", err)
	}
	if reason != "too expensive" {
		t.Errorf("expected surface reason, got %q", reason)
	}
	if len(reasons) != 1 || reasons[0] != "low usage" {
		t.Errorf("expected deep reasons array, got %v", reasons)
	}

	// A nil id inserts a fresh completed row.
	freshID, err := s.FinalizeInsight(ctx, nil, accountID, ins, transcript, nil)
	if err != nil {
		t.Fatalf("FinalizeInsight fresh failed: %v", err)
	}
	if freshID == partialID {
		t.Error("expected a fresh id on nil-id finalize")
	}
}

func TestIntegration_RealtimeEndpointFilter(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	accountID := setupTestAccount(t, s)

	wantID := uuid.New()
	for _, ep := range []struct {
		id      uuid.UUID
		enabled bool
		mode    string
	}{
		{wantID, true, "realtime"},
		{uuid.New(), false, "realtime"},
		{uuid.New(), true, "digest"},
	} {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO notification_endpoints (id, account_id, provider, url, secret, enabled, delivery_mode)
			VALUES ($1, $2, 'webhook', 'https://example.test/hook', 'shh', $3, $4)`,
			ep.id, accountID, ep.enabled, ep.mode,
		)
		if err != nil {
			t.Fatalf("failed to insert endpoint: %v", err)
		}
	}
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM notification_endpoints WHERE account_id = $1", accountID)
	})

	got, err := s.RealtimeEndpoints(ctx, accountID)
	if err != nil {
		t.Fatalf("RealtimeEndpoints failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected only the enabled realtime endpoint, got %d", len(got))
	}
	if got[0].ID != wantID {
		t.Errorf("expected endpoint %s, got %s", wantID, got[0].ID)
	}
	if got[0].Secret != "shh" {
		t.Errorf("expected secret scanned, got %q", got[0].Secret)
	}
}

func TestIntegration_DeliveryAuditTrail(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	accountID := setupTestAccount(t, s)

	endpointID := uuid.New()
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO notification_endpoints (id, account_id, provider, url)
		VALUES ($1, $2, 'webhook', 'https://example.test/hook')`,
		endpointID, accountID,
	); err != nil {
		t.Fatalf("failed to insert endpoint: %v", err)
	}
	insightID, err := s.CreateInsight(ctx, accountID, nil)
	if err != nil {
		t.Fatalf("CreateInsight failed: %v", err)
	}
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM notification_deliveries WHERE endpoint_id = $1", endpointID)
		s.pool.Exec(ctx, "DELETE FROM notification_endpoints WHERE id = $1", endpointID)
		s.pool.Exec(ctx, "DELETE FROM insights WHERE id = $1", insightID)
	})

	deliveryID, err := s.CreateDelivery(ctx, notify.Delivery{
		EndpointID: endpointID,
		InsightID:  insightID,
		Status:     "skipped",
	})
	if err != nil {
		t.Fatalf("CreateDelivery failed: %v", err)
	}

	if err := s.UpdateDelivery(ctx, deliveryID, notify.Delivery{
		Status:     "success",
		HTTPStatus: 200,
		DurationMs: 42,
	}); err != nil {
		t.Fatalf("UpdateDelivery failed: %v", err)
	}

	var status string
	var httpStatus int
	if err := s.pool.QueryRow(ctx,
		"SELECT status, http_status FROM notification_deliveries WHERE id = $1", deliveryID,
	).Scan(&status, &httpStatus); err != nil {
		t.Fatalf("query delivery failed: %v", err)
	}
	if status != "success" || httpStatus != 200 {
		t.Errorf("expected success/200, got %s/%d", status, httpStatus)
	}
}
