package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/andrei-git-tower/last-word/internal/engine"
	"github.com/andrei-git-tower/last-word/internal/insight"
	"github.com/andrei-git-tower/last-word/internal/provider"
	"github.com/andrei-git-tower/last-word/internal/rules"
	"github.com/andrei-git-tower/last-word/internal/store"
	"github.com/andrei-git-tower/last-word/internal/tenant"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type apiStore struct {
	accountID uuid.UUID
}

func (s *apiStore) AccountIDByKey(ctx context.Context, key string) (uuid.UUID, error) {
	if key != "valid-key" {
		return uuid.Nil, store.ErrUnknownKey
	}
	return s.accountID, nil
}

func (s *apiStore) TenantConfig(ctx context.Context, accountID uuid.UUID) (tenant.Config, error) {
	return tenant.Config{}, store.ErrNotFound
}

func (s *apiStore) Rules(ctx context.Context, accountID uuid.UUID) ([]rules.Rule, error) {
	return nil, nil
}

func (s *apiStore) CreateInsight(ctx context.Context, accountID uuid.UUID, uc *insight.UserContext) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (s *apiStore) FinalizeInsight(ctx context.Context, id *uuid.UUID, accountID uuid.UUID, ins insight.Insight, transcript []insight.Message, uc *insight.UserContext) (uuid.UUID, error) {
	if id != nil {
		return *id, nil
	}
	return uuid.New(), nil
}

type apiProvider struct {
	deltas    []string
	streamErr error
}

func (p *apiProvider) Stream(ctx context.Context, req provider.Request) (*provider.Stream, error) {
	if p.streamErr != nil {
		return nil, p.streamErr
	}
	return provider.StreamOf(p.deltas...), nil
}

func (p *apiProvider) Complete(ctx context.Context, req provider.Request) (string, error) {
	return strings.Join(p.deltas, ""), nil
}

type noopNotifier struct{}

func (noopNotifier) Dispatch(ctx context.Context, accountID, insightID uuid.UUID, ins insight.Insight) {
}

func testServer(p *apiProvider) *Server {
	eng := engine.New(&apiStore{accountID: uuid.New()}, p, noopNotifier{}, nil, discardLogger())
	return NewServer(0, eng, discardLogger())
}

func TestInterview_MissingKey(t *testing.T) {
	s := testServer(&apiProvider{})

	req := httptest.NewRequest(http.MethodPost, "/v1/interview", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestInterview_UnknownKey(t *testing.T) {
	s := testServer(&apiProvider{})

	req := httptest.NewRequest(http.MethodPost, "/v1/interview", strings.NewReader(`{}`))
	req.Header.Set(AccessKeyHeader, "wrong")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "authentication_error") {
		t.Errorf("expected typed auth error, got %s", rec.Body.String())
	}
}

func TestInterview_GreetingStream(t *testing.T) {
	s := testServer(&apiProvider{deltas: []string{"Hey, ", "sorry to see you go."}})

	// An empty message list requests the opening greeting.
	req := httptest.NewRequest(http.MethodPost, "/v1/interview", strings.NewReader(`{"messages":[]}`))
	req.Header.Set(AccessKeyHeader, "valid-key")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(InsightIDHeader) == "" {
		t.Error("expected insight id header on greeting")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected event-stream content type, got %q", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `data: {"delta":"Hey, "}`) {
		t.Errorf("expected delta event, got %s", body)
	}
	if !strings.HasSuffix(strings.TrimSpace(body), "data: [DONE]") {
		t.Errorf("expected terminating end marker, got %s", body)
	}
}

func TestInterview_ProviderDownIsTypedError(t *testing.T) {
	s := testServer(&apiProvider{streamErr: &provider.APIError{Status: 429, Type: "rate_limit_error"}})

	req := httptest.NewRequest(http.MethodPost, "/v1/interview",
		strings.NewReader(`{"messages":[{"role":"user","content":"too expensive"}]}`))
	req.Header.Set(AccessKeyHeader, "valid-key")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "provider_error") {
		t.Errorf("expected provider_error type, got %s", rec.Body.String())
	}
}

func TestInterview_BadBody(t *testing.T) {
	s := testServer(&apiProvider{})

	req := httptest.NewRequest(http.MethodPost, "/v1/interview", strings.NewReader(`{not json`))
	req.Header.Set(AccessKeyHeader, "valid-key")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s := testServer(&apiProvider{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
