package notify

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/andrei-git-tower/last-word/internal/insight"
)

const (
	maxResponseBody = 512
	maxConcurrent   = 4
)

// Store is the delivery-audit surface the dispatcher needs.
type Store interface {
	// RealtimeEndpoints returns the account's enabled endpoints with
	// realtime delivery mode, and no others.
	RealtimeEndpoints(ctx context.Context, accountID uuid.UUID) ([]Endpoint, error)
	CreateDelivery(ctx context.Context, d Delivery) (uuid.UUID, error)
	UpdateDelivery(ctx context.Context, id uuid.UUID, d Delivery) error
}

// Dispatcher fans a completed insight out to every enabled realtime endpoint.
// It runs detached from the conversation turn: failures are logged per
// endpoint, never retried, never surfaced to the caller.
type Dispatcher struct {
	store   Store
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewDispatcher(store Store, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// Dispatch sends the completed insight to each endpoint, writing an audit
// row before and after every network call.
func (d *Dispatcher) Dispatch(ctx context.Context, accountID, insightID uuid.UUID, ins insight.Insight) {
	endpoints, err := d.store.RealtimeEndpoints(ctx, accountID)
	if err != nil {
		d.logger.Error("failed to load notification endpoints", "account_id", accountID, "error", err)
		return
	}
	if len(endpoints) == 0 {
		return
	}

	g := &errgroup.Group{}
	g.SetLimit(maxConcurrent)
	for _, ep := range endpoints {
		ep := ep
		g.Go(func() error {
			d.deliver(ctx, ep, accountID, insightID, ins)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, ep Endpoint, accountID, insightID uuid.UUID, ins insight.Insight) {
	body, err := buildPayload(ep, accountID, insightID, ins)
	if err != nil {
		d.logger.Error("failed to build notification payload", "endpoint_id", ep.ID, "error", err)
		return
	}

	// The placeholder row goes in before the call so the audit trail
	// survives a crash mid-delivery.
	deliveryID, err := d.store.CreateDelivery(ctx, Delivery{
		EndpointID: ep.ID,
		InsightID:  insightID,
		Status:     "skipped",
	})
	if err != nil {
		d.logger.Error("failed to create delivery row", "endpoint_id", ep.ID, "error", err)
		return
	}

	outcome := d.post(ctx, ep, body)
	if err := d.store.UpdateDelivery(ctx, deliveryID, outcome); err != nil {
		d.logger.Error("failed to record delivery outcome", "delivery_id", deliveryID, "error", err)
	}

	if outcome.Status == "success" {
		d.logger.Info("notification delivered",
			"endpoint_id", ep.ID, "provider", ep.Provider, "http_status", outcome.HTTPStatus)
	} else {
		d.logger.Warn("notification delivery failed",
			"endpoint_id", ep.ID, "provider", ep.Provider, "error", outcome.Error)
	}
}

func (d *Dispatcher) post(ctx context.Context, ep Endpoint, body []byte) Delivery {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return Delivery{Status: "failed", Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if ep.Secret != "" {
		req.Header.Set("signature", sign(ep.Secret, body))
	} else if ep.AuthHeaderName != "" {
		req.Header.Set(ep.AuthHeaderName, ep.AuthHeaderValue)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return Delivery{
			Status:     "failed",
			DurationMs: time.Since(start).Milliseconds(),
			Error:      err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	out := Delivery{
		HTTPStatus:   resp.StatusCode,
		DurationMs:   time.Since(start).Milliseconds(),
		ResponseBody: string(respBody),
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		out.Status = "success"
	} else {
		out.Status = "failed"
		out.Error = resp.Status
	}
	return out
}
