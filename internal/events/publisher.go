package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects for insight lifecycle events. The dashboard subscribes to these
// for live updates; nothing in the engine depends on them being consumed.
const (
	SubjectInsightCreated   = "lastword.insight.created"
	SubjectInsightCompleted = "lastword.insight.completed"
)

// InsightEvent is the payload for both lifecycle subjects.
type InsightEvent struct {
	AccountID string    `json:"account_id"`
	InsightID string    `json:"insight_id"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes lifecycle events to NATS. A nil *Publisher is valid
// and publishes nothing, so the engine runs without a bus configured.
type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

// Publish sends an event; failures are logged, never propagated, because
// lifecycle events must not affect the conversation flow.
func (p *Publisher) Publish(subject string, evt InsightEvent) {
	if p == nil {
		return
	}
	evt.Timestamp = time.Now().UTC()
	payload, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("failed to marshal event", "subject", subject, "error", err)
		return
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.conn.Close()
}
