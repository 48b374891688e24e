package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/andrei-git-tower/last-word/internal/insight"
)

// EventInsightCompleted is the only event type this engine dispatches.
const EventInsightCompleted = "insight.completed"

// Endpoint is one tenant-configured notification target.
type Endpoint struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	Provider        string // "webhook" or "slack"
	URL             string
	Secret          string // HMAC signing secret, optional
	AuthHeaderName  string // static auth header, optional
	AuthHeaderValue string
	Enabled         bool
	DeliveryMode    string // only "realtime" is dispatched
}

// Delivery is the audit row for one dispatch attempt. A row with status
// "skipped" is written before the network call so the trail survives a crash
// mid-call; the outcome overwrites it afterwards.
type Delivery struct {
	ID           uuid.UUID
	EndpointID   uuid.UUID
	InsightID    uuid.UUID
	Status       string // "success", "failed", "skipped"
	HTTPStatus   int
	DurationMs   int64
	Error        string
	ResponseBody string
}

// Event is the generic webhook payload carrying the full structured insight.
type Event struct {
	Event      string          `json:"event"`
	AccountID  uuid.UUID       `json:"account_id"`
	InsightID  uuid.UUID       `json:"insight_id"`
	Insight    insight.Insight `json:"insight"`
	OccurredAt time.Time       `json:"occurred_at"`
}
