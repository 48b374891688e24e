package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andrei-git-tower/last-word/internal/insight"
)

// buildPayload returns the raw body for an endpoint. Slack gets a flattened
// human-readable message; generic webhooks get the full structured event.
func buildPayload(ep Endpoint, accountID, insightID uuid.UUID, ins insight.Insight) ([]byte, error) {
	if ep.Provider == "slack" {
		return json.Marshal(map[string]string{"text": formatSlackMessage(ins)})
	}
	return json.Marshal(Event{
		Event:      EventInsightCompleted,
		AccountID:  accountID,
		InsightID:  insightID,
		Insight:    ins,
		OccurredAt: time.Now().UTC(),
	})
}

func formatSlackMessage(ins insight.Insight) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Exit interview completed:* %s\n", ins.Category)
	fmt.Fprintf(&sb, "*Reason:* %s\n", ins.SurfaceReason)
	if len(ins.DeepReasons) > 0 {
		fmt.Fprintf(&sb, "*Underneath it:* %s\n", strings.Join(ins.DeepReasons, "; "))
	}
	if ins.KeyQuote != "" {
		fmt.Fprintf(&sb, "> %s\n", ins.KeyQuote)
	}
	if ins.Competitor != "" {
		fmt.Fprintf(&sb, "*Lost to:* %s\n", ins.Competitor)
	}
	fmt.Fprintf(&sb, "*Sentiment:* %s | *Salvageable:* %v\n", ins.Sentiment, ins.Salvageable)
	fmt.Fprintf(&sb, "*Path:* %s (accepted: %v)", ins.RetentionPath, ins.RetentionAccepted)

	return sb.String()
}

// sign computes the hex HMAC-SHA256 of the raw body, formatted for the
// signature header.
func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
