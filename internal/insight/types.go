package insight

import "github.com/andrei-git-tower/last-word/internal/tenant"

// Wire contract embedded in model output. The dashboard and the widget both
// key off these literals, so they must match the prompt's closing
// instructions byte for byte.
const (
	CompletionToken = "[INTERVIEW_COMPLETE]"
	BlockStart      = "<insight>"
	BlockEnd        = "</insight>"
)

// Message is one turn of the interview transcript.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// UserContext is the optional caller-supplied snapshot of who is cancelling.
// Numeric fields are pointers so an absent attribute is distinguishable from
// zero; rule evaluation depends on that.
type UserContext struct {
	Email      string   `json:"email,omitempty"`
	Plan       string   `json:"plan,omitempty"`
	AccountAge *int     `json:"account_age,omitempty"` // days
	Seats      *int     `json:"seats,omitempty"`
	MRR        *float64 `json:"mrr,omitempty"`
}

// Attr returns the named attribute and whether it is present. Used by rule
// condition evaluation, where absence always fails the condition.
func (u *UserContext) Attr(name string) (any, bool) {
	if u == nil {
		return nil, false
	}
	switch name {
	case "email":
		return u.Email, u.Email != ""
	case "plan":
		return u.Plan, u.Plan != ""
	case "account_age":
		if u.AccountAge == nil {
			return nil, false
		}
		return float64(*u.AccountAge), true
	case "seats":
		if u.Seats == nil {
			return nil, false
		}
		return float64(*u.Seats), true
	case "mrr":
		if u.MRR == nil {
			return nil, false
		}
		return *u.MRR, true
	}
	return nil, false
}

// Categories the model may assign to a conversation. "other" is the catch-all
// and the fallback when extraction fails.
var Categories = []string{
	"pricing", "missing_features", "competitor", "not_using", "bugs", "support", "other",
}

// Insight is the structured summary of one completed exit interview.
// Every field is non-null by contract: Normalize enforces that before any
// persistence or dispatch.
type Insight struct {
	SurfaceReason     string          `json:"surface_reason"`
	DeepReasons       []string        `json:"deep_reasons"`
	Sentiment         string          `json:"sentiment"`
	Salvageable       bool            `json:"salvageable"`
	KeyQuote          string          `json:"key_quote"`
	Category          string          `json:"category"`
	Competitor        string          `json:"competitor,omitempty"`
	FeatureGaps       []string        `json:"feature_gaps"`
	UsageDuration     string          `json:"usage_duration,omitempty"`
	RetentionPath     tenant.PathKind `json:"retention_path"`
	RetentionAccepted bool            `json:"retention_accepted"`
}

// Normalize fills every required field so the persisted shape never carries
// nulls regardless of how malformed the model output was.
func Normalize(in Insight, firstUserMsg, lastUserMsg string) Insight {
	if in.SurfaceReason == "" {
		in.SurfaceReason = firstUserMsg
	}
	if in.DeepReasons == nil {
		in.DeepReasons = []string{}
	}
	if in.Sentiment == "" {
		in.Sentiment = "neutral"
	}
	if in.KeyQuote == "" {
		in.KeyQuote = lastUserMsg
	}
	if !validCategory(in.Category) {
		in.Category = "other"
	}
	if in.FeatureGaps == nil {
		in.FeatureGaps = []string{}
	}
	if !validPath(in.RetentionPath) {
		in.RetentionPath = tenant.PathOffboard
	}
	return in
}

func validCategory(c string) bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

func validPath(p tenant.PathKind) bool {
	for _, k := range tenant.PathKinds {
		if p == k {
			return true
		}
	}
	return false
}
