package insight

import (
	"encoding/json"
	"strings"

	"github.com/andrei-git-tower/last-word/internal/tenant"
)

// SentinelStart is the literal user message the widget sends to request the
// opening greeting. It is not a real turn and never counts as one.
const SentinelStart = "start"

// Completed reports whether the assistant text contains the completion token.
func Completed(text string) bool {
	return strings.Contains(text, CompletionToken)
}

// Extract parses the delimited structured block out of a completed turn's
// accumulated text. If the block is absent or malformed it falls back to a
// minimal record built from the transcript; either way the result is
// normalized to the non-null contractual shape.
func Extract(text string, transcript []Message) Insight {
	first := FirstSubstantive(transcript)
	last := LastSubstantive(transcript)

	block, ok := cutBlock(text)
	if !ok {
		return fallback(first, last)
	}

	var in Insight
	if err := json.Unmarshal([]byte(block), &in); err != nil {
		return fallback(first, last)
	}
	return Normalize(in, first, last)
}

// fallback is the defensive record used when the model emitted no parseable
// block. The engine never invents a savable path without explicit model
// signal, so retention_path stays at graceful offboarding.
func fallback(first, last string) Insight {
	return Normalize(Insight{
		SurfaceReason: first,
		KeyQuote:      last,
		Category:      "other",
		RetentionPath: tenant.PathOffboard,
	}, first, last)
}

func cutBlock(text string) (string, bool) {
	start := strings.Index(text, BlockStart)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(BlockStart):]
	end := strings.Index(rest, BlockEnd)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// FirstSubstantive returns the first user message that is not the start
// sentinel, or empty if there is none.
func FirstSubstantive(transcript []Message) string {
	for _, m := range transcript {
		if Substantive(m) {
			return m.Content
		}
	}
	return ""
}

// LastSubstantive returns the last user message that is not the start
// sentinel, or empty if there is none.
func LastSubstantive(transcript []Message) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		if Substantive(transcript[i]) {
			return transcript[i].Content
		}
	}
	return ""
}

// Substantive reports whether a message is a real user turn rather than the
// start sentinel.
func Substantive(m Message) bool {
	return m.Role == "user" && strings.ToLower(strings.TrimSpace(m.Content)) != SentinelStart
}
