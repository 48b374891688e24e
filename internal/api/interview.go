package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/andrei-git-tower/last-word/internal/engine"
	"github.com/andrei-git-tower/last-word/internal/insight"
	"github.com/andrei-git-tower/last-word/internal/provider"
	"github.com/andrei-git-tower/last-word/internal/store"
)

const maxRequestBodySize = 1 << 20 // 1MB

// InsightIDHeader carries the created or reused insight identifier back to
// the widget, which echoes it on subsequent turns.
const InsightIDHeader = "X-Insight-Id"

// AccessKeyHeader carries the tenant's opaque access key.
const AccessKeyHeader = "X-Access-Key"

type interviewRequest struct {
	Messages    []insight.Message    `json:"messages"`
	UserContext *insight.UserContext `json:"userContext,omitempty"`
	InsightID   string               `json:"insightId,omitempty"`
}

func (s *Server) handleInterview(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(AccessKeyHeader)
	if key == "" {
		httpError(w, http.StatusUnauthorized, "authentication_error", "missing access key")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req interviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}

	turn, err := s.engine.Begin(r.Context(), engine.TurnRequest{
		AccessKey:   key,
		Messages:    req.Messages,
		UserContext: req.UserContext,
		InsightID:   req.InsightID,
	})
	if err != nil {
		if errors.Is(err, store.ErrUnknownKey) {
			httpError(w, http.StatusUnauthorized, "authentication_error", "unknown access key")
			return
		}
		s.logger.Error("failed to begin turn", "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "failed to begin turn")
		return
	}

	if turn.InsightID != nil {
		w.Header().Set(InsightIDHeader, turn.InsightID.String())
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
		return
	}

	sink := &sseSink{w: w, flusher: flusher}
	if err := s.engine.Run(r.Context(), turn, sink); err != nil {
		// Run only errors before the first byte, so a JSON error is still
		// deliverable here.
		var apiErr *provider.APIError
		if errors.As(err, &apiErr) && apiErr.Transient() {
			httpError(w, http.StatusBadGateway, "provider_error", "all providers unavailable")
			return
		}
		s.logger.Error("provider call failed", "error", err)
		httpError(w, http.StatusBadGateway, "api_error", "upstream error")
		return
	}

	sink.start() // a turn with zero deltas still gets valid framing
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// sseSink relays deltas as server-sent events, deferring headers until the
// first delta so early provider failures can still return a JSON error.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseSink) start() {
	if s.started {
		return
	}
	s.started = true
	s.w.Header().Set("Content-Type", "text/event-stream")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.Header().Set("Connection", "keep-alive")
	s.w.WriteHeader(http.StatusOK)
}

func (s *sseSink) WriteDelta(text string) error {
	s.start()
	payload, err := json.Marshal(map[string]string{"delta": text})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
