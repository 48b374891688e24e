package provider

import (
	"context"
	"log/slog"
)

// primary is the streaming provider contract; secondary only completes.
type primary interface {
	Stream(ctx context.Context, req Request) (*Stream, error)
	Complete(ctx context.Context, req Request) (string, error)
}

type secondary interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Router serves every request from the primary provider and makes exactly
// one secondary attempt when the primary fails transiently. Callers only
// ever see the canonical stream shape.
type Router struct {
	primary   primary
	secondary secondary
	logger    *slog.Logger
}

func NewRouter(p primary, s secondary, logger *slog.Logger) *Router {
	return &Router{primary: p, secondary: s, logger: logger}
}

// Stream returns a delta stream from the primary, or the secondary's full
// response wrapped in the same framing after a transient primary failure.
func (r *Router) Stream(ctx context.Context, req Request) (*Stream, error) {
	s, err := r.primary.Stream(ctx, req)
	if err == nil {
		return s, nil
	}
	if !IsTransient(err) || r.secondary == nil {
		return nil, err
	}

	r.logger.Warn("primary provider unavailable, falling back", "error", err)
	text, err := r.secondary.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return StreamOf(text), nil
}

// Complete is the non-streaming path used for forced closing calls, with
// the same one-shot fallback semantics.
func (r *Router) Complete(ctx context.Context, req Request) (string, error) {
	text, err := r.primary.Complete(ctx, req)
	if err == nil {
		return text, nil
	}
	if !IsTransient(err) || r.secondary == nil {
		return "", err
	}

	r.logger.Warn("primary provider unavailable, falling back", "error", err)
	return r.secondary.Complete(ctx, req)
}
