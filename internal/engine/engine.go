package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andrei-git-tower/last-word/internal/events"
	"github.com/andrei-git-tower/last-word/internal/insight"
	"github.com/andrei-git-tower/last-word/internal/provider"
	"github.com/andrei-git-tower/last-word/internal/prompt"
	"github.com/andrei-git-tower/last-word/internal/rules"
	"github.com/andrei-git-tower/last-word/internal/store"
	"github.com/andrei-git-tower/last-word/internal/tenant"
	"github.com/andrei-git-tower/last-word/internal/turns"
)

const (
	maxTokens      = 1024
	postTurnBudget = 30 * time.Second
)

// Store is the persistence surface the engine reads and writes.
type Store interface {
	AccountIDByKey(ctx context.Context, accessKey string) (uuid.UUID, error)
	TenantConfig(ctx context.Context, accountID uuid.UUID) (tenant.Config, error)
	Rules(ctx context.Context, accountID uuid.UUID) ([]rules.Rule, error)
	CreateInsight(ctx context.Context, accountID uuid.UUID, uc *insight.UserContext) (uuid.UUID, error)
	FinalizeInsight(ctx context.Context, id *uuid.UUID, accountID uuid.UUID, ins insight.Insight, transcript []insight.Message, uc *insight.UserContext) (uuid.UUID, error)
}

// Provider serves model calls in the canonical stream shape.
type Provider interface {
	Stream(ctx context.Context, req provider.Request) (*provider.Stream, error)
	Complete(ctx context.Context, req provider.Request) (string, error)
}

// Notifier dispatches a completed insight to tenant endpoints.
type Notifier interface {
	Dispatch(ctx context.Context, accountID, insightID uuid.UUID, ins insight.Insight)
}

// DeltaSink receives forwarded text deltas. A write error means the caller
// is gone; the engine keeps accumulating regardless.
type DeltaSink interface {
	WriteDelta(text string) error
}

// Engine drives one exit-interview turn end to end: configuration, rules,
// prompt, governor, provider call, relay, and detached post-processing.
type Engine struct {
	store    Store
	provider Provider
	notifier Notifier
	events   *events.Publisher
	logger   *slog.Logger

	wg sync.WaitGroup
}

func New(s Store, p Provider, n Notifier, ev *events.Publisher, logger *slog.Logger) *Engine {
	return &Engine{store: s, provider: p, notifier: n, events: ev, logger: logger}
}

// TurnRequest is one inbound conversation turn.
type TurnRequest struct {
	AccessKey   string
	Messages    []insight.Message
	UserContext *insight.UserContext
	InsightID   string // echoed back by the caller once known
}

// Turn is the fully resolved per-request state. Nothing here survives the
// request; the governor recomputes from transcript length every call.
type Turn struct {
	AccountID   uuid.UUID
	InsightID   *uuid.UUID
	Phase       turns.Phase
	Messages    []insight.Message
	UserContext *insight.UserContext

	system string
}

// Begin resolves tenant state for a turn: authenticates the access key,
// loads and normalizes config, matches rules, computes the phase, assembles
// the prompt, and creates the partial insight row on the opening turns.
// Auth failures are the only hard error; missing config degrades to
// defaults.
func (e *Engine) Begin(ctx context.Context, req TurnRequest) (*Turn, error) {
	accountID, err := e.store.AccountIDByKey(ctx, req.AccessKey)
	if err != nil {
		return nil, err
	}

	messages := req.Messages
	if len(messages) == 0 {
		// A bare request asks for the opening greeting.
		messages = []insight.Message{{Role: "user", Content: insight.SentinelStart}}
	}

	cfg, err := e.store.TenantConfig(ctx, accountID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Warn("tenant config unavailable, using defaults", "account_id", accountID, "error", err)
		}
		cfg = tenant.Default()
	}
	cfg = tenant.Normalize(cfg)

	ruleset, err := e.store.Rules(ctx, accountID)
	if err != nil {
		e.logger.Warn("rules unavailable, continuing without", "account_id", accountID, "error", err)
	}
	ruleText, _ := rules.Match(ruleset, req.UserContext)

	phase := turns.For(messages, cfg.MinExchanges, cfg.MaxExchanges)

	t := &Turn{
		AccountID:   accountID,
		Phase:       phase,
		Messages:    messages,
		UserContext: req.UserContext,
		system:      prompt.Assemble(cfg, req.UserContext, ruleText, phase),
	}

	if req.InsightID != "" {
		if id, err := uuid.Parse(req.InsightID); err == nil {
			t.InsightID = &id
		} else {
			e.logger.Warn("ignoring malformed insight id", "insight_id", req.InsightID)
		}
	}
	if t.InsightID == nil && turns.Count(messages) <= 1 {
		// Capture context durably before the customer can abandon. If the
		// caller fails to round-trip this id, duplicate partials are
		// possible; that is a known trade-off.
		id, err := e.store.CreateInsight(ctx, accountID, req.UserContext)
		if err != nil {
			e.logger.Error("failed to create partial insight", "account_id", accountID, "error", err)
		} else {
			t.InsightID = &id
			e.events.Publish(events.SubjectInsightCreated, events.InsightEvent{
				AccountID: accountID.String(),
				InsightID: id.String(),
			})
		}
	}

	return t, nil
}

// Run executes the provider call for a prepared turn and relays the response
// into sink. On the hard-stop phase it forces a single non-streaming closing
// call instead. Returns an error only when no response could be produced;
// everything after first byte is absorbed and logged.
func (e *Engine) Run(ctx context.Context, t *Turn, sink DeltaSink) error {
	req := provider.Request{
		System:    t.system,
		Messages:  toProviderMessages(t.Messages),
		MaxTokens: maxTokens,
	}

	// Once the turn is committed the provider call is detached from request
	// cancellation: a client disconnect mid-stream would otherwise cut the
	// upstream read short and lose the final insight.
	ctx = context.WithoutCancel(ctx)

	if t.Phase == turns.HardStop {
		return e.runHardStop(ctx, t, req, sink)
	}

	stream, err := e.provider.Stream(ctx, req)
	if err != nil {
		return err
	}

	// Relay: forward each delta the moment it arrives while accumulating a
	// local copy. A dead caller stops forwarding but never extraction.
	var acc strings.Builder
	forwarding := true
	for delta := range stream.Deltas() {
		acc.WriteString(delta)
		if forwarding {
			if err := sink.WriteDelta(delta); err != nil {
				forwarding = false
				e.logger.Warn("caller gone mid-stream, continuing to accumulate", "error", err)
			}
		}
	}
	if err := stream.Err(); err != nil {
		e.logger.Error("provider stream ended with error", "error", err)
	}

	e.finish(t, acc.String())
	return nil
}

// runHardStop issues the forced closing call. If it fails, or the model
// answers without the completion token, the engine synthesizes the closing
// itself so the caller is never left without a completion.
func (e *Engine) runHardStop(ctx context.Context, t *Turn, req provider.Request, sink DeltaSink) error {
	text, err := e.provider.Complete(ctx, req)
	if err != nil {
		e.logger.Error("forced closing call failed, synthesizing completion", "error", err)
		text = synthesizedClosing()
	} else if !insight.Completed(text) {
		e.logger.Warn("forced closing call omitted the completion token, appending synthesized closing")
		text = text + "\n\n" + synthesizedClosing()
	}

	if err := sink.WriteDelta(text); err != nil {
		e.logger.Warn("caller gone before closing message", "error", err)
	}
	e.finish(t, text)
	return nil
}

func synthesizedClosing() string {
	return "Thank you for everything you shared, it genuinely helps. " +
		"Your cancellation will go through smoothly, and the door is always open. " +
		insight.CompletionToken
}

// finish runs extraction, persistence, and dispatch for a completed turn,
// detached from the request lifecycle so a client disconnect cannot cut it
// short. Mid-interview turns (no completion token) persist nothing new.
func (e *Engine) finish(t *Turn, assistantText string) {
	if !insight.Completed(assistantText) {
		return
	}

	transcript := append(slices.Clone(t.Messages), insight.Message{Role: "assistant", Content: assistantText})
	ins := insight.Extract(assistantText, transcript)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), postTurnBudget)
		defer cancel()

		id, err := e.store.FinalizeInsight(ctx, t.InsightID, t.AccountID, ins, transcript, t.UserContext)
		if err != nil {
			e.logger.Error("failed to finalize insight", "account_id", t.AccountID, "error", err)
			return
		}

		e.events.Publish(events.SubjectInsightCompleted, events.InsightEvent{
			AccountID: t.AccountID.String(),
			InsightID: id.String(),
			Category:  ins.Category,
		})
		e.notifier.Dispatch(ctx, t.AccountID, id, ins)
	}()
}

// Wait blocks until detached post-processing has drained. Used on shutdown.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func toProviderMessages(msgs []insight.Message) []provider.Message {
	out := make([]provider.Message, len(msgs))
	for i, m := range msgs {
		out[i] = provider.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
