// Package conversation sequences a chat turn: it validates the request,
// loads the recent history, triggers automatic titling, persists the user's
// message and produces the assistant's answer either whole or as a stream.
package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sentryai/sentry/internal/ai"
	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/history"
	"github.com/sentryai/sentry/internal/knowledge"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/prompt"
	"github.com/sentryai/sentry/internal/stream"
)

// MaxContentChars bounds a single user message.
const MaxContentChars = 20000

// persistTimeout bounds the deferred write of a streamed answer, which runs
// after the request context may already be gone.
const persistTimeout = 15 * time.Second

// Store is the part of the record store a turn touches.
type Store interface {
	GetChat(ctx context.Context, id string) (*db.Chat, error)
	CreateUserMessage(ctx context.Context, arg db.CreateUserMessageParams) (*db.UserMessage, error)
	CreateAIMessage(ctx context.Context, arg db.CreateAIMessageParams) (*db.AIMessage, error)
}

// HistoryLoader returns the recent turns of a chat, oldest first.
type HistoryLoader interface {
	GetWindow(ctx context.Context, chatID string, limit int) ([]history.Turn, error)
}

// ContextBuilder produces the system instruction for a message.
type ContextBuilder interface {
	BuildSystemInstruction(ctx context.Context, userName, query string) (string, []knowledge.Snippet)
}

// Resolver maps a model identifier to the provider that serves it.
type Resolver interface {
	Resolve(model string) (ai.Provider, ai.Selection, error)
}

// Options tune the orchestrator; zero values fall back to defaults.
type Options struct {
	DefaultModel  string
	HistoryWindow int
	MaxTokens     int
	StreamTimeout time.Duration
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Store     Store
	History   HistoryLoader
	Assembler ContextBuilder
	Resolver  Resolver
	Titler    *Titler
}

// Orchestrator runs chat turns in complete or streaming mode.
type Orchestrator struct {
	Deps
	opts Options
}

// NewOrchestrator returns an Orchestrator, defaulting the window to 15 turns.
func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	if opts.HistoryWindow == 0 {
		opts.HistoryWindow = 15
	}
	if opts.StreamTimeout == 0 {
		opts.StreamTimeout = 6 * time.Minute
	}
	return &Orchestrator{Deps: deps, opts: opts}
}

// Request is one inbound user message.
type Request struct {
	ChatID   string
	Content  string
	Model    string
	UserID   string
	UserName string
	IsAdmin  bool
}

// Result is the outcome of complete mode.
type Result struct {
	UserTurn      history.Turn `json:"userTurn"`
	AssistantTurn history.Turn `json:"assistantTurn"`
}

// StreamResult is the outcome of streaming mode. AssistantTurn is nil when
// nothing was generated or the deferred write failed.
type StreamResult struct {
	UserTurn      history.Turn
	AssistantTurn *history.Turn
	Outcome       stream.Outcome
}

// prepared is the state shared by both modes once the inbound turn is stored.
type prepared struct {
	provider ai.Provider
	sel      ai.Selection
	userTurn history.Turn
	chatReq  *ai.ChatRequest
}

// Complete answers a message with a single provider call.
func (o *Orchestrator) Complete(ctx context.Context, req Request) (*Result, error) {
	p, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	log := logging.WithContext(ctx)

	text, err := ai.Complete(ctx, p.provider, p.chatReq)
	if err != nil {
		log.Warnf("[conversation] generation failed chat=%s model=%s: %v", req.ChatID, p.sel.Requested, err)
		return nil, ai.AsAppError(err)
	}
	if strings.TrimSpace(text) == "" {
		log.Warnf("[conversation] empty response chat=%s model=%s", req.ChatID, p.sel.Requested)
		return nil, apperr.New(apperr.KindUpstream, "the language model returned an empty response")
	}

	msg, err := o.Store.CreateAIMessage(ctx, db.CreateAIMessageParams{ChatID: req.ChatID, Content: text, Model: p.sel.Requested})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "failed to save the assistant response")
	}
	return &Result{UserTurn: p.userTurn, AssistantTurn: history.FromAIMessage(msg)}, nil
}

// SinkOpener starts the event stream. It is only called once the request has
// passed validation, so earlier failures can still be answered as JSON.
type SinkOpener func() (stream.Sink, error)

// Stream answers a message token by token. Errors returned before the sink is
// opened are request failures; after that every failure, including a provider
// that refuses to start, is reported inside the stream. The aggregated text, or a non-empty partial one, is persisted
// once the stream has ended.
func (o *Orchestrator) Stream(ctx context.Context, req Request, open SinkOpener) (*StreamResult, error) {
	p, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	log := logging.WithContext(ctx)

	sink, err := open()
	if err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, o.opts.StreamTimeout)
	defer cancel()

	events, err := p.provider.Stream(genCtx, p.chatReq)
	if err != nil {
		log.Warnf("[conversation] stream start failed chat=%s model=%s: %v", req.ChatID, p.sel.Requested, err)
		events = failedStream(err)
	}

	out := stream.Relay(ctx, events, sink, stream.WithErrorMessage(func(err error) string {
		return apperr.PublicMessage(ai.AsAppError(err))
	}))
	res := &StreamResult{UserTurn: p.userTurn, Outcome: out}

	switch {
	case out.Err != nil:
		log.Warnf("[conversation] stream failed chat=%s model=%s after %d chars: %v", req.ChatID, p.sel.Requested, len(out.Text), out.Err)
	case out.Canceled:
		log.Infof("[conversation] client left chat=%s after %d chars", req.ChatID, len(out.Text))
	}
	if strings.TrimSpace(out.Text) == "" {
		return res, nil
	}

	// The client may be gone; the answer is still saved.
	saveCtx, cancelSave := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancelSave()
	msg, err := o.Store.CreateAIMessage(saveCtx, db.CreateAIMessageParams{ChatID: req.ChatID, Content: out.Text, Model: p.sel.Requested})
	if err != nil {
		log.Errorf("[conversation] saving streamed answer chat=%s: %v", req.ChatID, err)
		return res, nil
	}
	turn := history.FromAIMessage(msg)
	res.AssistantTurn = &turn
	return res, nil
}

// failedStream carries a start failure through the same path as an error
// reported mid-stream.
func failedStream(err error) <-chan ai.StreamEvent {
	ch := make(chan ai.StreamEvent, 1)
	ch <- ai.StreamEvent{Type: ai.EventTypeError, Error: err}
	close(ch)
	return ch
}

// prepare runs the states common to both modes: validation, history, the
// title trigger and persisting the inbound turn.
func (o *Orchestrator) prepare(ctx context.Context, req Request) (*prepared, error) {
	content := strings.TrimSpace(req.Content)
	switch {
	case req.ChatID == "":
		return nil, apperr.Validation("chatId is required")
	case content == "":
		return nil, apperr.Validation("content is required")
	case len([]rune(content)) > MaxContentChars:
		return nil, apperr.Validation("content exceeds %d characters", MaxContentChars)
	}

	model := req.Model
	if model == "" {
		model = o.opts.DefaultModel
	}
	provider, sel, err := o.Resolver.Resolve(model)
	if err != nil {
		return nil, err
	}

	chat, err := o.Store.GetChat(ctx, req.ChatID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("chat not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "failed to load chat")
	}
	if chat.UserID != req.UserID && !req.IsAdmin {
		return nil, apperr.Forbidden("access denied")
	}

	window, err := o.History.GetWindow(ctx, req.ChatID, o.opts.HistoryWindow)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "failed to load history")
	}

	if o.Titler != nil {
		o.Titler.MaybeTitle(ctx, chat, window, content)
	}

	inbound, err := o.Store.CreateUserMessage(ctx, db.CreateUserMessageParams{ChatID: req.ChatID, UserID: req.UserID, Content: content})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "failed to save message")
	}

	system, snippets := o.Assembler.BuildSystemInstruction(ctx, req.UserName, content)
	if len(snippets) > 0 {
		logging.WithContext(ctx).Debugf("[conversation] grounded chat=%s on %d snippets", req.ChatID, len(snippets))
	}
	msgs := append(history.ToMessages(window), ai.Message{Role: ai.RoleUser, Content: prompt.WrapUserInput(content)})

	return &prepared{
		provider: provider,
		sel:      sel,
		userTurn: history.FromUserMessage(inbound),
		chatReq: &ai.ChatRequest{
			Messages:  msgs,
			System:    system,
			Model:     sel.Model,
			MaxTokens: o.opts.MaxTokens,
		},
	}, nil
}
