package ai

import (
	"context"
	"errors"
	"strings"
)

// ErrIncompleteStream is reported when a stream closes without a done or
// error event, which happens when the request context ends mid-stream.
var ErrIncompleteStream = errors.New("response stream ended before completion")

// StreamEventType defines the type of streaming event
type StreamEventType string

const (
	EventTypeText  StreamEventType = "text"
	EventTypeError StreamEventType = "error"
	EventTypeDone  StreamEventType = "done"
)

// StreamEvent represents a streaming response event. A stream carries any
// number of text events followed by exactly one done or error event, and is
// then closed.
type StreamEvent struct {
	Type  StreamEventType `json:"type"`
	Text  string          `json:"text,omitempty"`
	Error error           `json:"-"`
}

// Roles used in the provider-neutral message format.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in provider-neutral form.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the AI provider. The last message is
// the turn being answered.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	System      string    `json:"system,omitempty"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// Provider interface for AI providers
type Provider interface {
	// ID returns the provider identifier (e.g., "anthropic", "openai")
	ID() string

	// Stream sends a request and returns a channel of streaming events.
	// The channel is always closed, and the producer stops when ctx is done.
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error)
}

// Completer is implemented by providers with a native non-streaming call.
type Completer interface {
	Complete(ctx context.Context, req *ChatRequest) (string, error)
}

// Complete returns the full response text. Providers without a native
// non-streaming call are drained through Stream.
func Complete(ctx context.Context, p Provider, req *ChatRequest) (string, error) {
	if c, ok := p.(Completer); ok {
		return c.Complete(ctx, req)
	}
	events, err := p.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	streamErr := ErrIncompleteStream
	for ev := range events {
		switch ev.Type {
		case EventTypeText:
			sb.WriteString(ev.Text)
		case EventTypeError:
			streamErr = ev.Error
		case EventTypeDone:
			streamErr = nil
		}
	}
	return sb.String(), streamErr
}

// emit delivers an event unless the consumer has gone away.
func emit(ctx context.Context, ch chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// coalesce merges consecutive turns of the same role. Backends that require
// strictly alternating roles reject histories where a turn went unanswered.
func coalesce(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	return out
}
