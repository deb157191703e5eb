package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/sentryai/sentry/internal/logging"
)

const defaultMaxTokens = 4096

// AnthropicProvider implements the Anthropic Messages API using the official SDK
type AnthropicProvider struct {
	client  anthropic.Client
	timeout time.Duration
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey string, timeout time.Duration, opts ...option.RequestOption) *AnthropicProvider {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &AnthropicProvider{
		client:  anthropic.NewClient(opts...),
		timeout: timeout,
	}
}

// ID returns the provider identifier
func (p *AnthropicProvider) ID() string {
	return string(KindAnthropic)
}

func (p *AnthropicProvider) params(req *ChatRequest) anthropic.MessageNewParams {
	var messages []anthropic.MessageParam
	for _, msg := range coalesce(req.Messages) {
		switch msg.Role {
		case RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(defaultMaxTokens),
		Messages:  messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}
	return params
}

// Complete uses the non-streaming endpoint.
func (p *AnthropicProvider) Complete(ctx context.Context, req *ChatRequest) (string, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	msg, err := p.client.Messages.New(ctx, p.params(req))
	if err != nil {
		return "", anthropicError(err)
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// Stream sends a request and returns streaming events
func (p *AnthropicProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	params := p.params(req)
	if len(params.Messages) == 0 {
		return nil, newProviderError(p.ID(), 0, errors.New("request has no messages"))
	}
	logging.Debugf("[Anthropic] Sending request: model=%s messages=%d", req.Model, len(params.Messages))

	sctx, cancel := withTimeout(ctx, p.timeout)
	stream := p.client.Messages.NewStreaming(sctx, params)

	events := make(chan StreamEvent, 100)
	go func() {
		defer cancel()
		p.handleStream(ctx, stream, events)
	}()
	return events, nil
}

// handleStream processes the streaming response
func (p *AnthropicProvider) handleStream(ctx context.Context, stream *ssestream.Stream[anthropic.MessageStreamEventUnion], events chan<- StreamEvent) {
	defer close(events)
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()

		switch event.Type {
		case "content_block_delta":
			delta := event.AsContentBlockDelta()
			if d, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && d.Text != "" {
				if !emit(ctx, events, StreamEvent{Type: EventTypeText, Text: d.Text}) {
					return
				}
			}

		case "message_stop":
			emit(ctx, events, StreamEvent{Type: EventTypeDone})
			return

		case "error":
			emit(ctx, events, StreamEvent{
				Type:  EventTypeError,
				Error: anthropicError(fmt.Errorf("stream error: %s", event.RawJSON())),
			})
			return
		}
	}

	if err := stream.Err(); err != nil {
		logging.Warnf("[Anthropic] Stream error: %v", err)
		emit(ctx, events, StreamEvent{Type: EventTypeError, Error: anthropicError(err)})
		return
	}
	emit(ctx, events, StreamEvent{Type: EventTypeDone})
}

func anthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return newProviderError(string(KindAnthropic), apiErr.StatusCode, err)
	}
	return newProviderError(string(KindAnthropic), 0, err)
}
