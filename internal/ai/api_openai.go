package ai

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"github.com/sentryai/sentry/internal/logging"
)

// OpenAIProvider implements the OpenAI API using the official SDK
type OpenAIProvider struct {
	client  openai.Client
	timeout time.Duration
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, timeout time.Duration, opts ...option.RequestOption) *OpenAIProvider {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		timeout: timeout,
	}
}

// ID returns the provider identifier
func (p *OpenAIProvider) ID() string {
	return string(KindOpenAI)
}

func (p *OpenAIProvider) params(req *ChatRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	return params
}

// Complete uses the non-streaming endpoint.
func (p *OpenAIProvider) Complete(ctx context.Context, req *ChatRequest) (string, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Chat.Completions.New(ctx, p.params(req))
	if err != nil {
		return "", openAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream sends a request and returns streaming events
func (p *OpenAIProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	params := p.params(req)
	logging.Debugf("[OpenAI] Sending request: model=%s messages=%d", req.Model, len(params.Messages))

	sctx, cancel := withTimeout(ctx, p.timeout)
	stream := p.client.Chat.Completions.NewStreaming(sctx, params)

	events := make(chan StreamEvent, 100)
	go func() {
		defer cancel()
		p.handleStream(ctx, stream, events)
	}()
	return events, nil
}

// handleStream processes the streaming response. ctx is the caller's context
// so a provider timeout is still reported as an error event.
func (p *OpenAIProvider) handleStream(ctx context.Context, stream *ssestream.Stream[openai.ChatCompletionChunk], events chan<- StreamEvent) {
	defer close(events)
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if !emit(ctx, events, StreamEvent{Type: EventTypeText, Text: chunk.Choices[0].Delta.Content}) {
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		logging.Warnf("[OpenAI] Stream error: %v", err)
		emit(ctx, events, StreamEvent{Type: EventTypeError, Error: openAIError(err)})
		return
	}
	emit(ctx, events, StreamEvent{Type: EventTypeDone})
}

func openAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return newProviderError(string(KindOpenAI), apiErr.StatusCode, err)
	}
	return newProviderError(string(KindOpenAI), 0, err)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
