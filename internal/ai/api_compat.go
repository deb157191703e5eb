package ai

import (
	"context"
	"errors"
	"io"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/sentryai/sentry/internal/logging"
)

// CompatProvider talks to any OpenAI-compatible gateway (vLLM, LiteLLM,
// OpenRouter and similar) through a configurable base URL.
type CompatProvider struct {
	client  *goopenai.Client
	timeout time.Duration
}

func NewCompatProvider(baseURL, apiKey string, timeout time.Duration) *CompatProvider {
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &CompatProvider{
		client:  goopenai.NewClientWithConfig(cfg),
		timeout: timeout,
	}
}

// ID returns the provider identifier
func (p *CompatProvider) ID() string {
	return string(KindCompat)
}

func (p *CompatProvider) request(req *ChatRequest) goopenai.ChatCompletionRequest {
	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		role := goopenai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = goopenai.ChatMessageRoleAssistant
		}
		messages = append(messages, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return goopenai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
}

// Complete uses the non-streaming endpoint.
func (p *CompatProvider) Complete(ctx context.Context, req *ChatRequest) (string, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, p.request(req))
	if err != nil {
		return "", compatError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream sends a request and returns streaming events
func (p *CompatProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	chatReq := p.request(req)
	chatReq.Stream = true
	logging.Debugf("[Compat] Sending request: model=%s messages=%d", req.Model, len(chatReq.Messages))

	sctx, cancel := withTimeout(ctx, p.timeout)
	stream, err := p.client.CreateChatCompletionStream(sctx, chatReq)
	if err != nil {
		cancel()
		return nil, compatError(err)
	}

	events := make(chan StreamEvent, 100)
	go func() {
		defer cancel()
		defer close(events)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				emit(ctx, events, StreamEvent{Type: EventTypeDone})
				return
			}
			if err != nil {
				logging.Warnf("[Compat] Stream error: %v", err)
				emit(ctx, events, StreamEvent{Type: EventTypeError, Error: compatError(err)})
				return
			}
			if len(resp.Choices) > 0 && resp.Choices[0].Delta.Content != "" {
				if !emit(ctx, events, StreamEvent{Type: EventTypeText, Text: resp.Choices[0].Delta.Content}) {
					return
				}
			}
		}
	}()
	return events, nil
}

func compatError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return newProviderError(string(KindCompat), apiErr.HTTPStatusCode, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return newProviderError(string(KindCompat), reqErr.HTTPStatusCode, err)
	}
	return newProviderError(string(KindCompat), 0, err)
}
