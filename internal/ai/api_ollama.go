package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/sentryai/sentry/internal/logging"
)

// OllamaProvider implements the Provider interface for a local Ollama server
type OllamaProvider struct {
	client  *api.Client
	timeout time.Duration
}

// NewOllamaProvider creates a new Ollama provider for the given base URL
func NewOllamaProvider(baseURL string, timeout time.Duration) (*OllamaProvider, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	return &OllamaProvider{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		timeout: timeout,
	}, nil
}

// ID returns the provider identifier
func (p *OllamaProvider) ID() string {
	return string(KindOllama)
}

// Stream sends a request and returns streaming events
func (p *OllamaProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	messages := make([]api.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: m.Role, Content: m.Content})
	}

	stream := true
	chatReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   &stream,
	}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		chatReq.Options = make(map[string]any)
		if req.Temperature > 0 {
			chatReq.Options["temperature"] = req.Temperature
		}
		if req.MaxTokens > 0 {
			chatReq.Options["num_predict"] = req.MaxTokens
		}
	}
	logging.Debugf("[Ollama] Sending request: model=%s messages=%d", req.Model, len(messages))

	events := make(chan StreamEvent, 100)
	go func() {
		defer close(events)
		sctx, cancel := withTimeout(ctx, p.timeout)
		defer cancel()

		errStop := errors.New("consumer gone")
		err := p.client.Chat(sctx, chatReq, func(resp api.ChatResponse) error {
			if resp.Message.Content != "" {
				if !emit(ctx, events, StreamEvent{Type: EventTypeText, Text: resp.Message.Content}) {
					return errStop
				}
			}
			return nil
		})
		switch {
		case errors.Is(err, errStop):
		case err != nil:
			logging.Warnf("[Ollama] Stream error: %v", err)
			emit(ctx, events, StreamEvent{Type: EventTypeError, Error: ollamaError(err)})
		default:
			emit(ctx, events, StreamEvent{Type: EventTypeDone})
		}
	}()
	return events, nil
}

func ollamaError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return newProviderError(string(KindOllama), statusErr.StatusCode, err)
	}
	return newProviderError(string(KindOllama), 0, err)
}
