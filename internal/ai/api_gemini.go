package ai

import (
	"context"
	"errors"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/sentryai/sentry/internal/logging"
)

// GeminiProvider implements the Provider interface for Google Gemini
type GeminiProvider struct {
	client  *genai.Client
	timeout time.Duration
}

// NewGeminiProvider creates a Gemini client. Close releases its connection.
func NewGeminiProvider(ctx context.Context, apiKey string, timeout time.Duration, opts ...option.ClientOption) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{client: client, timeout: timeout}, nil
}

// ID returns the provider identifier
func (p *GeminiProvider) ID() string {
	return string(KindGemini)
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// buildChat splits the request into prior history and the turn being sent.
// Gemini names the assistant role "model".
func (p *GeminiProvider) buildChat(req *ChatRequest) (*genai.ChatSession, genai.Text, error) {
	msgs := coalesce(req.Messages)
	if len(msgs) == 0 || msgs[len(msgs)-1].Role != RoleUser {
		return nil, "", errors.New("last message must be a user turn")
	}

	model := p.client.GenerativeModel(req.Model)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}

	cs := model.StartChat()
	for _, m := range msgs[:len(msgs)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return cs, genai.Text(msgs[len(msgs)-1].Content), nil
}

// Stream sends a request and returns streaming events
func (p *GeminiProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	cs, prompt, err := p.buildChat(req)
	if err != nil {
		return nil, newProviderError(p.ID(), 0, err)
	}
	logging.Debugf("[Gemini] Sending request: model=%s history=%d", req.Model, len(cs.History))

	sctx, cancel := withTimeout(ctx, p.timeout)
	iter := cs.SendMessageStream(sctx, prompt)

	events := make(chan StreamEvent, 100)
	go func() {
		defer cancel()
		defer close(events)

		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				emit(ctx, events, StreamEvent{Type: EventTypeDone})
				return
			}
			if err != nil {
				logging.Warnf("[Gemini] Stream error: %v", err)
				emit(ctx, events, StreamEvent{Type: EventTypeError, Error: geminiError(err)})
				return
			}
			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if t, ok := part.(genai.Text); ok && t != "" {
						if !emit(ctx, events, StreamEvent{Type: EventTypeText, Text: string(t)}) {
							return
						}
					}
				}
			}
		}
	}()
	return events, nil
}

func geminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return newProviderError(string(KindGemini), apiErr.Code, err)
	}
	return newProviderError(string(KindGemini), 0, err)
}
