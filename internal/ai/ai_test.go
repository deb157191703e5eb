package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/config"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		model string
		kind  Kind
		sent  string
	}{
		{"gpt-4o-mini", KindOpenAI, "gpt-4o-mini"},
		{"o3-mini", KindOpenAI, "o3-mini"},
		{"claude-3-5-sonnet-latest", KindAnthropic, "claude-3-5-sonnet-latest"},
		{"gemini-1.5-flash", KindGemini, "gemini-1.5-flash"},
		{"ollama/llama3.1", KindOllama, "llama3.1"},
		{"compat/meta-llama/Llama-3-70b", KindCompat, "meta-llama/Llama-3-70b"},
		{"COMPAT/claude-proxy", KindCompat, "claude-proxy"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			sel, err := ParseKind(tt.model)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, sel.Kind)
			assert.Equal(t, tt.sent, sel.Model)
			assert.Equal(t, tt.model, sel.Requested)
		})
	}

	for _, bad := range []string{"", "   ", "mistral-large", "ollama/"} {
		_, err := ParseKind(bad)
		assert.ErrorIs(t, err, ErrUnknownModel, bad)
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	fake := &fakeProvider{id: "openai"}
	r.Register(KindOpenAI, fake)

	p, sel, err := r.Resolve("gpt-4o")
	require.NoError(t, err)
	assert.Same(t, fake, p)
	assert.Equal(t, KindOpenAI, sel.Kind)

	_, _, err = r.Resolve("claude-3-opus")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")

	_, _, err = r.Resolve("bogus")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Contains(t, apperr.PublicMessage(err), `"bogus"`)

	assert.Equal(t, []Kind{KindOpenAI}, r.Available())
}

func TestNewRegistryFromConfigSkipsMissingCredentials(t *testing.T) {
	r, err := NewRegistryFromConfig(context.Background(), config.Providers{
		OpenAIKey:      "sk-test",
		OllamaURL:      "http://localhost:11434",
		RequestTimeout: time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindOpenAI, KindOllama}, r.Available())
	require.NoError(t, r.Close())
}

func TestClassifyErrorReason(t *testing.T) {
	assert.Equal(t, "rate_limit", ClassifyErrorReason(newProviderError("openai", 429, errors.New("x"))))
	assert.Equal(t, "auth", ClassifyErrorReason(newProviderError("openai", 401, errors.New("x"))))
	assert.Equal(t, "billing", ClassifyErrorReason(errors.New("You exceeded your current quota: insufficient_quota")))
	assert.Equal(t, "rate_limit", ClassifyErrorReason(errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED")))
	assert.Equal(t, "timeout", ClassifyErrorReason(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.Equal(t, "other", ClassifyErrorReason(errors.New("boom")))
	assert.Equal(t, "other", ClassifyErrorReason(nil))

	wrapped := fmt.Errorf("generate: %w", newProviderError("anthropic", 429, errors.New("slow down")))
	assert.True(t, IsRateLimited(wrapped))
}

func TestAsAppError(t *testing.T) {
	throttled := newProviderError("anthropic", 0, errors.New("ThrottlingException: Too many requests"))
	err := AsAppError(throttled)
	assert.True(t, apperr.Is(err, apperr.KindRateLimited))
	assert.Equal(t, apperr.RateLimitedMessage, apperr.PublicMessage(err))
	assert.ErrorIs(t, err, throttled)

	err = AsAppError(newProviderError("openai", 500, errors.New("secret upstream detail")))
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
	assert.NotContains(t, apperr.PublicMessage(err), "secret")

	already := apperr.Validation("bad")
	assert.Same(t, already, AsAppError(already))
	assert.NoError(t, AsAppError(nil))
}

func TestCompleteDrainsStream(t *testing.T) {
	p := &fakeProvider{id: "gemini", events: []StreamEvent{
		{Type: EventTypeText, Text: "Olá, "},
		{Type: EventTypeText, Text: "mundo"},
		{Type: EventTypeDone},
	}}
	text, err := Complete(context.Background(), p, &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Olá, mundo", text)
}

func TestCompleteReportsStreamError(t *testing.T) {
	boom := errors.New("boom")
	p := &fakeProvider{id: "gemini", events: []StreamEvent{
		{Type: EventTypeText, Text: "parc"},
		{Type: EventTypeError, Error: boom},
	}}
	text, err := Complete(context.Background(), p, &ChatRequest{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "parc", text)

	p = &fakeProvider{id: "gemini", events: []StreamEvent{{Type: EventTypeText, Text: "x"}}}
	_, err = Complete(context.Background(), p, &ChatRequest{})
	assert.ErrorIs(t, err, ErrIncompleteStream)
}

func TestCoalesce(t *testing.T) {
	got := coalesce([]Message{
		{Role: RoleUser, Content: "a"},
		{Role: RoleUser, Content: "b"},
		{Role: RoleAssistant, Content: ""},
		{Role: RoleAssistant, Content: "c"},
	})
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "a\n\nb"},
		{Role: RoleAssistant, Content: "c"},
	}, got)
}

type fakeProvider struct {
	id     string
	events []StreamEvent
}

func (f *fakeProvider) ID() string { return f.id }

func (f *fakeProvider) Stream(ctx context.Context, _ *ChatRequest) (<-chan StreamEvent, error) {
	ch := make(chan StreamEvent)
	go func() {
		defer close(ch)
		for _, ev := range f.events {
			if !emit(ctx, ch, ev) {
				return
			}
		}
	}()
	return ch, nil
}
