package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/config"
	"github.com/sentryai/sentry/internal/logging"
)

// credentialHint names the setting that enables each family.
var credentialHint = map[Kind]string{
	KindOpenAI:    "providers.openai_api_key (OPENAI_API_KEY)",
	KindAnthropic: "providers.anthropic_api_key (ANTHROPIC_API_KEY)",
	KindGemini:    "providers.gemini_api_key (GEMINI_API_KEY)",
	KindOllama:    "providers.ollama_url (OLLAMA_URL)",
	KindCompat:    "providers.compat_base_url (COMPAT_BASE_URL)",
}

// Registry holds one provider per configured family.
type Registry struct {
	mu        sync.RWMutex
	providers map[Kind]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[Kind]Provider)}
}

// NewRegistryFromConfig builds a provider for every family that has a
// credential. Families without one stay unregistered and fail at Resolve.
func NewRegistryFromConfig(ctx context.Context, c config.Providers) (*Registry, error) {
	r := NewRegistry()
	if c.OpenAIKey != "" {
		r.Register(KindOpenAI, NewOpenAIProvider(c.OpenAIKey, c.RequestTimeout))
	}
	if c.AnthropicKey != "" {
		r.Register(KindAnthropic, NewAnthropicProvider(c.AnthropicKey, c.RequestTimeout))
	}
	if c.GeminiKey != "" {
		p, err := NewGeminiProvider(ctx, c.GeminiKey, c.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		r.Register(KindGemini, p)
	}
	if c.OllamaURL != "" {
		p, err := NewOllamaProvider(c.OllamaURL, c.RequestTimeout)
		if err != nil {
			return nil, err
		}
		r.Register(KindOllama, p)
	}
	if c.CompatBaseURL != "" {
		r.Register(KindCompat, NewCompatProvider(c.CompatBaseURL, c.CompatKey, c.RequestTimeout))
	}
	logging.Infof("AI providers configured: %v", r.Available())
	return r, nil
}

func (r *Registry) Register(kind Kind, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[kind] = p
}

// Available lists the configured families in display order.
func (r *Registry) Available() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Kind
	for _, k := range Kinds {
		if _, ok := r.providers[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Resolve picks the provider for a model identifier. Unknown identifiers are
// validation errors; a known family without credentials is a configuration
// error with a message naming the missing setting.
func (r *Registry) Resolve(model string) (Provider, Selection, error) {
	sel, err := ParseKind(model)
	if err != nil {
		return nil, sel, apperr.Wrap(apperr.KindValidation, err, "")
	}

	r.mu.RLock()
	p, ok := r.providers[sel.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, sel, apperr.New(apperr.KindConfig,
			"model %q needs the %s provider, which is not configured: set %s",
			model, sel.Kind, credentialHint[sel.Kind])
	}
	return p, sel, nil
}

// Close releases providers that hold connections.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, p := range r.providers {
		if c, ok := p.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
