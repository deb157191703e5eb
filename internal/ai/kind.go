package ai

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of backend families a model identifier resolves to.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindGemini    Kind = "gemini"
	KindOllama    Kind = "ollama"
	KindCompat    Kind = "compat"
)

// Kinds lists every family in display order.
var Kinds = []Kind{KindOpenAI, KindAnthropic, KindGemini, KindOllama, KindCompat}

var ErrUnknownModel = errors.New("unknown model")

// Selection is the outcome of resolving a model identifier once at the start
// of a request.
type Selection struct {
	Kind Kind
	// Model is the identifier sent to the backend, without any routing prefix.
	Model string
	// Requested is the identifier as the caller supplied it.
	Requested string
}

var openAIPrefixes = []string{"gpt-", "gpt4", "chatgpt", "o1", "o3", "o4"}

// ParseKind maps a model identifier to its backend family.
//
//	compat/<model>   OpenAI-compatible gateway
//	ollama/<model>   local Ollama
//	*claude*         Anthropic
//	*gemini*         Gemini
//	gpt-*, o1*, ...  OpenAI
func ParseKind(model string) (Selection, error) {
	id := strings.TrimSpace(model)
	lower := strings.ToLower(id)
	sel := Selection{Model: id, Requested: model}

	switch {
	case id == "":
		return sel, fmt.Errorf("%w: empty model identifier", ErrUnknownModel)
	case strings.HasPrefix(lower, "compat/"):
		sel.Kind, sel.Model = KindCompat, id[len("compat/"):]
	case strings.HasPrefix(lower, "ollama/"):
		sel.Kind, sel.Model = KindOllama, id[len("ollama/"):]
	case strings.Contains(lower, "claude"):
		sel.Kind = KindAnthropic
	case strings.Contains(lower, "gemini"):
		sel.Kind = KindGemini
	default:
		for _, p := range openAIPrefixes {
			if strings.HasPrefix(lower, p) {
				sel.Kind = KindOpenAI
				return sel, nil
			}
		}
		return sel, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	if sel.Model == "" {
		return sel, fmt.Errorf("%w: %q has no model after the prefix", ErrUnknownModel, model)
	}
	return sel, nil
}
