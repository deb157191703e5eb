package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sentryai/sentry/internal/apperr"
)

// ProviderError represents an error from a provider
type ProviderError struct {
	Provider   string
	Reason     string // billing, rate_limit, auth, timeout or other
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// newProviderError wraps a backend failure. status is 0 when the backend did
// not answer with an HTTP status.
func newProviderError(provider string, status int, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	e := &ProviderError{Provider: provider, StatusCode: status, Err: err}
	e.Reason = classify(status, err)
	return e
}

// IsRateLimited reports whether err is a quota or rate-limit failure.
func IsRateLimited(err error) bool {
	return ClassifyErrorReason(err) == "rate_limit"
}

// AsAppError converts a generation failure into the error shown to API
// callers. Rate limits get the friendly retry message; other provider
// failures surface as upstream errors without the backend's raw text.
func AsAppError(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch ClassifyErrorReason(err) {
	case "rate_limit":
		return apperr.Wrap(apperr.KindRateLimited, err, "")
	case "timeout":
		return apperr.Wrap(apperr.KindUpstream, err, "the language model took too long to respond")
	case "auth", "billing":
		return apperr.Wrap(apperr.KindUpstream, err, "the language model provider rejected the request")
	}
	return apperr.Wrap(apperr.KindUpstream, err, "the language model failed to respond")
}

// ClassifyErrorReason determines the category of a provider failure.
// Returns: "billing", "rate_limit", "auth", "timeout", or "other"
func ClassifyErrorReason(err error) string {
	if err == nil {
		return "other"
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Reason != "" {
		return pe.Reason
	}
	return classify(0, err)
}

func classify(status int, err error) string {
	switch status {
	case http.StatusTooManyRequests:
		return "rate_limit"
	case http.StatusUnauthorized, http.StatusForbidden:
		return "auth"
	case http.StatusPaymentRequired:
		return "billing"
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return "timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	msg := strings.ToLower(err.Error())
	patterns := []struct {
		reason   string
		keywords []string
	}{
		{"billing", []string{"billing", "insufficient_quota", "payment", "credit balance", "spending limit"}},
		{"rate_limit", []string{"rate limit", "rate_limit", "too many requests", "429", "throttl", "resource_exhausted", "quota", "overloaded"}},
		{"auth", []string{"authentication", "unauthorized", "invalid api key", "api key not valid", "permission_denied", "401"}},
		{"timeout", []string{"timeout", "timed out", "deadline exceeded"}},
	}
	for _, p := range patterns {
		for _, kw := range p.keywords {
			if strings.Contains(msg, kw) {
				return p.reason
			}
		}
	}
	return "other"
}
