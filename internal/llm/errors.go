package llm

import (
	"fmt"
	"strings"
	"time"
)

// ProviderError is a classified failure returned by a generative backend.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Retryable  bool
	RateLimit  bool
	RetryAfter time.Duration // zero when the provider gave no hint
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s] %s (status=%d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// classifyError maps a provider failure to a ProviderError using the HTTP
// status when known and the message text otherwise.
func classifyError(provider string, status int, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)

	pe := &ProviderError{
		Provider:   provider,
		StatusCode: status,
		Message:    msg,
		Cause:      err,
	}

	switch {
	case status == 429 || rateLimitIndicator.MatchString(msg):
		pe.RateLimit = true
		pe.Retryable = true
		if pe.StatusCode == 0 {
			pe.StatusCode = 429
		}
		pe.RetryAfter = ParseRetryAfter(msg)
	case status == 401 || status == 403 || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		pe.Retryable = false
	case status >= 500:
		pe.Retryable = true
	case status >= 400:
		pe.Retryable = false
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		pe.Retryable = true
	}
	return pe
}
