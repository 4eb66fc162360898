package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// ErrorKind classifies generation backend failures. Callers branch on the
// kind, never on backend error text.
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindRateLimit ErrorKind = "rate_limit"
	KindTimeout   ErrorKind = "timeout"
	KindBackend   ErrorKind = "backend_error"
)

// GenerationError wraps a backend failure with its classification. The raw
// error stays available for logs; UserMessage is what clients see.
type GenerationError struct {
	Kind ErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Transient reports whether a retry could plausibly succeed.
func (e *GenerationError) Transient() bool {
	return e.Kind == KindRateLimit || e.Kind == KindTimeout
}

// UserMessage returns a summary safe to surface to clients. Backend error
// text is never forwarded verbatim.
func (e *GenerationError) UserMessage() string {
	switch e.Kind {
	case KindAuth:
		return "generation backend rejected our credentials"
	case KindRateLimit:
		return "generation backend is rate limiting requests, try again shortly"
	case KindTimeout:
		return "generation backend timed out"
	default:
		return "generation backend failed"
	}
}

// Classify maps a raw backend error onto a GenerationError. Already-classified
// errors pass through unchanged.
func Classify(err error) *GenerationError {
	var gen *GenerationError
	if errors.As(err, &gen) {
		return gen
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &GenerationError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &GenerationError{Kind: KindTimeout, Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &GenerationError{Kind: KindAuth, Err: err}
		case http.StatusTooManyRequests:
			return &GenerationError{Kind: KindRateLimit, Err: err}
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return &GenerationError{Kind: KindTimeout, Err: err}
		}
	}
	return &GenerationError{Kind: KindBackend, Err: err}
}
