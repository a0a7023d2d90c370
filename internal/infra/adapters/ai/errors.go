package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v2"
	"google.golang.org/genai"
)

// StatusError is a provider failure carrying an HTTP status. Adapters that
// talk HTTP without an SDK error type (and test doubles) return it.
type StatusError struct {
	Provider string
	Code     int
	Msg      string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.Code, e.Msg)
}

// failureClass decides what the fallback chain does after a failed call.
type failureClass int

const (
	failRateLimited failureClass = iota // back off, retry same model
	failTransient                       // back off, retry same model
	failPermanent                       // skip to next model
	failCanceled                        // caller gave up; stop
)

func (c failureClass) String() string {
	switch c {
	case failRateLimited:
		return "rate_limited"
	case failTransient:
		return "transient"
	case failPermanent:
		return "permanent"
	default:
		return "canceled"
	}
}

// statusOf extracts an HTTP status from SDK or adapter errors; 0 if none.
func statusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	var oe *openai.Error
	if errors.As(err, &oe) {
		return oe.StatusCode
	}
	var ge genai.APIError
	if errors.As(err, &ge) {
		return ge.Code
	}
	var gp *genai.APIError
	if errors.As(err, &gp) && gp != nil {
		return gp.Code
	}
	return 0
}

func classify(parent context.Context, err error) failureClass {
	if parent.Err() != nil {
		return failCanceled
	}
	code := statusOf(err)
	switch {
	case code == http.StatusTooManyRequests:
		return failRateLimited
	case code == http.StatusRequestTimeout, code >= 500:
		return failTransient
	case code >= 400:
		return failPermanent
	}
	// No status: network errors, per-call timeouts, empty completions.
	return failTransient
}
