// Package apierr defines the error variants surfaced by the chat endpoint and
// maps each of them to its HTTP status and JSON body.
//
// Handlers never build error bodies by hand: they return one of the variant
// types below and WriteError picks the wire shape with errors.As.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
)

// Client-facing messages.
const (
	MsgRateLimited         = "Too many requests. Please try again later."
	MsgNotConfigured       = "AI service not configured"
	MsgInvalidRequest      = "Invalid request data"
	MsgUpstreamRateLimited = "Gemini API rate limit exceeded. Please try again later."
	MsgUpstreamUnreachable = "AI service unavailable"
	MsgCircuitOpen         = "AI service temporarily unavailable. Please try again later."
	MsgInternal            = "Internal server error"
	MsgMethodNotAllowed    = "Method not allowed"
	MsgNotFound            = "Not found"
)

// DefaultRetryAfter is the retry hint used when the upstream does not send one.
const DefaultRetryAfter = 60

// FieldError describes one failing field of a rejected request body.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationError rejects the whole request body.
type ValidationError struct {
	Details []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return "apierr: invalid request"
	}
	return fmt.Sprintf("apierr: invalid request: %s: %s", e.Details[0].Path, e.Details[0].Message)
}

// ConfigError means the operator has not configured the upstream credential.
type ConfigError struct {
	Missing string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("apierr: %s is not configured", e.Missing)
}

// RateLimitError is the local admission denial.
type RateLimitError struct {
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("apierr: rate limit of %d exceeded", e.Limit)
}

// UpstreamError is a non-2xx answer from the completion provider.
// Details holds the parsed JSON error body, or nil when the body was not JSON.
type UpstreamError struct {
	Status     int
	Message    string
	Details    any
	RetryAfter int // seconds, only meaningful for 429
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("apierr: upstream status %d: %s", e.Status, e.Message)
}

// HTTPStatus reports the upstream status code.
func (e *UpstreamError) HTTPStatus() int { return e.Status }

// TransportError wraps a failure to reach the upstream before any response
// headers arrived.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "apierr: upstream transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// UnavailableError is returned while the upstream circuit breaker is open.
type UnavailableError struct {
	RetryAfter int // seconds
}

func (e *UnavailableError) Error() string { return "apierr: upstream circuit open" }

// InternalError wraps anything that should be reported as a generic 500.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return "apierr: internal error"
	}
	return "apierr: internal: " + e.Err.Error()
}
func (e *InternalError) Unwrap() error { return e.Err }

type (
	errorBody struct {
		Error string `json:"error"`
	}
	validationBody struct {
		Error   string       `json:"error"`
		Details []FieldError `json:"details"`
	}
	retryBody struct {
		Error      string `json:"error"`
		RetryAfter int    `json:"retryAfter"`
	}
	upstreamRateLimitBody struct {
		Error      string `json:"error"`
		Message    string `json:"message"`
		RetryAfter int    `json:"retryAfter"`
	}
	upstreamBody struct {
		Error   string `json:"error"`
		Details any    `json:"details"`
	}
)

// Write marshals v as the JSON response body with the given status.
func Write(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = fasthttp.StatusInternalServerError
		body = []byte(`{"error":"` + MsgInternal + `"}`)
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// WriteMessage writes the plain {"error": msg} body.
func WriteMessage(ctx *fasthttp.RequestCtx, status int, msg string) {
	Write(ctx, status, errorBody{Error: msg})
}

// WriteError maps err to its wire response.
//
//	*ValidationError  → 400 {error, details}
//	*ConfigError      → 500 {error}
//	*RateLimitError   → 429 {error, retryAfter} + X-RateLimit-* + Retry-After
//	*UpstreamError    → 429 {error, message, retryAfter} + Retry-After, or
//	                    upstream status {error, details}
//	*TransportError   → 502 {error}
//	*UnavailableError → 503 {error, retryAfter} + Retry-After
//	anything else     → 500 {error: "Internal server error"}
func WriteError(ctx *fasthttp.RequestCtx, err error) {
	var (
		validationErr  *ValidationError
		configErr      *ConfigError
		rateLimitErr   *RateLimitError
		upstreamErr    *UpstreamError
		transportErr   *TransportError
		unavailableErr *UnavailableError
	)

	switch {
	case errors.As(err, &validationErr):
		details := validationErr.Details
		if details == nil {
			details = []FieldError{}
		}
		Write(ctx, fasthttp.StatusBadRequest, validationBody{Error: MsgInvalidRequest, Details: details})

	case errors.As(err, &configErr):
		WriteMessage(ctx, fasthttp.StatusInternalServerError, MsgNotConfigured)

	case errors.As(err, &rateLimitErr):
		SetRateLimitHeaders(ctx, rateLimitErr.Limit, rateLimitErr.Remaining)
		ctx.Response.Header.Set("X-RateLimit-Reset", strconv.FormatInt(rateLimitErr.ResetAt.UnixMilli(), 10))
		ctx.Response.Header.Set("Retry-After", strconv.Itoa(rateLimitErr.RetryAfter))
		Write(ctx, fasthttp.StatusTooManyRequests, retryBody{Error: MsgRateLimited, RetryAfter: rateLimitErr.RetryAfter})

	case errors.As(err, &upstreamErr):
		if upstreamErr.Status == fasthttp.StatusTooManyRequests {
			retry := upstreamErr.RetryAfter
			if retry <= 0 {
				retry = DefaultRetryAfter
			}
			ctx.Response.Header.Set("Retry-After", strconv.Itoa(retry))
			Write(ctx, fasthttp.StatusTooManyRequests, upstreamRateLimitBody{
				Error:      MsgUpstreamRateLimited,
				Message:    upstreamErr.Message,
				RetryAfter: retry,
			})
			return
		}
		status := upstreamErr.Status
		if status < 400 || status > 599 {
			status = fasthttp.StatusBadGateway
		}
		Write(ctx, status, upstreamBody{Error: upstreamErr.Message, Details: upstreamErr.Details})

	case errors.As(err, &transportErr):
		WriteMessage(ctx, fasthttp.StatusBadGateway, MsgUpstreamUnreachable)

	case errors.As(err, &unavailableErr):
		ctx.Response.Header.Set("Retry-After", strconv.Itoa(unavailableErr.RetryAfter))
		Write(ctx, fasthttp.StatusServiceUnavailable, retryBody{Error: MsgCircuitOpen, RetryAfter: unavailableErr.RetryAfter})

	default:
		WriteMessage(ctx, fasthttp.StatusInternalServerError, MsgInternal)
	}
}

// SetRateLimitHeaders sets X-RateLimit-Limit and X-RateLimit-Remaining.
func SetRateLimitHeaders(ctx *fasthttp.RequestCtx, limit, remaining int) {
	ctx.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	ctx.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
}

// Kind returns a short label for err, used for metrics and log fields.
func Kind(err error) string {
	var (
		validationErr  *ValidationError
		configErr      *ConfigError
		rateLimitErr   *RateLimitError
		upstreamErr    *UpstreamError
		transportErr   *TransportError
		unavailableErr *UnavailableError
	)
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &configErr):
		return "config"
	case errors.As(err, &rateLimitErr):
		return "rate_limit"
	case errors.As(err, &upstreamErr):
		if upstreamErr.Status == fasthttp.StatusTooManyRequests {
			return "upstream_rate_limit"
		}
		return "upstream"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &unavailableErr):
		return "circuit_open"
	default:
		return "internal"
	}
}
