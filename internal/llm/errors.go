package llm

import "fmt"

// ErrorKind classifies provider failures for diagnostic rendering.
type ErrorKind string

// Error kinds.
const (
	KindConnection ErrorKind = "connection"  // transport-level failure
	KindAuth       ErrorKind = "auth"        // 401/403
	KindRateLimit  ErrorKind = "rate_limit"  // 429
	KindServer     ErrorKind = "server"      // 5xx
	KindBadRequest ErrorKind = "bad_request" // other 4xx
	KindStream     ErrorKind = "stream"      // failure mid-stream
)

// APIError is a typed provider failure. StatusCode and Body are zero for
// transport and stream errors.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	cause      error
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("llm %s error: %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("llm %s error: status %d: %s", e.Kind, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.cause }

// Reason renders a short human-readable cause for in-stream diagnostics.
func (e *APIError) Reason() string {
	switch e.Kind {
	case KindConnection:
		return "the language model could not be reached"
	case KindAuth:
		return "the language model rejected the API key"
	case KindRateLimit:
		return "the language model is rate limiting requests"
	case KindServer:
		return fmt.Sprintf("the language model returned a server error (%d)", e.StatusCode)
	case KindStream:
		return "the response stream was interrupted"
	default:
		return fmt.Sprintf("the language model rejected the request (%d)", e.StatusCode)
	}
}

func classifyStatus(code int) ErrorKind {
	switch {
	case code == 401 || code == 403:
		return KindAuth
	case code == 429:
		return KindRateLimit
	case code >= 500:
		return KindServer
	default:
		return KindBadRequest
	}
}
