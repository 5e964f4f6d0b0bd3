package scanning

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies why an engine call failed
type Kind string

const (
	KindUnauthorized   Kind = "unauthorized"
	KindTimeout        Kind = "timeout"
	KindQuotaExceeded  Kind = "quota_exceeded"
	KindMalformedImage Kind = "malformed_image"
	KindNoTextFound    Kind = "no_text_found"
	KindTransport      Kind = "transport"
)

// ErrEngineUnavailable is returned when neither engine produced a result
var ErrEngineUnavailable = errors.New("no OCR engine available")

// EngineError is a failure reported by a single engine call
type EngineError struct {
	Engine string
	Kind   Kind
	Err    error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Engine, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Engine, e.Kind)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is matches another EngineError of the same Kind, so callers can test
// errors.Is(err, &EngineError{Kind: KindTimeout}). An empty Engine in the
// target matches any engine.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Engine == "" || t.Engine == e.Engine)
}

func newEngineError(engine string, kind Kind, err error) *EngineError {
	return &EngineError{Engine: engine, Kind: kind, Err: err}
}

// KindOf reports the Kind of the first EngineError in err's chain
func KindOf(err error) (Kind, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Kind, true
	}
	return "", false
}

// recoverable reports whether the fallback engine should be tried
func (k Kind) recoverable() bool {
	switch k {
	case KindTimeout, KindTransport, KindQuotaExceeded, KindNoTextFound:
		return true
	}
	return false
}

// classifyRequestError maps a failed request to Timeout or Transport
func classifyRequestError(engine string, err error) *EngineError {
	if errors.Is(err, context.DeadlineExceeded) {
		return newEngineError(engine, KindTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newEngineError(engine, KindTimeout, err)
	}
	return newEngineError(engine, KindTransport, err)
}

// classifyStatus maps a non-2xx HTTP status from an engine API
func classifyStatus(engine string, code int, body string) *EngineError {
	err := fmt.Errorf("API error (status %d): %s", code, strings.TrimSpace(body))
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return newEngineError(engine, KindUnauthorized, err)
	case http.StatusTooManyRequests:
		return newEngineError(engine, KindQuotaExceeded, err)
	case http.StatusBadRequest:
		if strings.Contains(body, "API_KEY_INVALID") {
			return newEngineError(engine, KindUnauthorized, err)
		}
		return newEngineError(engine, KindMalformedImage, err)
	case http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return newEngineError(engine, KindMalformedImage, err)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return newEngineError(engine, KindTimeout, err)
	}
	return newEngineError(engine, KindTransport, err)
}
