package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by Send is an *Error whose Kind is one of
// these, so callers can branch with errors.Is.
var (
	// ErrTransport: the request never produced an HTTP response.
	ErrTransport = errors.New("transport error")
	// ErrTimeout: the pipeline's own deadline (or the caller's ctx deadline) elapsed.
	ErrTimeout = errors.New("request timed out")
	// ErrCanceled: the caller's signal or ctx was canceled.
	ErrCanceled = errors.New("request canceled")
	// ErrUnauthorized: a 401 that survived the refresh-and-retry cycle.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAPI: any other non-2xx response.
	ErrAPI = errors.New("api error")
	// ErrDecode: a 2xx body that does not fit the requested type, or any
	// body over the size cap.
	ErrDecode = errors.New("response decode error")
)

// Error is the single error shape the pipeline returns.
type Error struct {
	Kind    error
	Status  int
	Message string
	// Body is the parsed JSON error body, or the raw text when it is not JSON.
	Body any
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && e.Message != e.Err.Error() {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// statusError builds the error for a non-2xx response.
func statusError(kind error, status int, raw []byte) *Error {
	body := parseErrorBody(raw)
	return &Error{
		Kind:    kind,
		Status:  status,
		Message: errorMessage(status, body, raw),
		Body:    body,
	}
}

func parseErrorBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// errorMessage picks, in order: error.message, message, the raw text, and
// finally "HTTP <status>".
func errorMessage(status int, body any, raw []byte) string {
	if m, ok := body.(map[string]any); ok {
		if nested, ok := m["error"].(map[string]any); ok {
			if s, ok := nested["message"].(string); ok && s != "" {
				return s
			}
		}
		if s, ok := m["message"].(string); ok && s != "" {
			return s
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}
