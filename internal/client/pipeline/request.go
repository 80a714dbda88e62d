package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmitrijs2005/apiclient/internal/client/tokens"
)

// Request is one logical request. Body may be nil, []byte, json.RawMessage,
// an io.Reader, Binary, Multipart, or any value that encodes to JSON.
type Request struct {
	Method string
	Path   string
	Body   any
	Header http.Header
	// Timeout overrides the client default. A zero duration disables the
	// pipeline timer.
	Timeout *time.Duration
	// Signal is an external cancellation source. When set it replaces the
	// pipeline timer entirely.
	Signal context.Context
	// SkipRefresh returns a 401 as-is, for endpoints such as login where a
	// 401 means bad credentials rather than an expired token.
	SkipRefresh bool
}

type RequestOption func(*Request)

func WithTimeout(d time.Duration) RequestOption {
	return func(r *Request) { r.Timeout = &d }
}

func WithSignal(signal context.Context) RequestOption {
	return func(r *Request) { r.Signal = signal }
}

func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = http.Header{}
		}
		r.Header.Set(key, value)
	}
}

func WithoutRefresh() RequestOption {
	return func(r *Request) { r.SkipRefresh = true }
}

func NewRequest(method, path string, body any, opts ...RequestOption) *Request {
	r := &Request{Method: method, Path: path, Body: body}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Do sends a request and decodes the response body into T. A non-JSON body
// can be received as a string.
func Do[T any](ctx context.Context, c *Client, method, path string, body any, opts ...RequestOption) (T, error) {
	var out T
	resp, err := c.Send(ctx, NewRequest(method, path, body, opts...))
	if err != nil {
		return out, err
	}
	return decode[T](resp, resp.Raw)
}

// DoData is Do for enveloped responses: it decodes the "data" member when
// present and the whole body otherwise.
func DoData[T any](ctx context.Context, c *Client, method, path string, body any, opts ...RequestOption) (T, error) {
	var out T
	resp, err := c.Send(ctx, NewRequest(method, path, body, opts...))
	if err != nil {
		return out, err
	}
	return decode[T](resp, tokens.Payload(resp.Raw))
}

func decode[T any](resp *Response, raw []byte) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	if s, ok := resp.Data.(string); ok {
		if p, ok := any(&out).(*string); ok {
			*p = s
			return out, nil
		}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &Error{Kind: ErrDecode, Status: resp.Status, Message: "decode response", Body: resp.Data, Err: err}
	}
	return out, nil
}
