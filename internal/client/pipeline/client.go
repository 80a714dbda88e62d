// Package pipeline sends authenticated requests to the remote API.
//
// One call to Send is one logical request. The current access token is
// attached as a bearer header, each attempt runs under a timeout unless the
// caller supplies its own cancellation signal, and a 401 triggers at most one
// refresh-and-retry. Whatever happens, the caller gets either a Response or
// an *Error.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/apiclient/internal/client/refresh"
	"github.com/dmitrijs2005/apiclient/internal/common"
	"github.com/dmitrijs2005/apiclient/internal/logging"
	"github.com/dmitrijs2005/apiclient/internal/netx"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultTimeout suits slow backend operations. Pass WithTimeout(0) to
// disable the timer for long-running calls.
const DefaultTimeout = 60 * time.Second

// DefaultMaxResponseBytes caps how much of a response body is read.
const DefaultMaxResponseBytes = 32 << 20

var (
	errTimeoutCause = errors.New("pipeline timeout")
	errSignalCause  = errors.New("caller signal")
)

// Refresher mints a new access token. refresh.Coordinator implements it.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// SessionEnder is told to drop the session when a refresh cannot recover
// from a 401.
type SessionEnder interface {
	Logout(ctx context.Context)
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithRefresher(r Refresher) Option {
	return func(c *Client) { c.refresher = r }
}

func WithSession(s SessionEnder) Option {
	return func(c *Client) { c.session = s }
}

func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithMaxResponseBytes sets the body size cap. A larger response fails with
// ErrDecode instead of being cut short.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

type Client struct {
	baseURL   string
	bearer    *Bearer
	http      *http.Client
	refresher Refresher
	session   SessionEnder
	timeout   time.Duration
	clock     clockwork.Clock
	log       logging.Logger
	metrics   *Metrics
	maxBody   int64
}

func New(baseURL string, bearer *Bearer, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		bearer:  bearer,
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		clock:   clockwork.NewRealClock(),
		log:     logging.Nop(),
		maxBody: DefaultMaxResponseBytes,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Response is a completed 2xx exchange.
type Response struct {
	Status int
	Header http.Header
	Raw    []byte
	// Data is the decoded JSON for structured responses, the body text
	// otherwise, and nil for an empty body.
	Data any
}

// attempt is what one round trip produced before classification.
type attempt struct {
	status int
	header http.Header
	raw    []byte
}

// Send performs req, refreshing and retrying once on 401.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	start := c.clock.Now()
	resp, err := c.send(ctx, req)
	if err != nil {
		c.metrics.observe(req.Method, outcomeOf(err), c.clock.Since(start))
		return nil, err
	}
	c.metrics.observe(req.Method, outcomeSuccess, c.clock.Since(start))
	return resp, nil
}

func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	payload, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, &Error{Kind: ErrTransport, Message: "encode request body", Err: err}
	}

	url := netx.JoinURL(c.baseURL, req.Path)
	requestID := uuid.NewString()
	log := c.log.With("request_id", requestID, "method", req.Method, "path", req.Path)

	token := c.bearer.AccessToken()
	first, err := c.do(ctx, req, url, payload, contentType, token, requestID)
	if err != nil {
		log.Debug(ctx, "request failed", "error", err)
		return nil, err
	}
	log.Debug(ctx, "request sent", "status", first.status)

	if first.status != http.StatusUnauthorized {
		return c.finish(first)
	}
	if req.SkipRefresh || c.refresher == nil {
		return nil, statusError(ErrUnauthorized, first.status, first.raw)
	}

	retryToken, err := c.retryToken(ctx, req, token)
	if err != nil {
		if kind := interruption(ctx, req.Signal); kind != nil {
			return nil, &Error{Kind: kind, Message: "canceled while refreshing", Err: err}
		}
		switch {
		case errors.Is(err, refresh.ErrSessionEnded):
			log.Info(ctx, "session ended while refreshing", "error", err)
		default:
			log.Info(ctx, "refresh failed, ending session", "error", err)
			if c.session != nil {
				c.session.Logout(context.WithoutCancel(ctx))
			}
		}
		e := statusError(ErrUnauthorized, first.status, first.raw)
		e.Err = err
		return nil, e
	}

	c.metrics.retried()
	second, err := c.do(ctx, req, url, payload, contentType, retryToken, requestID)
	if err != nil {
		log.Debug(ctx, "retry failed", "error", err)
		return nil, err
	}
	log.Debug(ctx, "request retried", "status", second.status)

	if second.status == http.StatusUnauthorized {
		return nil, statusError(ErrUnauthorized, second.status, second.raw)
	}
	return c.finish(second)
}

// retryToken picks the token for the single retry. If another request
// already rotated the credential since our first attempt, that newer token is
// reused; otherwise a refresh is performed.
func (c *Client) retryToken(ctx context.Context, req *Request, used string) (string, error) {
	if cur := c.bearer.AccessToken(); cur != "" && cur != used {
		return cur, nil
	}

	rctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if req.Signal != nil {
		stop := context.AfterFunc(req.Signal, func() { cancel(errSignalCause) })
		defer stop()
	}
	return c.refresher.Refresh(rctx)
}

// do runs one attempt. The timer covers the whole exchange including the
// body read and is stopped on every return path.
func (c *Client) do(ctx context.Context, req *Request, url string, payload []byte, contentType, token, requestID string) (*attempt, error) {
	if req.Signal != nil && req.Signal.Err() != nil {
		return nil, &Error{Kind: ErrCanceled, Message: "request canceled by caller", Err: context.Cause(req.Signal)}
	}

	actx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if req.Signal != nil {
		stop := context.AfterFunc(req.Signal, func() { cancel(errSignalCause) })
		defer stop()
	} else if timeout := c.effectiveTimeout(req); timeout > 0 {
		timer := c.clock.AfterFunc(timeout, func() { cancel(errTimeoutCause) })
		defer timer.Stop()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(actx, req.Method, url, body)
	if err != nil {
		return nil, &Error{Kind: ErrTransport, Message: "build request", Err: err}
	}

	if contentType != "" {
		httpReq.Header.Set(common.ContentTypeHeaderName, contentType)
	}
	for k, vs := range req.Header {
		httpReq.Header[k] = append([]string(nil), vs...)
	}
	if token != "" {
		httpReq.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	httpReq.Header.Set(common.RequestIDHeaderName, requestID)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.classify(ctx, actx, req, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, c.classify(ctx, actx, req, err)
	}
	if int64(len(raw)) > c.maxBody {
		return nil, &Error{
			Kind:    ErrDecode,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("response too large: more than %d bytes", c.maxBody),
		}
	}
	return &attempt{status: resp.StatusCode, header: resp.Header, raw: raw}, nil
}

func (c *Client) effectiveTimeout(req *Request) time.Duration {
	if req.Timeout != nil {
		return *req.Timeout
	}
	return c.timeout
}

// classify maps a failed round trip to an error kind. The pipeline timer and
// the caller signal are told apart by their cancellation causes.
func (c *Client) classify(ctx, actx context.Context, req *Request, err error) *Error {
	switch cause := context.Cause(actx); {
	case errors.Is(cause, errSignalCause):
		return &Error{Kind: ErrCanceled, Message: "request canceled by caller", Err: context.Cause(req.Signal)}
	case errors.Is(cause, errTimeoutCause):
		return &Error{Kind: ErrTimeout, Message: "request exceeded " + c.effectiveTimeout(req).String(), Err: err}
	}
	if kind := interruption(ctx, nil); kind != nil {
		return &Error{Kind: kind, Message: "request context done", Err: ctx.Err()}
	}
	return &Error{Kind: ErrTransport, Message: "request failed", Err: err}
}

// interruption reports whether ctx or signal ended, and as which kind.
func interruption(ctx, signal context.Context) error {
	if signal != nil && signal.Err() != nil {
		return ErrCanceled
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	case ctx.Err() != nil:
		return ErrCanceled
	}
	return nil
}

func (c *Client) finish(a *attempt) (*Response, error) {
	if a.status < 200 || a.status >= 300 {
		return nil, statusError(ErrAPI, a.status, a.raw)
	}
	resp := &Response{Status: a.status, Header: a.header, Raw: a.raw}
	if len(a.raw) == 0 {
		return resp, nil
	}
	if isJSON(a.header.Get(common.ContentTypeHeaderName)) {
		var v any
		if err := json.Unmarshal(a.raw, &v); err != nil {
			return nil, &Error{Kind: ErrDecode, Status: a.status, Message: "invalid JSON response", Body: string(a.raw), Err: err}
		}
		resp.Data = v
		return resp, nil
	}
	resp.Data = string(a.raw)
	return resp, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == common.ContentTypeJSON || strings.HasSuffix(mt, "+json")
}
