// Package refresh exchanges the refresh token for a new access token.
//
// Concurrent callers share one network call: when several requests hit an
// expired token together, the first starts the exchange and the rest wait for
// its result.
package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/apiclient/internal/client/tokens"
	"github.com/dmitrijs2005/apiclient/internal/common"
	"github.com/dmitrijs2005/apiclient/internal/logging"
	"github.com/dmitrijs2005/apiclient/internal/netx"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrRefreshFailed  = errors.New("token refresh failed")
	// ErrSessionEnded means the session was cleared while the exchange was in
	// flight and its result was discarded.
	ErrSessionEnded = errors.New("session ended during refresh")
)

const (
	DefaultTimeout = 10 * time.Second

	flightKey    = "refresh"
	maxBodyBytes = 1 << 20
)

// TokenSource yields the stored refresh token. It is read from durable
// storage rather than session memory, which may be stale after a reload.
type TokenSource interface {
	Refresh(ctx context.Context) string
}

// TokenSetter receives the rotated pair. Only the session state implements it.
// The pair is committed only if the session generation read before the
// exchange is still current.
type TokenSetter interface {
	Generation() uint64
	SetTokensIf(ctx context.Context, gen uint64, access, refresh string) bool
}

type Option func(*Coordinator)

func WithHTTPClient(c *http.Client) Option {
	return func(co *Coordinator) { co.http = c }
}

func WithPath(p string) Option {
	return func(co *Coordinator) { co.path = p }
}

func WithTimeout(d time.Duration) Option {
	return func(co *Coordinator) { co.timeout = d }
}

func WithLogger(l logging.Logger) Option {
	return func(co *Coordinator) { co.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(co *Coordinator) { co.metrics = m }
}

type Coordinator struct {
	baseURL string
	path    string
	timeout time.Duration
	http    *http.Client
	store   TokenSource
	sess    TokenSetter
	log     logging.Logger
	metrics *Metrics

	group singleflight.Group
}

func New(baseURL string, store TokenSource, sess TokenSetter, opts ...Option) *Coordinator {
	c := &Coordinator{
		baseURL: baseURL,
		path:    common.RefreshPath,
		timeout: DefaultTimeout,
		http:    http.DefaultClient,
		store:   store,
		sess:    sess,
		log:     logging.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Refresh returns a fresh access token, joining an exchange already in
// flight if there is one.
//
// The exchange itself is detached from ctx and bounded by the refresh
// timeout, so one caller giving up does not fail the others. A caller whose
// ctx ends first gets ctx.Err().
//
// On failure the session is left untouched; deciding to log out is up to the
// caller.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	ch := c.group.DoChan(flightKey, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.exchange(fctx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.metrics.observe(resultCoalesced)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Coordinator) exchange(ctx context.Context) (string, error) {
	gen := c.sess.Generation()
	refresh := c.store.Refresh(ctx)
	if refresh == "" {
		c.metrics.observe(resultNoToken)
		return "", ErrNoRefreshToken
	}

	access, rotated, err := c.call(ctx, refresh)
	if err != nil {
		c.metrics.observe(resultFailed)
		c.log.Warn(ctx, "token refresh failed", "error", err)
		return "", err
	}

	if !c.sess.SetTokensIf(ctx, gen, access, rotated) {
		c.metrics.observe(resultDiscarded)
		return "", ErrSessionEnded
	}
	c.metrics.observe(resultSuccess)
	c.log.Debug(ctx, "token refreshed", "access", common.Redact(access), "rotated", rotated != "")
	return access, nil
}

func (c *Coordinator) call(ctx context.Context, refresh string) (access, rotated string, err error) {
	payload, err := json.Marshal(map[string]string{common.RefreshTokenKey: refresh})
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, netx.JoinURL(c.baseURL, c.path), bytes.NewReader(payload))
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	req.Header.Set(common.ContentTypeHeaderName, common.ContentTypeJSON)
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return "", "", fmt.Errorf("%w: read body: %w", ErrRefreshFailed, err)
	}
	if len(body) > maxBodyBytes {
		return "", "", fmt.Errorf("%w: response too large", ErrRefreshFailed)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("%w: HTTP %d", ErrRefreshFailed, resp.StatusCode)
	}

	pair, err := tokens.Extract(body)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	return pair.Access, pair.Refresh, nil
}
