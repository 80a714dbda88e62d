// Package mirror keeps an external, non-authoritative copy of the session in
// step with the session state. The session never depends on a mirror being
// present: Noop satisfies the interface when there is nothing to mirror to.
package mirror

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/apiclient/internal/client/tokens"
	"golang.org/x/oauth2"
)

var ErrNoSession = errors.New("no session to mirror")

// Mirror receives every credential change made through the session state.
type Mirror interface {
	SetSession(ctx context.Context, access, refresh string) error
	ClearSession(ctx context.Context) error
}

type Noop struct{}

func (Noop) SetSession(context.Context, string, string) error { return nil }
func (Noop) ClearSession(context.Context) error               { return nil }

// OAuth2 mirrors the session as an *oauth2.Token so code written against
// golang.org/x/oauth2 (token sources, oauth2.Transport) sees the same
// credentials as the request pipeline.
type OAuth2 struct {
	mu  sync.RWMutex
	tok *oauth2.Token
}

func NewOAuth2() *OAuth2 {
	return &OAuth2{}
}

func (m *OAuth2) SetSession(_ context.Context, access, refresh string) error {
	tok := &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: refresh,
	}
	if exp, ok := tokens.Expiry(access); ok {
		tok.Expiry = exp
	}

	m.mu.Lock()
	m.tok = tok
	m.mu.Unlock()
	return nil
}

func (m *OAuth2) ClearSession(context.Context) error {
	m.mu.Lock()
	m.tok = nil
	m.mu.Unlock()
	return nil
}

// Token implements oauth2.TokenSource. It never refreshes on its own; rotation
// happens upstream and is pushed in through SetSession.
func (m *OAuth2) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tok == nil {
		return nil, ErrNoSession
	}
	cp := *m.tok
	return &cp, nil
}

func (m *OAuth2) TokenSource() oauth2.TokenSource {
	return m
}

// HTTPClient returns a client whose transport attaches the mirrored bearer
// token on every request. Requests fail with ErrNoSession while logged out.
// The source is not wrapped in oauth2.ReuseTokenSource: a rotated or cleared
// session must be visible on the next request.
func (m *OAuth2) HTTPClient(base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{Transport: &oauth2.Transport{Source: m, Base: base}}
}
