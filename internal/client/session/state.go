// Package session holds the process-wide session: who is signed in, the
// current credential pair, the bootstrap flag and the last error.
//
// State is the only writer of credentials. Every token change goes through
// SetTokens or Logout, which fan it out to the token store, the request
// pipeline's credential and the session mirror, in that order.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/apiclient/internal/client/mirror"
	"github.com/dmitrijs2005/apiclient/internal/client/tokens"
	"github.com/dmitrijs2005/apiclient/internal/common"
	"github.com/dmitrijs2005/apiclient/internal/logging"
)

// TokenStore is the durable side of the session.
type TokenStore interface {
	Save(ctx context.Context, access, refresh string)
	Access(ctx context.Context) string
	Refresh(ctx context.Context) string
	Clear(ctx context.Context)
}

// CredentialSink is the request pipeline's default credential source.
type CredentialSink interface {
	SetAccessToken(token string)
	ClearAccessToken()
}

type nopSink struct{}

func (nopSink) SetAccessToken(string) {}
func (nopSink) ClearAccessToken()     {}

// Snapshot is a copy of the session at one point in time.
type Snapshot struct {
	User            *User
	AccessToken     string
	RefreshToken    string
	IsLoading       bool
	LastError       string
	AccessExpiresAt time.Time
}

// Authenticated reports whether the snapshot holds a usable session. A cached
// user without an access token does not count.
func (s Snapshot) Authenticated() bool {
	return s.AccessToken != ""
}

type Option func(*State)

func WithCredentialSink(sink CredentialSink) Option {
	return func(s *State) { s.sink = sink }
}

func WithMirror(m mirror.Mirror) Option {
	return func(s *State) { s.mirror = m }
}

func WithLogger(l logging.Logger) Option {
	return func(s *State) { s.log = l }
}

type State struct {
	store  TokenStore
	sink   CredentialSink
	mirror mirror.Mirror
	log    logging.Logger

	mu        sync.RWMutex
	user      *User
	access    string
	refresh   string
	expiresAt time.Time
	loading   bool
	lastErr   string

	// gen counts logouts and explicit token installs. A refresh started in
	// an older generation must not commit.
	gen uint64

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

func New(store TokenStore, opts ...Option) *State {
	s := &State{
		store:   store,
		sink:    nopSink{},
		mirror:  mirror.Noop{},
		log:     logging.Nop(),
		loading: true,
		subs:    make(map[int]func(Snapshot)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetUser replaces the identity record. Tokens are not touched.
func (s *State) SetUser(u *User) {
	s.mu.Lock()
	if u != nil {
		cp := *u
		u = &cp
	}
	s.user = u
	s.mu.Unlock()
	s.notify()
}

// SetTokens is the single choke point for credential changes.
//
// A non-empty access token is persisted, handed to the pipeline and then to
// the mirror. An empty refresh keeps the current one. An empty access token
// clears the pipeline credential, the mirror and the store instead.
func (s *State) SetTokens(ctx context.Context, access, refresh string) {
	if access == "" {
		s.clearCredentials(ctx, false)
		return
	}

	s.mu.Lock()
	s.setTokensLocked(ctx, access, refresh)
	s.gen++
	s.mu.Unlock()

	s.log.Debug(ctx, "session tokens updated", "access", common.Redact(access))
	s.notify()
}

// Generation identifies the current session lifetime. It changes on every
// logout, credential clear or SetTokens call, but not on SetTokensIf.
func (s *State) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// SetTokensIf commits a non-empty pair only while the session is still in
// generation gen. It reports whether the pair was committed.
func (s *State) SetTokensIf(ctx context.Context, gen uint64, access, refresh string) bool {
	if access == "" {
		return false
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.log.Info(ctx, "discarding tokens from an ended session")
		return false
	}
	s.setTokensLocked(ctx, access, refresh)
	s.mu.Unlock()

	s.log.Debug(ctx, "session tokens updated", "access", common.Redact(access))
	s.notify()
	return true
}

func (s *State) setTokensLocked(ctx context.Context, access, refresh string) {
	s.store.Save(ctx, access, refresh)
	if refresh == "" {
		refresh = s.refresh
	}
	if refresh == "" {
		refresh = s.store.Refresh(ctx)
	}
	s.sink.SetAccessToken(access)
	if err := s.mirror.SetSession(ctx, access, refresh); err != nil {
		s.log.Warn(ctx, "session mirror update failed", "error", err)
	}
	s.access = access
	s.refresh = refresh
	s.expiresAt, _ = tokens.Expiry(access)
}

func (s *State) SetLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
	s.notify()
}

// SetError records a diagnostic message. An empty string clears it.
func (s *State) SetError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
	s.notify()
}

// Logout drops the session everywhere. Calling it while logged out is a no-op
// apart from re-clearing the (already empty) surfaces.
func (s *State) Logout(ctx context.Context) {
	s.clearCredentials(ctx, true)
	s.log.Info(ctx, "session cleared")
}

func (s *State) clearCredentials(ctx context.Context, dropUser bool) {
	s.mu.Lock()
	s.sink.ClearAccessToken()
	if err := s.mirror.ClearSession(ctx); err != nil {
		s.log.Warn(ctx, "session mirror clear failed", "error", err)
	}
	s.store.Clear(ctx)
	s.access = ""
	s.refresh = ""
	s.expiresAt = time.Time{}
	s.gen++
	if dropUser {
		s.user = nil
	}
	s.mu.Unlock()
	s.notify()
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		AccessToken:     s.access,
		RefreshToken:    s.refresh,
		IsLoading:       s.loading,
		LastError:       s.lastErr,
		AccessExpiresAt: s.expiresAt,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *State) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// User returns the signed-in identity, or nil when there is no access token
// even if a user record is still cached.
func (s *State) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.access == "" || s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Subscribe registers fn to receive a snapshot after every mutation. fn runs
// on the mutating goroutine and must not call back into mutators.
func (s *State) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *State) notify() {
	snap := s.Snapshot()

	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Rehydrate restores the session from the token store at startup. A stored
// access token is pushed to the pipeline and the mirror before identify runs,
// so the identity check itself is authenticated. A failed identity check
// keeps the tokens; if the failure was an auth failure the pipeline will
// already have logged out. isLoading is false once Rehydrate returns.
func (s *State) Rehydrate(ctx context.Context, identify func(ctx context.Context) (*User, error)) {
	defer s.SetLoading(false)

	access := s.store.Access(ctx)
	refresh := s.store.Refresh(ctx)

	s.mu.Lock()
	s.refresh = refresh
	if access != "" {
		s.access = access
		s.expiresAt, _ = tokens.Expiry(access)
		s.sink.SetAccessToken(access)
		if err := s.mirror.SetSession(ctx, access, refresh); err != nil {
			s.log.Warn(ctx, "session mirror update failed", "error", err)
		}
	}
	s.mu.Unlock()
	s.notify()

	if access == "" {
		s.log.Debug(ctx, "no stored session")
		return
	}
	s.log.Debug(ctx, "session rehydrated", "access", common.Redact(access))

	if identify == nil {
		return
	}
	u, err := identify(ctx)
	if err != nil {
		s.log.Warn(ctx, "identity check failed", "error", err)
		s.SetError(err.Error())
		return
	}
	if s.AccessToken() != "" {
		s.SetUser(u)
		s.SetError("")
	}
}
