package tokenstore

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/apiclient/internal/common"
	"github.com/dmitrijs2005/apiclient/internal/logging"
)

type Option func(*Store)

func WithSurface(s Surface) Option {
	return func(st *Store) { st.surfaces = append(st.surfaces, s) }
}

func WithSealer(s *Sealer) Option {
	return func(st *Store) { st.sealer = s }
}

func WithLogger(l logging.Logger) Option {
	return func(st *Store) { st.log = l }
}

// Store is the TokenStore: save, read and clear the credential pair.
type Store struct {
	kv       KV
	surfaces []Surface
	sealer   *Sealer
	log      logging.Logger

	mu      sync.RWMutex
	loaded  bool
	access  string
	refresh string
}

func New(kv KV, opts ...Option) *Store {
	s := &Store{kv: kv, log: logging.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Save records access and, when non-empty, refresh. An empty refresh keeps
// the previously stored one. An empty access is treated as Clear.
func (s *Store) Save(ctx context.Context, access, refresh string) {
	if access == "" {
		s.Clear(ctx)
		return
	}
	// Without a prior load an empty refresh would mask the medium's copy.
	if refresh == "" {
		s.ensureLoaded(ctx)
	}

	s.mu.Lock()
	s.loaded = true
	s.access = access
	if refresh != "" {
		s.refresh = refresh
	}
	s.mu.Unlock()

	values := map[string][]byte{}
	if err := s.put(values, common.AccessTokenKey, access); err != nil {
		s.log.Warn(ctx, "token seal failed", "key", common.AccessTokenKey, "error", err)
		return
	}
	if refresh != "" {
		if err := s.put(values, common.RefreshTokenKey, refresh); err != nil {
			s.log.Warn(ctx, "token seal failed", "key", common.RefreshTokenKey, "error", err)
			return
		}
	}

	if err := s.kv.Set(ctx, values); err != nil {
		s.log.Warn(ctx, "token persistence failed, keeping in-memory copy", "error", err)
	}

	for _, sf := range s.surfaces {
		if err := sf.Save(ctx, access, refresh); err != nil {
			s.log.Warn(ctx, "token surface write failed", "error", err)
		}
	}
}

// Access returns the current access token or "".
func (s *Store) Access(ctx context.Context) string {
	s.ensureLoaded(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// Refresh returns the current refresh token or "".
func (s *Store) Refresh(ctx context.Context) string {
	s.ensureLoaded(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// Clear forgets both tokens in memory, on the medium and on every surface.
// It keeps going past individual failures so no surface is skipped.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.loaded = true
	s.access = ""
	s.refresh = ""
	s.mu.Unlock()

	if err := s.kv.Delete(ctx, common.AccessTokenKey, common.RefreshTokenKey); err != nil {
		s.log.Warn(ctx, "token medium clear failed", "error", err)
	}
	for _, sf := range s.surfaces {
		if err := sf.Clear(ctx); err != nil {
			s.log.Warn(ctx, "token surface clear failed", "error", err)
		}
	}
}

// Reload drops the in-memory copy and re-reads the medium. It is used when
// another process sharing the medium may have rotated the tokens.
func (s *Store) Reload(ctx context.Context) {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
	s.ensureLoaded(ctx)
}

func (s *Store) ensureLoaded(ctx context.Context) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return
	}

	access, err := s.get(ctx, common.AccessTokenKey)
	if err != nil {
		s.log.Warn(ctx, "token medium read failed", "key", common.AccessTokenKey, "error", err)
		return
	}
	refresh, err := s.get(ctx, common.RefreshTokenKey)
	if err != nil {
		s.log.Warn(ctx, "token medium read failed", "key", common.RefreshTokenKey, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A Save or Clear that raced with the read wins.
	if s.loaded {
		return
	}
	s.loaded = true
	s.access = access
	s.refresh = refresh
}

func (s *Store) put(values map[string][]byte, key, value string) error {
	if s.sealer == nil {
		values[key] = []byte(value)
		return nil
	}
	sealed, err := s.sealer.seal(value)
	if err != nil {
		return err
	}
	values[key] = sealed
	return nil
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	b, err := s.kv.Get(ctx, key)
	if err != nil || b == nil {
		return "", err
	}
	if s.sealer == nil {
		return string(b), nil
	}
	return s.sealer.open(b)
}
