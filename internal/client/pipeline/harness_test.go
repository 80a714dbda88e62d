package pipeline

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/apiclient/internal/client/refresh"
	"github.com/dmitrijs2005/apiclient/internal/client/session"
	"github.com/dmitrijs2005/apiclient/internal/client/tokenstore"
)

// harness wires a real store, session, bearer and refresh coordinator against
// one httptest server. Requests to /api/auth/refresh go to refreshHandler,
// everything else to apiHandler.
type harness struct {
	srv    *httptest.Server
	kv     *tokenstore.MemoryKV
	store  *tokenstore.Store
	state  *session.State
	bearer *Bearer
	client *Client

	apiCalls     atomic.Int32
	refreshCalls atomic.Int32

	mu     sync.Mutex
	auth   [][]string
	reqIDs []string
	bodies []string
	ctypes []string
}

func newHarness(t *testing.T, api, refreshHandler http.HandlerFunc, opts ...Option) *harness {
	t.Helper()
	h := &harness{}

	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			h.refreshCalls.Add(1)
			refreshHandler(w, r)
			return
		}
		h.apiCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		h.mu.Lock()
		h.auth = append(h.auth, r.Header.Values("Authorization"))
		h.reqIDs = append(h.reqIDs, r.Header.Get("X-Request-ID"))
		h.bodies = append(h.bodies, string(body))
		h.ctypes = append(h.ctypes, r.Header.Get("Content-Type"))
		h.mu.Unlock()
		api(w, r)
	}))
	t.Cleanup(h.srv.Close)

	h.kv = tokenstore.NewMemoryKV()
	h.store = tokenstore.New(h.kv)
	h.bearer = NewBearer()
	h.state = session.New(h.store, session.WithCredentialSink(h.bearer))

	base := h.srv.URL + "/api"
	coord := refresh.New(base, h.store, h.state)
	all := append([]Option{WithRefresher(coord), WithSession(h.state)}, opts...)
	h.client = New(base, h.bearer, all...)
	return h
}

func (h *harness) authHeaders() [][]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]string(nil), h.auth...)
}

func (h *harness) requestIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.reqIDs...)
}

func (h *harness) sentBodies() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.bodies...)
}

func (h *harness) contentTypes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.ctypes...)
}

// bearerGate answers 200 with body for want and 401 for anything else.
func bearerGate(want, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+want {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"token expired"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func writeJSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func noRefresh(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Error("refresh endpoint must not be called")
		w.WriteHeader(http.StatusInternalServerError)
	}
}
