package pipeline

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestDo_DecodesBody(t *testing.T) {
	h := newHarness(t, writeJSON(http.StatusOK, `{"id":"1","name":"bench"}`), noRefresh(t))

	got, err := Do[item](context.Background(), h.client, http.MethodGet, "/items/1", nil)
	require.NoError(t, err)
	assert.Equal(t, item{ID: "1", Name: "bench"}, got)
}

func TestDoData_UnwrapsEnvelope(t *testing.T) {
	h := newHarness(t, writeJSON(http.StatusOK, `{"data":[{"id":"1"},{"id":"2"}],"message":"ok"}`), noRefresh(t))

	got, err := DoData[[]item](context.Background(), h.client, http.MethodGet, "/items", nil)
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: "1"}, {ID: "2"}}, got)
}

func TestDoData_BarePayload(t *testing.T) {
	h := newHarness(t, writeJSON(http.StatusOK, `{"id":"7"}`), noRefresh(t))

	got, err := DoData[item](context.Background(), h.client, http.MethodGet, "/items/7", nil)
	require.NoError(t, err)
	assert.Equal(t, "7", got.ID)
}

func TestDo_TextAsString(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong"))
	}, noRefresh(t))

	got, err := Do[string](context.Background(), h.client, http.MethodGet, "/ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
}

func TestDo_EmptyBody(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, noRefresh(t))

	got, err := Do[*item](context.Background(), h.client, http.MethodDelete, "/items/1", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDo_DecodeMismatch(t *testing.T) {
	h := newHarness(t, writeJSON(http.StatusOK, `["not","an","object"]`), noRefresh(t))

	_, err := Do[item](context.Background(), h.client, http.MethodGet, "/items/1", nil)
	require.ErrorIs(t, err, ErrDecode)
}

func TestDo_PropagatesPipelineError(t *testing.T) {
	h := newHarness(t, writeJSON(http.StatusNotFound, `{"message":"no such item"}`), noRefresh(t))

	_, err := Do[item](context.Background(), h.client, http.MethodGet, "/items/404", nil)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusNotFound, pe.Status)
	assert.Equal(t, "no such item", pe.Message)
}

func TestRequestOptions(t *testing.T) {
	signal := context.Background()
	r := NewRequest(http.MethodPost, "/p", nil,
		WithTimeout(0),
		WithSignal(signal),
		WithHeader("X-Trace", "t1"),
		WithoutRefresh())

	require.NotNil(t, r.Timeout)
	assert.Equal(t, time.Duration(0), *r.Timeout)
	assert.Equal(t, signal, r.Signal)
	assert.Equal(t, "t1", r.Header.Get("X-Trace"))
	assert.True(t, r.SkipRefresh)
}

func TestError_Format(t *testing.T) {
	e := &Error{Kind: ErrAPI, Status: 409, Message: "already exists"}
	assert.Equal(t, "api error (HTTP 409): already exists", e.Error())

	e = &Error{Kind: ErrTransport, Message: "request failed", Err: context.DeadlineExceeded}
	assert.Equal(t, "transport error: request failed: context deadline exceeded", e.Error())
	assert.ErrorIs(t, e, context.DeadlineExceeded)
}

func TestBearer(t *testing.T) {
	b := NewBearer()
	assert.Empty(t, b.AccessToken())
	b.SetAccessToken("A1")
	assert.Equal(t, "A1", b.AccessToken())
	b.ClearAccessToken()
	assert.Empty(t, b.AccessToken())
}
