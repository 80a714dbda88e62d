package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/apiclient/internal/client/pipeline"
	"github.com/dmitrijs2005/apiclient/internal/client/services"
	"github.com/dmitrijs2005/apiclient/internal/client/session"
	"github.com/dmitrijs2005/apiclient/internal/client/tokenstore"
	"github.com/dmitrijs2005/apiclient/internal/logging"
)

type output struct {
	mu    sync.Mutex
	lines []string
}

func (o *output) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return strings.Join(o.lines, "\n")
}

func captureOutput(t *testing.T) *output {
	t.Helper()
	out := &output{}
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		out.mu.Lock()
		defer out.mu.Unlock()
		out.lines = append(out.lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return out
}

// stubPrompts answers text prompts in order and the password prompt with pw.
func stubPrompts(t *testing.T, pw []byte, answers ...string) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(answers) == 0 {
			return "", io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	getPassword = func(_ io.Writer) ([]byte, error) { return pw, nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

type fakeAuth struct {
	state *session.State

	loginEmail, loginPass string
	loginErr              error

	regIn     services.RegisterInput
	regTokens bool
	regErr    error

	meUser *session.User
	meErr  error

	logoutCalled bool
	deleteCalled bool
	deleteErr    error
	pingErr      error
	bootstrapped bool
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*session.User, error) {
	f.loginEmail, f.loginPass = email, password
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	u := &session.User{ID: "u1", Email: email}
	f.state.SetTokens(ctx, "A1", "R1")
	f.state.SetUser(u)
	return u, nil
}

func (f *fakeAuth) Register(ctx context.Context, in services.RegisterInput) (*session.User, error) {
	f.regIn = in
	if f.regErr != nil {
		return nil, f.regErr
	}
	u := &session.User{ID: "u2", Email: in.Email, Username: in.Username}
	if f.regTokens {
		f.state.SetTokens(ctx, "A1", "R1")
		f.state.SetUser(u)
	}
	return u, nil
}

func (f *fakeAuth) Bootstrap(ctx context.Context) {
	f.bootstrapped = true
	f.state.SetLoading(false)
}

func (f *fakeAuth) Me(context.Context) (*session.User, error) { return f.meUser, f.meErr }

func (f *fakeAuth) UpdateProfile(context.Context, services.ProfileUpdate) (*session.User, error) {
	return f.meUser, f.meErr
}

func (f *fakeAuth) Logout(ctx context.Context) {
	f.logoutCalled = true
	f.state.Logout(ctx)
}

func (f *fakeAuth) DeleteAccount(ctx context.Context) error {
	f.deleteCalled = true
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.state.Logout(ctx)
	return nil
}

func (f *fakeAuth) Ping(context.Context) error { return f.pingErr }

type fakeAPI struct {
	reqs []*pipeline.Request
	resp *pipeline.Response
	err  error
}

func (f *fakeAPI) Send(_ context.Context, req *pipeline.Request) (*pipeline.Response, error) {
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

type fakeRefresher struct {
	token string
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

type fakeFiles struct {
	body string
	err  error
	path string
}

func (f *fakeFiles) Download(_ context.Context, path string, w io.Writer) (int64, error) {
	f.path = path
	n, _ := io.WriteString(w, f.body)
	return int64(n), f.err
}

func newTestApp(t *testing.T) (*App, *fakeAuth, *fakeAPI) {
	t.Helper()
	state := session.New(tokenstore.New(tokenstore.NewMemoryKV()))
	auth := &fakeAuth{state: state}
	api := &fakeAPI{}
	a := &App{
		authService:  auth,
		api:          api,
		refresher:    &fakeRefresher{},
		files:        &fakeFiles{},
		state:        state,
		log:          logging.Nop(),
		reader:       bufio.NewReader(strings.NewReader("")),
		pingInterval: defaultPingInterval,
	}
	return a, auth, api
}

func bufioReader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}
