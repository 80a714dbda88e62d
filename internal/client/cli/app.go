package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/apiclient/internal/client/client"
	"github.com/dmitrijs2005/apiclient/internal/client/pipeline"
	"github.com/dmitrijs2005/apiclient/internal/client/services"
	"github.com/dmitrijs2005/apiclient/internal/client/session"
	"github.com/dmitrijs2005/apiclient/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const (
	defaultPingInterval = 30 * time.Second
	pingTimeout         = 3 * time.Second
)

type requester interface {
	Send(ctx context.Context, req *pipeline.Request) (*pipeline.Response, error)
}

type refresher interface {
	Refresh(ctx context.Context) (string, error)
}

type downloader interface {
	Download(ctx context.Context, path string, w io.Writer) (int64, error)
}

type App struct {
	authService  services.AuthService
	api          requester
	refresher    refresher
	files        downloader
	state        *session.State
	log          logging.Logger
	reader       *bufio.Reader
	pingInterval time.Duration

	mu   sync.Mutex
	Mode Mode
}

// NewApp builds the REPL on top of an already composed client.
func NewApp(c *client.Client, log logging.Logger) *App {
	if log == nil {
		log = logging.Nop()
	}
	return &App{
		authService:  c.Auth,
		api:          c.API,
		refresher:    c.Refresher,
		files:        c,
		state:        c.State,
		log:          log,
		reader:       bufio.NewReader(os.Stdin),
		pingInterval: defaultPingInterval,
	}
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.Mode != mode
	a.Mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(ctx, "connectivity changed", "mode", string(mode))
	}
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}

// Run restores the stored session, starts the liveness watcher and blocks in
// the REPL until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printlnFn("Welcome to the API client (type 'help' for commands)")

	a.authService.Bootstrap(ctx)
	if u := a.state.User(); u != nil {
		printlnFn("Restored session for", u.Email)
	}

	stop := a.watchSession()
	defer stop()

	go a.StartOnlineStatusWatcher(ctx, a.pingInterval)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) isLoggedIn() bool {
	return a.state.Snapshot().Authenticated()
}

// watchSession reports when an authenticated session disappears, which is
// how a failed background refresh becomes visible to the user.
func (a *App) watchSession() (cancel func()) {
	var mu sync.Mutex
	was := a.isLoggedIn()
	return a.state.Subscribe(func(s session.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		now := s.Authenticated()
		if was && !now {
			printlnFn("Session ended.")
		}
		was = now
	})
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := a.authService.Ping(pctx)
	cancel()

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

// StartOnlineStatusWatcher pings the server once immediately and then every
// interval until ctx is done, keeping App.Mode current.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}
