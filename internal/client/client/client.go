package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/apiclient/internal/client/config"
	"github.com/dmitrijs2005/apiclient/internal/client/grpcauth"
	"github.com/dmitrijs2005/apiclient/internal/client/mirror"
	"github.com/dmitrijs2005/apiclient/internal/client/pipeline"
	"github.com/dmitrijs2005/apiclient/internal/client/refresh"
	"github.com/dmitrijs2005/apiclient/internal/client/services"
	"github.com/dmitrijs2005/apiclient/internal/client/session"
	"github.com/dmitrijs2005/apiclient/internal/client/tokenstore"
	"github.com/dmitrijs2005/apiclient/internal/filex"
	"github.com/dmitrijs2005/apiclient/internal/logging"
	"github.com/dmitrijs2005/apiclient/internal/netx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
)

var ErrUnknownStoreDriver = errors.New("unknown store driver")

type Client struct {
	Config    *config.Config
	Auth      services.AuthService
	API       *pipeline.Client
	State     *session.State
	Store     *tokenstore.Store
	Bearer    *pipeline.Bearer
	Refresher *refresh.Coordinator
	Mirror    *mirror.OAuth2
	Jar       http.CookieJar
	Registry  *prometheus.Registry

	log     logging.Logger
	closers []func() error
}

// New wires every component from cfg. The session is not restored yet;
// call Auth.Bootstrap before the first authenticated request.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.Nop()
	}
	c := &Client{Config: cfg, log: log}

	kv, err := c.openMedium(ctx)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	storeOpts := []tokenstore.Option{tokenstore.WithLogger(log.With("component", "tokenstore"))}
	if cfg.StorePassphrase != "" {
		sealer, err := tokenstore.NewSealer(ctx, kv, cfg.StorePassphrase)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("token sealer: %w", err)
		}
		storeOpts = append(storeOpts, tokenstore.WithSealer(sealer))
	}

	c.Jar, err = tokenstore.NewJar()
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	if cfg.CookieChannel {
		ch, err := tokenstore.NewCookieChannel(c.Jar, cfg.BaseURL)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		storeOpts = append(storeOpts, tokenstore.WithSurface(ch))
	}
	c.Store = tokenstore.New(kv, storeOpts...)

	c.Bearer = pipeline.NewBearer()
	c.Mirror = mirror.NewOAuth2()
	c.State = session.New(c.Store,
		session.WithCredentialSink(c.Bearer),
		session.WithMirror(c.Mirror),
		session.WithLogger(log.With("component", "session")))

	c.Registry = prometheus.NewRegistry()

	c.Refresher = refresh.New(cfg.BaseURL, c.Store, c.State,
		refresh.WithPath(cfg.RefreshPath),
		refresh.WithTimeout(cfg.RefreshTimeout),
		refresh.WithLogger(log.With("component", "refresh")),
		refresh.WithMetrics(refresh.NewMetrics(c.Registry)))

	c.API = pipeline.New(cfg.BaseURL, c.Bearer,
		pipeline.WithRefresher(c.Refresher),
		pipeline.WithSession(c.State),
		pipeline.WithDefaultTimeout(cfg.RequestTimeout),
		pipeline.WithLogger(log.With("component", "pipeline")),
		pipeline.WithMetrics(pipeline.NewMetrics(c.Registry)))

	c.Auth = services.NewAuthService(c.API, c.State, log.With("component", "auth"))
	return c, nil
}

func (c *Client) openMedium(ctx context.Context) (tokenstore.KV, error) {
	switch c.Config.StoreDriver {
	case config.StoreDriverSQLite:
		path, err := filex.EnsureParentDir(c.Config.StorePath)
		if err != nil {
			return nil, fmt.Errorf("store path: %w", err)
		}
		kv, err := tokenstore.OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, kv.Close)
		return kv, nil

	case config.StoreDriverRedis:
		rdb := redis.NewClient(&redis.Options{Addr: c.Config.RedisAddr})
		c.closers = append(c.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", c.Config.RedisAddr, err)
		}
		return tokenstore.NewRedisKV(rdb, c.Config.RedisPrefix), nil

	case config.StoreDriverMemory:
		return tokenstore.NewMemoryKV(), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStoreDriver, c.Config.StoreDriver)
	}
}

// HTTPClient returns a plain client sharing the cookie jar, for requests
// that bypass the pipeline (downloads, redirects to the API origin). It
// carries credentials only when the cookie channel is enabled.
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{Jar: c.Jar}
}

// Download fetches path relative to the base URL over the raw client.
func (c *Client) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	return netx.Download(ctx, c.HTTPClient(), netx.JoinURL(c.Config.BaseURL, path), w)
}

// Upload PUTs body to path relative to the base URL over the raw client.
func (c *Client) Upload(ctx context.Context, path string, body io.Reader, contentType string) error {
	return netx.Upload(ctx, c.HTTPClient(), netx.JoinURL(c.Config.BaseURL, path), body, contentType)
}

// DialGRPC opens a gRPC connection that shares this client's session.
func (c *Client) DialGRPC(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	conn, err := grpcauth.Dial(target, c.Bearer, c.Refresher, c.State, c.log.With("component", "grpc"), opts...)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, conn.Close)
	return conn, nil
}

// Close releases the medium and any gRPC connections, newest first.
func (c *Client) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
