package tokenstore

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/dmitrijs2005/apiclient/internal/common"
	"golang.org/x/net/publicsuffix"
)

// Surface is a secondary place credentials are mirrored to, besides the
// durable KV. Clear must remove every trace the surface holds.
type Surface interface {
	Save(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
}

// NewJar returns a cookie jar that honours the public suffix list.
func NewJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// CookieChannel writes credentials as cookies for the API origin, so plain
// http.Client calls sharing the jar (downloads, redirects, streaming) carry
// them without going through the pipeline.
type CookieChannel struct {
	jar    http.CookieJar
	origin *url.URL
}

func NewCookieChannel(jar http.CookieJar, baseURL string) (*CookieChannel, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("cookie channel: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("cookie channel: base URL %q must be absolute", baseURL)
	}
	origin := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
	return &CookieChannel{jar: jar, origin: origin}, nil
}

func (c *CookieChannel) Save(_ context.Context, access, refresh string) error {
	cookies := []*http.Cookie{c.cookie(common.AccessTokenKey, access)}
	if refresh != "" {
		cookies = append(cookies, c.cookie(common.RefreshTokenKey, refresh))
	}
	c.jar.SetCookies(c.origin, cookies)
	return nil
}

func (c *CookieChannel) Clear(_ context.Context) error {
	expired := []*http.Cookie{
		c.cookie(common.AccessTokenKey, ""),
		c.cookie(common.RefreshTokenKey, ""),
	}
	for _, ck := range expired {
		ck.MaxAge = -1
	}
	c.jar.SetCookies(c.origin, expired)
	return nil
}

// Value returns the cookie currently held for name, or "".
func (c *CookieChannel) Value(name string) string {
	for _, ck := range c.jar.Cookies(c.origin) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func (c *CookieChannel) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Secure:   c.origin.Scheme == "https",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
