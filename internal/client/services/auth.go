// Package services contains application services for the API client.
// This file defines the session lifecycle service: login, registration,
// startup bootstrap, profile updates, logout and account deletion.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/apiclient/internal/client/pipeline"
	"github.com/dmitrijs2005/apiclient/internal/client/session"
	"github.com/dmitrijs2005/apiclient/internal/client/tokens"
	"github.com/dmitrijs2005/apiclient/internal/common"
	"github.com/dmitrijs2005/apiclient/internal/logging"
)

// AuthService defines session operations for the CLI.
//
// Contract:
//   - Login/Register: exchange credentials for a token pair and identity,
//     and install both into the session state.
//   - Bootstrap: restore a stored session and verify it against /auth/me.
//   - Me/UpdateProfile: read or change the identity record (tokens untouched).
//   - Logout: notify the server best-effort, then always clear the session.
//   - DeleteAccount: delete the remote account, then clear the session.
//   - Ping: check server liveness.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*session.User, error)
	Register(ctx context.Context, in RegisterInput) (*session.User, error)
	Bootstrap(ctx context.Context)
	Me(ctx context.Context) (*session.User, error)
	UpdateProfile(ctx context.Context, in ProfileUpdate) (*session.User, error)
	Logout(ctx context.Context)
	DeleteAccount(ctx context.Context) error
	Ping(ctx context.Context) error
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// ProfileUpdate carries only the fields being changed.
type ProfileUpdate struct {
	Username  *string `json:"username,omitempty"`
	FullName  *string `json:"full_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// authService is the concrete AuthService backed by the request pipeline
// and the session state.
type authService struct {
	api   *pipeline.Client
	state *session.State
	log   logging.Logger
}

// NewAuthService constructs an AuthService bound to the given pipeline and state.
func NewAuthService(api *pipeline.Client, state *session.State, log logging.Logger) AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &authService{api: api, state: state, log: log}
}

// Login authenticates with email and password. A 401 here means bad
// credentials, so the refresh cycle is skipped and the current session is
// left as it was.
func (a *authService) Login(ctx context.Context, email, password string) (*session.User, error) {
	body := map[string]string{"email": email, "password": password}
	resp, err := a.api.Send(ctx, pipeline.NewRequest(http.MethodPost, common.LoginPath, body, pipeline.WithoutRefresh()))
	if err != nil {
		a.state.SetError(err.Error())
		return nil, fmt.Errorf("login: %w", err)
	}

	u, err := a.establish(ctx, resp.Raw)
	if err != nil {
		a.state.SetError(err.Error())
		return nil, fmt.Errorf("login: %w", err)
	}
	a.log.Info(ctx, "logged in", "user_id", u.ID)
	return u, nil
}

// Register creates an account. When the server signs the new account in
// straight away the session is established as for Login; when it does not
// (e.g. pending email verification) the returned user is not signed in.
func (a *authService) Register(ctx context.Context, in RegisterInput) (*session.User, error) {
	resp, err := a.api.Send(ctx, pipeline.NewRequest(http.MethodPost, common.RegisterPath, in, pipeline.WithoutRefresh()))
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	u, err := a.establish(ctx, resp.Raw)
	if errors.Is(err, tokens.ErrNoAccessToken) {
		return decodeUser(resp.Raw), nil
	}
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return u, nil
}

// establish installs the pair from an auth response, then the identity. If
// the response carries no user, it is fetched from /auth/me; when that fails
// the new session is dropped again so no half-established state remains.
func (a *authService) establish(ctx context.Context, raw []byte) (*session.User, error) {
	pair, err := tokens.Extract(raw)
	if err != nil {
		return nil, err
	}
	a.state.SetTokens(ctx, pair.Access, pair.Refresh)

	u := decodeUser(raw)
	if u == nil {
		if u, err = a.Me(ctx); err != nil {
			a.state.Logout(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("fetch identity: %w", err)
		}
	}
	a.state.SetUser(u)
	a.state.SetError("")
	return u, nil
}

// Bootstrap rehydrates the session from durable storage. The identity check
// runs through the pipeline, so an expired access token is refreshed on the
// way, and an unrecoverable 401 ends the session.
func (a *authService) Bootstrap(ctx context.Context) {
	a.state.Rehydrate(ctx, a.Me)
}

func (a *authService) Me(ctx context.Context) (*session.User, error) {
	resp, err := a.api.Send(ctx, pipeline.NewRequest(http.MethodGet, common.MePath, nil))
	if err != nil {
		return nil, err
	}
	u := decodeUser(resp.Raw)
	if u == nil {
		return nil, errors.New("identity response carries no user")
	}
	return u, nil
}

func (a *authService) UpdateProfile(ctx context.Context, in ProfileUpdate) (*session.User, error) {
	resp, err := a.api.Send(ctx, pipeline.NewRequest(http.MethodPatch, common.MePath, in))
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	u := decodeUser(resp.Raw)
	if u == nil {
		// Some servers answer 204; re-read the record.
		if u, err = a.Me(ctx); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}
	a.state.SetUser(u)
	return u, nil
}

// Logout tells the server to revoke the refresh token. Whatever the server
// says, the local session is cleared.
func (a *authService) Logout(ctx context.Context) {
	body := map[string]string{common.RefreshTokenKey: a.state.Snapshot().RefreshToken}
	_, err := a.api.Send(ctx, pipeline.NewRequest(http.MethodPost, common.LogoutPath, body, pipeline.WithoutRefresh()))
	if err != nil {
		a.log.Warn(ctx, "server logout failed", "error", err)
	}
	a.state.Logout(ctx)
}

func (a *authService) DeleteAccount(ctx context.Context) error {
	if _, err := a.api.Send(ctx, pipeline.NewRequest(http.MethodDelete, common.MePath, nil)); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	a.state.Logout(ctx)
	return nil
}

// Ping checks server liveness. It never carries or refreshes credentials
// beyond what the pipeline attaches.
func (a *authService) Ping(ctx context.Context) error {
	_, err := a.api.Send(ctx, pipeline.NewRequest(http.MethodGet, common.HealthPath, nil, pipeline.WithoutRefresh()))
	return err
}

// decodeUser finds the identity in an auth or profile response: under
// "user" (bare or inside "data"), or as the payload itself.
func decodeUser(raw []byte) *session.User {
	payload := tokens.Payload(raw)

	var wrapped struct {
		User *session.User `json:"user"`
	}
	if err := json.Unmarshal(payload, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User
	}

	var u session.User
	if err := json.Unmarshal(payload, &u); err != nil || u.ID == "" {
		return nil
	}
	return &u
}
