package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/apiclient/internal/client/session"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	out := captureOutput(t)
	a, auth, _ := newTestApp(t)
	pw := []byte("secret")
	stubPrompts(t, pw, "ann@example.com")

	require.NoError(t, a.Login(context.Background()))

	require.Equal(t, "ann@example.com", auth.loginEmail)
	require.Equal(t, "secret", auth.loginPass)
	require.Equal(t, make([]byte, len(pw)), pw, "password is wiped")
	require.True(t, a.isLoggedIn())
	require.Contains(t, out.String(), "Logged in as ann@example.com")
}

func TestLogin_ErrorPropagates(t *testing.T) {
	a, auth, _ := newTestApp(t)
	auth.loginErr = errors.New("invalid credentials")
	stubPrompts(t, []byte("nope"), "ann@example.com")

	err := a.Login(context.Background())
	require.EqualError(t, err, "invalid credentials")
	require.False(t, a.isLoggedIn())
}

func TestLogin_PromptError(t *testing.T) {
	a, auth, _ := newTestApp(t)
	stubPrompts(t, nil)

	require.Error(t, a.Login(context.Background()))
	require.Empty(t, auth.loginEmail)
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name      string
		regTokens bool
		want      string
	}{
		{name: "server logs in", regTokens: true, want: "Registered and logged in as bob@example.com"},
		{name: "login required", regTokens: false, want: "Registered bob@example.com; log in to continue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t)
			a, auth, _ := newTestApp(t)
			auth.regTokens = tt.regTokens
			stubPrompts(t, []byte("pw"), "bob@example.com", "bob", "Bob B")

			require.NoError(t, a.Register(context.Background()))

			require.Equal(t, "bob@example.com", auth.regIn.Email)
			require.Equal(t, "bob", auth.regIn.Username)
			require.Equal(t, "Bob B", auth.regIn.FullName)
			require.Equal(t, "pw", auth.regIn.Password)
			require.Equal(t, tt.regTokens, a.isLoggedIn())
			require.Contains(t, out.String(), tt.want)
		})
	}
}

func TestLogout(t *testing.T) {
	out := captureOutput(t)
	a, auth, _ := newTestApp(t)
	a.state.SetTokens(context.Background(), "A1", "R1")

	require.NoError(t, a.Logout(context.Background()))
	require.True(t, auth.logoutCalled)
	require.False(t, a.isLoggedIn())
	require.Contains(t, out.String(), "Logged out")
}

func TestWhoAmI(t *testing.T) {
	out := captureOutput(t)
	a, auth, _ := newTestApp(t)
	auth.meUser = &session.User{ID: "u1", Email: "ann@example.com", Username: "ann", EmailVerified: true}

	require.NoError(t, a.WhoAmI(context.Background()))
	s := out.String()
	require.Contains(t, s, "ann@example.com")
	require.Contains(t, s, "Username: ann")
	require.Contains(t, s, "Verified: true")

	auth.meErr = errors.New("down")
	require.EqualError(t, a.WhoAmI(context.Background()), "down")
}

func TestStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous", func(t *testing.T) {
		out := captureOutput(t)
		a, _, _ := newTestApp(t)
		a.state.SetError("identity check failed")

		require.NoError(t, a.Status(ctx))
		require.Contains(t, out.String(), "Not logged in")
		require.Contains(t, out.String(), "Last error: identity check failed")
	})

	t.Run("authenticated", func(t *testing.T) {
		out := captureOutput(t)
		a, _, _ := newTestApp(t)
		a.state.SetTokens(ctx, "abcdefgh", "R1")
		a.state.SetUser(&session.User{ID: "u1", Email: "ann@example.com"})
		a.setMode(ctx, ModeOnline)

		require.NoError(t, a.Status(ctx))
		s := out.String()
		require.Contains(t, s, "Logged in as: ann@example.com")
		require.Contains(t, s, "abcd****")
		require.NotContains(t, s, "abcdefgh")
		require.Contains(t, s, "expires unknown")
		require.Contains(t, s, "Server: online")
	})
}

func TestRefresh(t *testing.T) {
	out := captureOutput(t)
	a, _, _ := newTestApp(t)
	r := &fakeRefresher{token: "A2"}
	a.refresher = r

	require.NoError(t, a.Refresh(context.Background()))
	require.Equal(t, 1, r.calls)
	require.Contains(t, out.String(), "Token refreshed")

	r.err = errors.New("refresh failed")
	require.EqualError(t, a.Refresh(context.Background()), "refresh failed")
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("cancelled", func(t *testing.T) {
		out := captureOutput(t)
		a, auth, _ := newTestApp(t)
		stubPrompts(t, nil, "no")

		require.NoError(t, a.DeleteAccount(ctx))
		require.False(t, auth.deleteCalled)
		require.Contains(t, out.String(), "Cancelled")
	})

	t.Run("confirmed", func(t *testing.T) {
		out := captureOutput(t)
		a, auth, _ := newTestApp(t)
		a.state.SetTokens(ctx, "A1", "R1")
		stubPrompts(t, nil, "DELETE")

		require.NoError(t, a.DeleteAccount(ctx))
		require.True(t, auth.deleteCalled)
		require.False(t, a.isLoggedIn())
		require.Contains(t, out.String(), "Account deleted")
	})

	t.Run("server error", func(t *testing.T) {
		a, auth, _ := newTestApp(t)
		auth.deleteErr = errors.New("forbidden")
		stubPrompts(t, nil, "DELETE")

		require.EqualError(t, a.DeleteAccount(ctx), "forbidden")
	})
}
