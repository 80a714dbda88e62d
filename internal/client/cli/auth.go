package cli

import (
	"context"
	"os"

	"github.com/dmitrijs2005/apiclient/internal/client/services"
	"github.com/dmitrijs2005/apiclient/internal/client/tokens"
	"github.com/dmitrijs2005/apiclient/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for an email, optional username and full name, and a
// password, then creates the account. Servers that answer with tokens log
// the user in at once; otherwise a separate login is needed.
//
// The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Enter username (optional)", os.Stdout)
	if err != nil {
		return err
	}
	fullName, err := getSimpleText(a.reader, "Enter full name (optional)", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.authService.Register(ctx, services.RegisterInput{
		Email:    email,
		Password: string(password),
		Username: username,
		FullName: fullName,
	})
	if err != nil {
		return err
	}

	if a.isLoggedIn() {
		printlnFn("Registered and logged in as", u.Email)
		return nil
	}
	printlnFn("Registered", email+"; log in to continue")
	return nil
}

// Login prompts the user for credentials and authenticates.
//
// The password byte slice is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.authService.Login(ctx, email, string(password))
	if err != nil {
		return err
	}

	printlnFn("Logged in as", u.Email)
	return nil
}

// Logout always ends the local session, whatever the server says.
func (a *App) Logout(ctx context.Context) error {
	a.authService.Logout(ctx)
	printlnFn("Logged out")
	return nil
}

// WhoAmI asks the server for the current identity.
func (a *App) WhoAmI(ctx context.Context) error {
	u, err := a.authService.Me(ctx)
	if err != nil {
		return err
	}
	printUser(u)
	return nil
}

// Status prints the local session snapshot without touching the network.
func (a *App) Status(context.Context) error {
	s := a.state.Snapshot()
	if !s.Authenticated() {
		printlnFn("Not logged in")
	} else {
		printlnFn("Logged in as:", emailOf(s))
		printlnFn("Access token:", common.Redact(s.AccessToken), "expires", formatExpiry(s.AccessExpiresAt))
		printlnFn("Refresh token:", s.RefreshToken != "")
	}
	if s.LastError != "" {
		printlnFn("Last error:", s.LastError)
	}
	if m := a.mode(); m != "" {
		printlnFn("Server:", string(m))
	}
	return nil
}

// Refresh rotates the access token immediately.
func (a *App) Refresh(ctx context.Context) error {
	access, err := a.refresher.Refresh(ctx)
	if err != nil {
		return err
	}
	exp, _ := tokens.Expiry(access)
	printlnFn("Token refreshed, expires", formatExpiry(exp))
	return nil
}

// DeleteAccount removes the remote account after an explicit confirmation.
func (a *App) DeleteAccount(ctx context.Context) error {
	answer, err := getSimpleText(a.reader, "Type DELETE to remove your account", os.Stdout)
	if err != nil {
		return err
	}
	if answer != "DELETE" {
		printlnFn("Cancelled")
		return nil
	}
	if err := a.authService.DeleteAccount(ctx); err != nil {
		return err
	}
	printlnFn("Account deleted")
	return nil
}
