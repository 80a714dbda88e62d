package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/apiclient/internal/client/pipeline"
	"github.com/dmitrijs2005/apiclient/internal/client/refresh"
	"github.com/dmitrijs2005/apiclient/internal/client/session"
)

func (a *App) getStatus() string {
	s := ""
	if u := a.state.User(); u != nil && u.Email != "" {
		s = u.Email + " "
	}
	if m := a.mode(); m != "" {
		s = s + string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// describe turns a pipeline failure into a short line for the terminal.
func describe(err error) string {
	switch {
	case errors.Is(err, refresh.ErrNoRefreshToken), errors.Is(err, refresh.ErrRefreshFailed):
		return "session expired, please log in again"
	case errors.Is(err, pipeline.ErrUnauthorized):
		return "not authorized: " + err.Error()
	case errors.Is(err, pipeline.ErrTimeout):
		return "request timed out"
	case errors.Is(err, pipeline.ErrTransport):
		return "server unreachable: " + err.Error()
	}
	return err.Error()
}

func printResponse(resp *pipeline.Response) {
	switch d := resp.Data.(type) {
	case nil:
		printlnFn(fmt.Sprintf("HTTP %d (empty body)", resp.Status))
	case string:
		printlnFn(d)
	default:
		b, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			printlnFn(string(resp.Raw))
			return
		}
		printlnFn(string(b))
	}
}

func printUser(u *session.User) {
	if u == nil {
		printlnFn("(no user)")
		return
	}
	printlnFn("ID:      ", u.ID)
	printlnFn("Email:   ", u.Email)
	if u.Username != "" {
		printlnFn("Username:", u.Username)
	}
	if u.FullName != "" {
		printlnFn("Name:    ", u.FullName)
	}
	printlnFn("Verified:", u.EmailVerified)
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	left := time.Until(t).Round(time.Second)
	if left <= 0 {
		return fmt.Sprintf("%s (expired)", t.Format(time.RFC3339))
	}
	return fmt.Sprintf("%s (in %s)", t.Format(time.RFC3339), left)
}
