package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/dmitrijs2005/apiclient/internal/client/pipeline"
	"github.com/dmitrijs2005/apiclient/internal/client/session"
	"github.com/dmitrijs2005/apiclient/internal/filex"
)

var getMultiline = GetMultiline

var errInvalidJSON = errors.New("body is not valid JSON")

func (a *App) Get(ctx context.Context, path string) error {
	return a.send(ctx, http.MethodGet, path, nil)
}

func (a *App) Delete(ctx context.Context, path string) error {
	return a.send(ctx, http.MethodDelete, path, nil)
}

// Post reads a JSON body interactively and sends it to path. An empty body
// posts nothing.
func (a *App) Post(ctx context.Context, path string) error {
	text, err := getMultiline(a.reader, "Enter JSON body", os.Stdout)
	if err != nil {
		return err
	}
	var body any
	if text != "" {
		if !json.Valid([]byte(text)) {
			return errInvalidJSON
		}
		body = json.RawMessage(text)
	}
	return a.send(ctx, http.MethodPost, path, body)
}

func (a *App) send(ctx context.Context, method, path string, body any) error {
	resp, err := a.api.Send(ctx, pipeline.NewRequest(method, path, body))
	if err != nil {
		return err
	}
	printResponse(resp)
	return nil
}

// Download writes the resource at path to dest, creating parent
// directories as needed.
func (a *App) Download(ctx context.Context, path, dest string) error {
	abs, err := filex.EnsureParentDir(dest)
	if err != nil {
		return err
	}
	f, err := os.Create(abs)
	if err != nil {
		return err
	}

	n, err := a.files.Download(ctx, path, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(abs)
		return err
	}

	printlnFn(fmt.Sprintf("Saved %d bytes to %s", n, abs))
	return nil
}

func emailOf(s session.Snapshot) string {
	if s.User == nil || s.User.Email == "" {
		return "(unknown user)"
	}
	return s.User.Email
}
