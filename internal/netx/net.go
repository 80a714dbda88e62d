// Package netx holds small HTTP helpers for the paths that do not go through
// the request pipeline: joining endpoint URLs and raw transfers that rely on
// the cookie channel for their credentials.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// JoinURL appends path to base with exactly one slash between them. An
// absolute path (one with a scheme) is returned unchanged.
func JoinURL(base, path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// Upload PUTs body to url with the given content type.
func Upload(ctx context.Context, client *http.Client, url string, body io.Reader, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

// Download GETs url and copies the body into w, returning the byte count.
func Download(ctx context.Context, client *http.Client, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download: %w", err)
	}
	return n, nil
}
