// Package client is the composition root of the API client.
//
// # Overview
//
// New turns a config.Config into a ready Client:
//  1. A durable token medium (SQLite with embedded goose migrations, Redis,
//     or memory), optionally sealed with a passphrase-derived key.
//  2. A cookie jar mirroring the tokens for non-pipeline HTTP paths.
//  3. The session state, the pipeline's bearer credential and an OAuth2
//     session mirror, kept consistent through session.State.SetTokens.
//  4. The refresh coordinator and the request pipeline, instrumented with
//     Prometheus collectors on a private registry.
//  5. The AuthService used by the CLI.
//
// # Concurrency & Contexts
//
// A Client is safe for concurrent use. All operations accept context.Context
// and honor cancellation/timeouts.
//
// See Also
//
//   - Entry point: New
//   - Raw paths:   HTTPClient, Download, Upload
//   - gRPC:        DialGRPC
package client
