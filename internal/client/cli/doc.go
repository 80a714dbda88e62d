// Package cli provides the interactive command-line front end of the API
// client.
//
// It wires a composed client.Client into a small REPL: prompt for
// credentials, restore the stored session on start, watch server liveness in
// the background and execute user commands against the authenticated
// pipeline.
//
// Key features:
//   - Register / Login / Logout / Delete account
//   - Whoami (server identity) and Status (local session snapshot)
//   - Raw get / post / delete against any API path
//   - Explicit token refresh and file download over the cookie channel
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher and runREPL for details.
package cli
