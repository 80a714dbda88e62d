// Package tokenstore persists the access and refresh tokens.
//
// A Store keeps an in-memory copy that is authoritative for the life of the
// process and writes through to a durable KV medium (SQLite, Redis or
// memory) and to any number of secondary Surfaces such as the cookie
// channel. Every persistence failure is logged and swallowed: losing the
// durable copy only means the session will not survive a restart, which is
// preferable to failing an unrelated request.
package tokenstore
