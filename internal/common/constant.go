// Package common contains shared constants and helpers used across the
// client components: header names, storage keys and default endpoint paths.
package common

const (
	// AuthorizationHeaderName carries the bearer credential on outbound HTTP
	// requests and, lower-cased, in outgoing gRPC metadata.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix is prepended to the access token in the Authorization header.
	BearerPrefix = "Bearer "

	// RequestIDHeaderName identifies one logical request across its retry.
	RequestIDHeaderName = "X-Request-ID"

	ContentTypeHeaderName = "Content-Type"
	ContentTypeJSON       = "application/json"
)

// Fixed keys under which credentials are persisted on every storage surface.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
	StoreSaltKey    = "store_salt"
)

// Default remote endpoints, relative to the configured base URL.
const (
	RefreshPath  = "/auth/refresh"
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"
	LogoutPath   = "/auth/logout"
	MePath       = "/auth/me"
	HealthPath   = "/health"
)

// Redact shortens a credential for log output, keeping at most four leading
// characters.
func Redact(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}
