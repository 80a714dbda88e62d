// Package tokens normalises credential-bearing responses. The remote side is
// not consistent about casing or nesting, so every caller that needs a token
// pair out of a body goes through Extract.
package tokens

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoAccessToken = errors.New("response carries no access token")

// Candidate field names, highest priority first.
var (
	accessFields  = []string{"access_token", "accessToken", "token"}
	refreshFields = []string{"refresh_token", "refreshToken"}
)

// Pair is a credential pair as returned by login, register or refresh.
// Refresh is empty when the server did not rotate it.
type Pair struct {
	Access  string
	Refresh string
}

// Extract pulls a token pair out of body, looking inside a "data" envelope
// first when there is one.
func Extract(body []byte) (Pair, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(Payload(body), &fields); err != nil {
		return Pair{}, fmt.Errorf("decode token response: %w", err)
	}

	p := Pair{
		Access:  firstString(fields, accessFields),
		Refresh: firstString(fields, refreshFields),
	}
	if p.Access == "" {
		return Pair{}, ErrNoAccessToken
	}
	return p, nil
}

// Payload returns the "data" member of an enveloped body, or body itself.
func Payload(body []byte) json.RawMessage {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return body
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return body
	}
	return env.Data
}

func firstString(fields map[string]json.RawMessage, names []string) string {
	for _, name := range names {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			continue
		}
		return s
	}
	return ""
}

// Expiry reads the exp claim of a JWT access token without verifying it.
// Opaque tokens report false.
func Expiry(access string) (time.Time, bool) {
	if access == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
