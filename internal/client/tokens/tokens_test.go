package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Pair
		wantErr error
	}{
		{
			name: "snake case bare",
			body: `{"access_token":"A2","refresh_token":"R2"}`,
			want: Pair{Access: "A2", Refresh: "R2"},
		},
		{
			name: "camel case bare",
			body: `{"accessToken":"A2","refreshToken":"R2"}`,
			want: Pair{Access: "A2", Refresh: "R2"},
		},
		{
			name: "token only, no rotation",
			body: `{"token":"A2"}`,
			want: Pair{Access: "A2"},
		},
		{
			name: "data envelope",
			body: `{"data":{"accessToken":"A2"},"message":"ok"}`,
			want: Pair{Access: "A2"},
		},
		{
			name: "priority order",
			body: `{"token":"T","accessToken":"C","access_token":"S"}`,
			want: Pair{Access: "S"},
		},
		{
			name: "empty higher-priority field falls through",
			body: `{"access_token":"","token":"T"}`,
			want: Pair{Access: "T"},
		},
		{
			name: "non-string values ignored",
			body: `{"access_token":42,"accessToken":"C"}`,
			want: Pair{Access: "C"},
		},
		{
			name:    "missing access token",
			body:    `{"refresh_token":"R2"}`,
			wantErr: ErrNoAccessToken,
		},
		{
			name:    "null data",
			body:    `{"data":null}`,
			wantErr: ErrNoAccessToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract([]byte(tt.body))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_NotJSON(t *testing.T) {
	_, err := Extract([]byte("<html>bad gateway</html>"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoAccessToken)
}

func TestPayload(t *testing.T) {
	assert.JSONEq(t, `{"id":"u1"}`, string(Payload([]byte(`{"data":{"id":"u1"}}`))))
	assert.JSONEq(t, `{"id":"u1"}`, string(Payload([]byte(`{"id":"u1"}`))))
	assert.JSONEq(t, `[1,2]`, string(Payload([]byte(`[1,2]`))))
	assert.Equal(t, "plain", string(Payload([]byte("plain"))))
}

func TestExpiry(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("any-key"))
	require.NoError(t, err)

	got, ok := Expiry(signed)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, ok = Expiry(noExp)
	assert.False(t, ok)

	_, ok = Expiry("opaque-token")
	assert.False(t, ok)

	_, ok = Expiry("")
	assert.False(t, ok)
}
