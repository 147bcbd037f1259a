package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClaims(sub string, ttl time.Duration) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Email: sub + "@example.com",
	}
}

func TestVerifier(t *testing.T) {
	v := NewVerifier("secret", DefaultAudience)

	t.Run("round trip", func(t *testing.T) {
		token, err := v.Sign(testClaims("user-1", time.Hour))
		require.NoError(t, err)

		claims, err := v.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.Subject)
		assert.Equal(t, "user-1@example.com", claims.Email)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := v.Sign(testClaims("user-1", -time.Minute))
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no expiry", func(t *testing.T) {
		token, err := v.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}})
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewVerifier("other", DefaultAudience).Sign(testClaims("user-1", time.Hour))
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		c := testClaims("user-1", time.Hour)
		c.Audience = jwt.ClaimStrings{"anon"}
		token, err := v.Sign(c)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		token, err := v.Sign(testClaims("", time.Hour))
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unconfigured", func(t *testing.T) {
		_, err := NewVerifier("", "").Verify("x.y.z")
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.False(t, NewVerifier("", "").Configured())
	})
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		cookie  string
		want    string
		wantErr error
	}{
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "bearer wins over cookie", header: "Bearer abc", cookie: "def", want: "abc"},
		{name: "cookie", cookie: "def", want: "def"},
		{name: "basic auth", header: "Basic abc", wantErr: ErrInvalidToken},
		{name: "empty bearer", header: "Bearer  ", wantErr: ErrInvalidToken},
		{name: "nothing", wantErr: ErrNoToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tt.cookie})
			}
			got, err := TokenFromRequest(r)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
