package auth

import (
	"context"
	"testing"
	"time"

	"github.com/getdigitalpayments/paybridge/pkg/apperr"
	"github.com/getdigitalpayments/paybridge/pkg/config"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
)

func newVerifier(secret string) TokenVerifier {
	return NewJWTVerifier(&config.Config{Auth: config.AuthConfig{JWTSecret: secret}})
}

func TestJWTVerifier_Verify(t *testing.T) {
	tok, err := IssueToken("s3cret", "U1", time.Hour)
	require.NoError(t, err)

	id, err := newVerifier("s3cret").Verify(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, "U1", id.UID)
}

func TestJWTVerifier_RejectsBadTokens(t *testing.T) {
	expired, err := IssueToken("s3cret", "U1", -time.Minute)
	require.NoError(t, err)
	otherKey, err := IssueToken("other", "U1", time.Hour)
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "U1"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"expired":   expired,
		"wrong key": otherKey,
		"no exp":    noExp,
		"garbage":   "not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := newVerifier("s3cret").Verify(context.Background(), tok)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTVerifier_NoSecret(t *testing.T) {
	tok, err := IssueToken("s3cret", "U1", time.Hour)
	require.NoError(t, err)
	_, err = newVerifier("").Verify(context.Background(), tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def")
	require.True(t, ok)
	require.Equal(t, "abc.def", tok)

	_, ok = BearerToken("abc.def")
	require.False(t, ok)
	_, ok = BearerToken("")
	require.False(t, ok)
	_, ok = BearerToken("Bearer ")
	require.False(t, ok)
}

func TestFromContext(t *testing.T) {
	require.Nil(t, FromContext(context.Background()))
	require.Nil(t, FromContext(WithIdentity(context.Background(), &Identity{})))

	ctx := WithIdentity(context.Background(), &Identity{UID: "U1"})
	require.Equal(t, "U1", FromContext(ctx).UID)
}

func TestIdentity_ResolveUser(t *testing.T) {
	id := &Identity{UID: "U1"}

	uid, err := id.ResolveUser("")
	require.NoError(t, err)
	require.Equal(t, "U1", uid)

	uid, err = id.ResolveUser(" U1 ")
	require.NoError(t, err)
	require.Equal(t, "U1", uid)

	_, err = id.ResolveUser("U2")
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestRequire(t *testing.T) {
	_, err := Require(context.Background())
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)

	id, err := Require(WithIdentity(context.Background(), &Identity{UID: "U1"}))
	require.NoError(t, err)
	require.Equal(t, "U1", id.UID)
}
