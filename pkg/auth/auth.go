// Package auth verifies bearer identity tokens and carries the caller
// identity through context.Context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getdigitalpayments/paybridge/pkg/apperr"
	"github.com/getdigitalpayments/paybridge/pkg/config"

	"github.com/golang-jwt/jwt"
	"go.uber.org/fx"
)

type ctxKey struct{}

// Identity is the authenticated caller.
type Identity struct {
	UID   string
	Email string
}

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenVerifier turns a bearer token into an Identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller identity, or nil when the request is anonymous.
func FromContext(ctx context.Context) *Identity {
	if ctx == nil {
		return nil
	}
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	if id == nil || id.UID == "" {
		return nil
	}
	return id
}

// Require returns the caller identity or an unauthenticated error.
func Require(ctx context.Context) (*Identity, error) {
	id := FromContext(ctx)
	if id == nil {
		return nil, apperr.Unauthenticated()
	}
	return id, nil
}

// ResolveUser defaults an empty requested user id to the caller and rejects
// ids that belong to someone else.
func (id *Identity) ResolveUser(requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return id.UID, nil
	}
	if requested != id.UID {
		return "", apperr.InvalidArgument("userId does not match the authenticated caller")
	}
	return requested, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	header = strings.Trim(header, "\"' ")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	tok := strings.Trim(parts[1], "\"' ")
	return tok, tok != ""
}

// JWTVerifier validates HMAC-signed tokens that carry an exp claim. The uid is
// read from "user_id", falling back to the standard "sub" claim.
type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(cfg *config.Config) TokenVerifier {
	return &JWTVerifier{secret: []byte(cfg.Auth.JWTSecret), issuer: cfg.Auth.Issuer}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*Identity, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: verifier has no secret configured", ErrInvalidToken)
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signature method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	// MapClaims.Valid skips exp when the claim is absent.
	if !claims.VerifyExpiresAt(time.Now().Unix(), true) {
		return nil, fmt.Errorf("%w: missing exp", ErrInvalidToken)
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}

	uid, _ := claims["user_id"].(string)
	if uid == "" {
		uid, _ = claims["sub"].(string)
	}
	if uid == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)
	return &Identity{UID: uid, Email: email}, nil
}

// IssueToken signs a token for uid. Used by tooling and tests.
func IssueToken(secret, uid string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": uid,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

var Module = fx.Options(
	fx.Provide(NewJWTVerifier),
)
