// Package auth verifies identity assertions from the external provider.
// The provider is a collaborator, not something we own: we consume a signed
// token carrying (email, name) and authorize by exact match against the one
// allow-listed email.
package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/abaev/quizdrill/internal/model"
)

var (
	// ErrInvalidToken means the assertion failed signature or shape checks.
	ErrInvalidToken = errors.New("invalid identity token")
	// ErrNotAllowed means the identity is valid but not the allow-listed email.
	ErrNotAllowed = errors.New("email is not authorized")
)

// Verifier turns a provider access token into a Principal.
type Verifier interface {
	Verify(token string) (model.Principal, error)
}

// Claims is the identity payload the provider signs.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenVerifier verifies HS256 identity tokens with a shared secret.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for the given shared secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token and extracts the principal.
func (v *TokenVerifier) Verify(token string) (model.Principal, error) {
	t, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !t.Valid {
		return model.Principal{}, ErrInvalidToken
	}
	c, ok := t.Claims.(*Claims)
	if !ok || c.Email == "" {
		return model.Principal{}, ErrInvalidToken
	}
	return model.Principal{Email: c.Email, Name: c.Name, AccessToken: token}, nil
}

// SignToken mints an identity token. Real deployments get tokens from the
// provider; this is the dev/test issuer.
func SignToken(secret, email, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Authorize checks the principal against the single allow-listed email.
// Authorization is exact email match, not role based.
func Authorize(p model.Principal, allowedEmail string) error {
	if allowedEmail == "" || p.Email != allowedEmail {
		return ErrNotAllowed
	}
	return nil
}
