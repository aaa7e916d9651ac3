package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors for token validation. All three reject the caller; they
// stay distinct so logs can tell a stale session from a forged one.
var (
	ErrTokenMissing = errors.New("auth: token missing")
	ErrTokenInvalid = errors.New("auth: token invalid")
	ErrTokenExpired = errors.New("auth: token expired")
)

// Issuer mints and validates HS256-signed session tokens. The signing key and
// TTL are fixed at construction; rotating the key invalidates every
// outstanding token, which is the intended behavior. No session state is kept
// server-side.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an Issuer with the given signing secret and token lifetime.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl}
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// Issue produces a signed token for username with issued-at set to now and
// expiry set to now plus the configured TTL.
func (i *Issuer) Issue(username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	})
	return token.SignedString(i.secret)
}

// Validate verifies the token's signature and expiry and returns the subject
// username. It returns ErrTokenMissing for an empty token, ErrTokenExpired
// for a well-signed but stale one, and ErrTokenInvalid for everything else.
func (i *Issuer) Validate(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrTokenMissing
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}

// TTL returns the configured token lifetime, used for cookie expiry.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}
