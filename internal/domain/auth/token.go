// Package auth issues and verifies the bearer tokens that guard the
// mutating API endpoints.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arth-1/socialpost/internal/platform/errors"
)

// Claims carried by an API token.
type Claims struct {
	jwt.RegisteredClaims
}

// AuthToken signs and verifies client scoped JWT tokens.
type AuthToken struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthToken builds a token helper using the provided secret.
func NewAuthToken(secretKey, issuer string) (*AuthToken, error) {
	if secretKey == "" {
		return nil, errors.New(errors.KindConfig, "auth.token", "auth token secret is empty")
	}
	return &AuthToken{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		ttl:       24 * time.Hour,
		now:       time.Now,
	}, nil
}

// WithTTL allows customising the expiration duration.
func (at *AuthToken) WithTTL(ttl time.Duration) *AuthToken {
	if ttl > 0 {
		at.ttl = ttl
	}
	return at
}

// GenerateToken issues a JWT for subject.
func (at *AuthToken) GenerateToken(subject string) (string, time.Time, error) {
	now := at.now()
	expires := now.Add(at.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    at.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(at.secretKey)
	if err != nil {
		return "", time.Time{}, errors.Wrap(errors.KindAuthentication, "auth.token", "failed to sign token", err)
	}
	return signed, expires, nil
}

// VerifyToken validates the JWT and returns its claims.
func (at *AuthToken) VerifyToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(at.now),
		jwt.WithExpirationRequired(),
	}
	if at.issuer != "" {
		opts = append(opts, jwt.WithIssuer(at.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return at.secretKey, nil
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(errors.KindAuthentication, "auth.token", "invalid token", err)
	}
	if !token.Valid {
		return nil, errors.New(errors.KindAuthentication, "auth.token", "invalid token")
	}
	return claims, nil
}
