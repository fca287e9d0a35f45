// Package auth verifies the bearer tokens the gateway accepts. Tokens are
// minted by the identity provider in front of the platform; Issue exists for
// tests and local tooling.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultLeeway = 30 * time.Second

var ErrInvalidSubject = errors.New("token subject is not a user id")

type Claims struct {
	UserID    uuid.UUID
	ExpiresAt time.Time
}

// Verifier checks HS256 tokens carrying the user id in "sub". When issuer is
// set, tokens from any other issuer are rejected.
type Verifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, leeway: defaultLeeway}
}

func (v *Verifier) Issue(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("Issue: %w", err)
	}
	return signed, nil
}

func (v *Verifier) Verify(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var rc jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(token, &rc, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("Verify: %w", err)
	}

	userID, err := uuid.Parse(rc.Subject)
	if err != nil {
		return nil, fmt.Errorf("Verify: %w: %q", ErrInvalidSubject, rc.Subject)
	}
	return &Claims{UserID: userID, ExpiresAt: rc.ExpiresAt.Time}, nil
}
