// Package auth issues and verifies the bearer tokens of storefront customers and the
// session cookies of console staff, and stores the accounts behind them.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"hotelsuite/internal/api"
)

const (
	AudienceStorefront = "storefront"
	AudienceConsole    = "console"

	issuer = "hotelsuite"
)

type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email"`
	Role  string `json:"role"`
}

// Tokens signs HS256 JWTs. Storefront and console tokens share the secret and are kept
// apart by audience.
type Tokens struct {
	Secret []byte
	Now    func() time.Time
}

func (t Tokens) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t Tokens) Issue(u User, audience string, ttl time.Duration) (string, *Claims, error) {
	if len(t.Secret) == 0 {
		return "", nil, errors.New("missing jwt secret")
	}
	now := t.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   u.ID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: u.Email,
		Role:  string(u.Role),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify checks signature, time window, issuer and audience and returns the principal.
func (t Tokens) Verify(raw, audience string) (*api.Principal, error) {
	if raw == "" {
		return nil, fmt.Errorf("missing token")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(t.now),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	tok, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token")
	}
	return &api.Principal{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
