package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestVerify_AudienceAndExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tokens := Tokens{Secret: []byte("test_secret"), Now: func() time.Time { return now }}
	u := User{ID: "u-1", Email: "ada@example.com", Role: RoleCustomer}

	raw, claims, err := tokens.Issue(u, AudienceStorefront, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if claims.ID == "" {
		t.Fatalf("expected a session id")
	}

	p, err := tokens.Verify(raw, AudienceStorefront)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.UserID != "u-1" || p.Email != "ada@example.com" || p.SessionID != claims.ID {
		t.Fatalf("principal mismatch: %+v", p)
	}

	if _, err := tokens.Verify(raw, AudienceConsole); err == nil {
		t.Fatalf("storefront token accepted by console")
	}

	later := Tokens{Secret: tokens.Secret, Now: func() time.Time { return now.Add(11 * time.Minute) }}
	if _, err := later.Verify(raw, AudienceStorefront); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestVerify_RejectsOtherSecretAndAlgorithm(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tokens := Tokens{Secret: []byte("test_secret"), Now: func() time.Time { return now }}

	other := Tokens{Secret: []byte("other"), Now: tokens.Now}
	raw, _, err := other.Issue(User{ID: "u-1"}, AudienceConsole, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tokens.Verify(raw, AudienceConsole); err == nil {
		t.Fatalf("token signed with another secret accepted")
	}

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u-1",
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{AudienceConsole},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := tokens.Verify(none, AudienceConsole); err == nil {
		t.Fatalf("unsigned token accepted")
	}

	if _, err := tokens.Verify("", AudienceConsole); err == nil {
		t.Fatalf("empty token accepted")
	}
}
