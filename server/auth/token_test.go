package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hsarchitect/folio/config"
)

func testTokens() *Tokens {
	return NewTokens(config.Auth{JwtSecret: "0123456789abcdef0123", JwtTTL: time.Hour})
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		name   string
		value  string
		expect string
	}{
		{name: "empty", value: "", expect: ""},
		{name: "no scheme", value: "token", expect: ""},
		{name: "wrong scheme", value: "Basic abc", expect: ""},
		{name: "valid", value: "Bearer abc123", expect: "abc123"},
		{name: "case insensitive", value: "bearer token", expect: "token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractBearerToken(tc.value); got != tc.expect {
				t.Fatalf("ExtractBearerToken(%q) = %q, want %q", tc.value, got, tc.expect)
			}
		})
	}
}

func TestIssueAndVerify(t *testing.T) {
	tokens := testTokens()

	signed, exp, err := tokens.Issue(7, "admin@example.org", RoleAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected future expiry, got %v", exp)
	}

	claims, err := tokens.Verify(signed)
	if err != nil {
		t.Fatalf("unexpected verify error: %v", err)
	}
	if claims.UserID() != 7 || claims.Email != "admin@example.org" || claims.Role != RoleAdmin {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	tokens := testTokens()
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	signed, _, err := tokens.Issue(1, "a@example.org", RoleAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tokens.now = time.Now
	if _, err := tokens.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	other := NewTokens(config.Auth{JwtSecret: "another-secret-value-xx"})
	signed, _, _ := other.Issue(1, "a@example.org", RoleAdmin)

	if _, err := testTokens().Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "role": "admin", "exp": time.Now().Add(time.Hour).Unix()})
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := testTokens().Verify(signed); err == nil {
		t.Fatalf("expected unsigned token to be rejected")
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	if _, err := testTokens().Verify(""); err != ErrEmptyToken {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
}

func TestIssueWithoutSecret(t *testing.T) {
	if _, _, err := NewTokens(config.Auth{}).Issue(1, "a@example.org", RoleAdmin); err != ErrNoSecret {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !CheckPassword(hash, "correct horse") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected mismatch")
	}
	if CheckPassword("", "anything") {
		t.Fatalf("expected empty hash to never match")
	}
}

func TestAddAndGetClaims(t *testing.T) {
	claims := &Claims{Role: RoleAdmin}
	ctx := AddClaims(context.Background(), claims)

	if got := GetClaims(ctx); got != claims {
		t.Fatalf("expected claims to round-trip via context")
	}
	if GetClaims(context.Background()) != nil {
		t.Fatalf("expected nil claims on empty context")
	}
}

func TestRequestIsAdmin(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if RequestIsAdmin(req) {
		t.Fatalf("expected false when no claims in context")
	}

	req = req.WithContext(AddClaims(req.Context(), &Claims{Role: "editor"}))
	if RequestIsAdmin(req) {
		t.Fatalf("expected false for non-admin role")
	}

	req = req.WithContext(AddClaims(req.Context(), &Claims{Role: RoleAdmin}))
	if !RequestIsAdmin(req) {
		t.Fatalf("expected true for admin role")
	}
}
