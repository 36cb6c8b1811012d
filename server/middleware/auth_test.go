package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hsarchitect/folio/config"
	"github.com/hsarchitect/folio/server/auth"
)

func testTokens() *auth.Tokens {
	return auth.NewTokens(config.Auth{JwtSecret: "middleware-test-secret"})
}

func runRequireAdmin(t *testing.T, header string) (*httptest.ResponseRecorder, *auth.Claims) {
	t.Helper()

	var seen *auth.Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.GetClaims(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/projects/admin", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()

	RequireAdmin(testTokens())(next).ServeHTTP(rr, req)
	return rr, seen
}

func TestRequireAdmin_MissingToken(t *testing.T) {
	rr, seen := runRequireAdmin(t, "")

	if seen != nil {
		t.Fatalf("next handler should not run without a token")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireAdmin_InvalidToken(t *testing.T) {
	rr, seen := runRequireAdmin(t, "Bearer not-a-jwt")

	if seen != nil {
		t.Fatalf("next handler should not run with an invalid token")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireAdmin_WrongRole(t *testing.T) {
	signed, _, err := testTokens().Issue(3, "editor@example.org", auth.Role("editor"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rr, seen := runRequireAdmin(t, "Bearer "+signed)
	if seen != nil {
		t.Fatalf("next handler should not run for non-admin role")
	}
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRequireAdmin_Admin(t *testing.T) {
	signed, _, err := testTokens().Issue(1, "admin@example.org", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rr, seen := runRequireAdmin(t, "bearer "+signed)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if seen == nil || seen.Email != "admin@example.org" || seen.UserID() != 1 {
		t.Fatalf("expected claims in context, got %v", seen)
	}
}
