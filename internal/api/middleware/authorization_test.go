package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	internaljwt "livechat-backend/internal/jwt"

	"github.com/golang-jwt/jwt"
)

func withTestSecrets(t *testing.T) {
	t.Helper()
	prevUser := internaljwt.RoleSecrets[internaljwt.RoleUser]
	prevAdmin := internaljwt.RoleSecrets[internaljwt.RoleAdmin]
	internaljwt.RoleSecrets[internaljwt.RoleUser] = "jwt-test-secret"
	internaljwt.RoleSecrets[internaljwt.RoleAdmin] = "jwt-admin-secret"
	t.Cleanup(func() {
		internaljwt.RoleSecrets[internaljwt.RoleUser] = prevUser
		internaljwt.RoleSecrets[internaljwt.RoleAdmin] = prevAdmin
	})
}

// signUserToken signs arbitrary claims with the user secret and appends
// the user role suffix.
func signUserToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("jwt-test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return raw + "1"
}

func callWithToken(token string) (*httptest.ResponseRecorder, *bool) {
	called := false
	handler := ValidateAnyJWT(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/user/threads/thread-1", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec, &called
}

func TestValidateJWTAcceptsValidToken(t *testing.T) {
	withTestSecrets(t)
	token := signUserToken(t, jwt.MapClaims{
		"id":    int64(7),
		"email": "agent@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	rec, called := callWithToken(token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !*called {
		t.Error("handler should run for a valid token")
	}
}

// A well-signed token that simply lacks an exp claim must be rejected,
// not crash the server.
func TestValidateJWTRejectsTokenWithoutExp(t *testing.T) {
	withTestSecrets(t)
	token := signUserToken(t, jwt.MapClaims{
		"id":    int64(7),
		"email": "agent@example.com",
	})

	rec, called := callWithToken(token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if *called {
		t.Error("handler must not run for a token without exp")
	}
}

func TestValidateJWTRejectsExpiredToken(t *testing.T) {
	withTestSecrets(t)
	token := signUserToken(t, jwt.MapClaims{
		"id":    int64(7),
		"email": "agent@example.com",
		"exp":   time.Now().Add(-time.Hour).Unix(),
	})

	rec, called := callWithToken(token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if *called {
		t.Error("handler must not run for an expired token")
	}
}
