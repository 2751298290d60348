package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/EmpoweredVote/wahlkreis/internal/middleware"
)

// call wraps a simple 200-OK inner handler in the provided middleware and
// returns the recorded response.
func call(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	return rec
}

func hashToken(t *testing.T, token string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}
	return string(hashed)
}

// TestCORS_AllowedOrigin verifies that an allow-listed origin is echoed back.
func TestCORS_AllowedOrigin(t *testing.T) {
	mw := middleware.CORS([]string{"https://wahl.example"})

	req := httptest.NewRequest(http.MethodGet, "/api/national", nil)
	req.Header.Set("Origin", "https://wahl.example")
	rec := call(t, mw, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://wahl.example" {
		t.Errorf("expected origin to be echoed, got %q", got)
	}
	if got := rec.Header().Get("Vary"); got != "Origin" {
		t.Errorf("expected Vary: Origin, got %q", got)
	}
}

// TestCORS_UnknownOrigin verifies that other origins get no allow header.
func TestCORS_UnknownOrigin(t *testing.T) {
	mw := middleware.CORS([]string{"https://wahl.example"})

	req := httptest.NewRequest(http.MethodGet, "/api/national", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := call(t, mw, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow header, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "X-Snapshot-Digest") {
		t.Errorf("expected exposed digest header, got %q", got)
	}
}

// TestCORS_Preflight verifies that OPTIONS requests short-circuit with 204.
func TestCORS_Preflight(t *testing.T) {
	mw := middleware.CORS(nil)

	rec := call(t, mw, httptest.NewRequest(http.MethodOptions, "/api/admin/reload", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

// TestReloadAuth_Disabled verifies that an empty hash forbids every request.
func TestReloadAuth_Disabled(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/reload", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := call(t, middleware.ReloadAuth(""), req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

// TestReloadAuth_MissingToken verifies the 401 and challenge header.
func TestReloadAuth_MissingToken(t *testing.T) {
	mw := middleware.ReloadAuth(hashToken(t, "s3cret"))

	for _, header := range []string{"", "Bearer ", "Basic czNjcmV0"} {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/reload", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := call(t, mw, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "missing bearer token") {
			t.Errorf("header %q: unexpected body %q", header, rec.Body.String())
		}
	}
}

// TestReloadAuth_Token verifies wrong and correct tokens.
func TestReloadAuth_Token(t *testing.T) {
	mw := middleware.ReloadAuth(hashToken(t, "s3cret"))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/reload", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	if rec := call(t, mw, req); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/admin/reload", nil)
	req.Header.Set("Authorization", "bearer s3cret")
	if rec := call(t, mw, req); rec.Code != http.StatusOK {
		t.Errorf("valid token: expected 200, got %d; body: %s", rec.Code, rec.Body.String())
	}
}
