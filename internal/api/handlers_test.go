package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cassauth/authservicesapi/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testServer builds a Server whose authDB is never dereferenced: every
// case exercised here is rejected before a handler reaches the Auth
// Data Layer.
func testServer() *Server {
	cfg := config.Defaults()
	return NewServer(cfg, nil)
}

func TestHandleGetUser_MalformedUserOrg(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodGet, "/users/not-a-userorg", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d; body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestHandleCreateUser_MissingFields(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d; body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestHandleCreateSession_MalformedUserOrg(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodPost, "/sessions/not-a-userorg", strings.NewReader(`{"password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d; body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestHandleCreateSession_MissingPassword(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodPost, "/sessions/alice@example.net", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d; body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestHandleGetSession_InvalidSessionID(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodGet, "/sessions/alice@example.net/not-a-uuid", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d; body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestPing(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Fatalf("status = %d, body = %q", w.Code, w.Body.String())
	}
}
