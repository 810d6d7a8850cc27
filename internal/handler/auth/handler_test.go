package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Satwikmbadiger/EmoTutor/internal/auth"
)

func setupRouter() (*chi.Mux, *auth.Context) {
	authCtx := auth.NewContext()
	handler := New(auth.NewMemoryProvider(), authCtx)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, authCtx
}

func postJSON(r http.Handler, path string, body map[string]string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSignUpEstablishesIdentity(t *testing.T) {
	r, authCtx := setupRouter()

	resp := postJSON(r, "/auth/signup", map[string]string{
		"email":    "student@example.com",
		"password": "secret1",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	identity, ok := authCtx.Current()
	if !ok || identity.Email != "student@example.com" {
		t.Fatalf("identity not established: %+v ok=%v", identity, ok)
	}
}

func TestSignUpWeakPassword(t *testing.T) {
	r, _ := setupRouter()

	resp := postJSON(r, "/auth/signup", map[string]string{
		"email":    "student@example.com",
		"password": "short",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	r, _ := setupRouter()

	if resp := postJSON(r, "/auth/signup", map[string]string{"email": "a@b.com", "password": "secret1"}); resp.Code != http.StatusCreated {
		t.Fatalf("first signup: %d", resp.Code)
	}
	if resp := postJSON(r, "/auth/signup", map[string]string{"email": "a@b.com", "password": "secret2"}); resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	r, authCtx := setupRouter()

	postJSON(r, "/auth/signup", map[string]string{"email": "a@b.com", "password": "secret1"})
	authCtx.SignOut()

	resp := postJSON(r, "/auth/signin", map[string]string{"email": "a@b.com", "password": "wrong!!"})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if _, ok := authCtx.Current(); ok {
		t.Fatal("identity established despite failed sign-in")
	}
}

func TestSignOutAndMe(t *testing.T) {
	r, _ := setupRouter()

	postJSON(r, "/auth/signup", map[string]string{"email": "a@b.com", "password": "secret1"})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from /auth/me, got %d", resp.Code)
	}

	if resp := postJSON(r, "/auth/signout", nil); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 from signout, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after signout, got %d", resp.Code)
	}
}
