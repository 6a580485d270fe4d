package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stridehq/stride/internal/auth"
	"github.com/stridehq/stride/internal/database"
	"github.com/stridehq/stride/internal/middleware"
	"github.com/stridehq/stride/internal/store"
)

func setupAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewAuthHandler(
		store.NewUserStore(db),
		store.NewSessionStore(db),
		auth.NewTokenIssuer("test-secret", time.Hour),
		testLogger(),
	)
}

func postJSON(t *testing.T, h http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", target, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	h := setupAuthHandler(t)

	rec := postJSON(t, h.Register, "/api/register", map[string]string{
		"email": "Anna@Example.com", "name": "Anna", "password": "correct-horse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatal("register did not set a session cookie")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}

	// Email is normalized, so the lowercase form logs in.
	rec = postJSON(t, h.Login, "/api/login", map[string]string{
		"email": "anna@example.com", "password": "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("login status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	h := setupAuthHandler(t)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing email", map[string]string{"name": "Anna", "password": "correct-horse"}},
		{"bad email", map[string]string{"email": "nope", "name": "Anna", "password": "correct-horse"}},
		{"missing name", map[string]string{"email": "a@b.com", "password": "correct-horse"}},
		{"short password", map[string]string{"email": "a@b.com", "name": "Anna", "password": "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h.Register, "/api/register", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := setupAuthHandler(t)

	body := map[string]string{"email": "a@b.com", "name": "Anna", "password": "correct-horse"}
	if rec := postJSON(t, h.Register, "/api/register", body); rec.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", rec.Code)
	}
	if rec := postJSON(t, h.Register, "/api/register", body); rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := setupAuthHandler(t)

	if rec := postJSON(t, h.Register, "/api/register", map[string]string{
		"email": "a@b.com", "name": "Anna", "password": "correct-horse",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}

	// Wrong password and unknown email produce the identical response.
	wrongPass := postJSON(t, h.Login, "/api/login", map[string]string{"email": "a@b.com", "password": "wrong"})
	unknown := postJSON(t, h.Login, "/api/login", map[string]string{"email": "x@y.com", "password": "correct-horse"})
	if wrongPass.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Errorf("statuses = %d, %d, want both %d", wrongPass.Code, unknown.Code, http.StatusUnauthorized)
	}
	if wrongPass.Body.String() != unknown.Body.String() {
		t.Error("error bodies differ between wrong password and unknown email")
	}
}
