package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"medipos/backend/internal/cache"
	"medipos/backend/internal/currency"
	"medipos/backend/internal/domain"
	"medipos/backend/internal/service"
	"medipos/backend/internal/store/memory"
)

func newTestAPI(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()

	repo := memory.NewSeeded()
	kv := cache.NewMemoryKV()
	logger := zap.NewNop()
	svc := service.New(repo, kv, logger)
	auth := NewAuthManager("test-secret", time.Hour, repo)
	rates := currency.New(kv, logger, "", time.Hour)
	api := New(svc, auth, rates, logger, "*")
	return api.Handler(), repo
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", domain.LoginRequest{
		Username: username,
		Password: password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login for %s failed with status %d: %s", username, rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("expected a token in login response")
	}
	return resp.AccessToken
}

func TestLoginAndTokenRoundTrip(t *testing.T) {
	handler, _ := newTestAPI(t)

	token := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodGet, "/api/products", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated request failed with status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	handler, _ := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", domain.LoginRequest{
		Username: "admin",
		Password: "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	handler, _ := newTestAPI(t)

	var last int
	for i := 0; i < 6; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", domain.LoginRequest{
			Username: "admin",
			Password: fmt.Sprintf("wrong-%d", i),
		})
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after repeated failures, got %d", last)
	}
}

func TestRegisterValidation(t *testing.T) {
	handler, _ := newTestAPI(t)

	cases := []struct {
		name string
		req  domain.RegisterRequest
		want int
	}{
		{"valid default role", domain.RegisterRequest{Username: "depouser", Password: "secret1"}, http.StatusCreated},
		{"short username", domain.RegisterRequest{Username: "ab", Password: "secret1"}, http.StatusBadRequest},
		{"short password", domain.RegisterRequest{Username: "validname", Password: "123"}, http.StatusBadRequest},
		{"unknown role", domain.RegisterRequest{Username: "roleuser", Password: "secret1", Role: "owner"}, http.StatusBadRequest},
		{"duplicate username", domain.RegisterRequest{Username: "depouser", Password: "secret1"}, http.StatusConflict},
	}
	for _, tc := range cases {
		rec := doJSON(t, handler, http.MethodPost, "/api/auth/register", "", tc.req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.want, rec.Code, rec.Body.String())
		}
	}
}

func TestRegisterDefaultsToInventoryRole(t *testing.T) {
	handler, repo := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/register", "", domain.RegisterRequest{
		Username: "newstaff",
		Password: "secret1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed with status %d: %s", rec.Code, rec.Body.String())
	}

	user, err := repo.GetUserByUsername(context.Background(), "newstaff")
	if err != nil {
		t.Fatalf("user lookup failed: %v", err)
	}
	if user.Role != domain.RoleInventory {
		t.Fatalf("expected default role %s, got %s", domain.RoleInventory, user.Role)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	repo := memory.NewSeeded()
	signer := NewAuthManager("secret-a", time.Hour, repo)
	verifier := NewAuthManager("secret-b", time.Hour, repo)

	resp, err := signer.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}

	actor, err := signer.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse with correct secret failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != domain.RoleAdmin {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	handler, _ := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/products", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}
