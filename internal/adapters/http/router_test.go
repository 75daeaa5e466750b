package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	sqliteadapter "github.com/floraxhq/florax/internal/adapters/db/sqlite"
	httpadapter "github.com/floraxhq/florax/internal/adapters/http"
	"github.com/floraxhq/florax/internal/application"
)

func newTestServer(t *testing.T) (*httptest.Server, *application.DashboardService) {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "florax_test.db")

	db, err := sqliteadapter.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	service := application.NewDashboardService(sqliteadapter.NewDashboardRepository(db))
	srv := httptest.NewServer(httpadapter.NewRouter(service))
	t.Cleanup(srv.Close)
	return srv, service
}

func postJSON(t *testing.T, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func TestForgotPasswordNeverReturnsTheToken(t *testing.T) {
	srv, service := newTestServer(t)
	ctx := context.Background()

	if _, err := service.Register(ctx, "Alice", "alice@example.com", "s3cret", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, known := postJSON(t, srv.URL+"/api/auth/forgot-password", map[string]any{"email": "alice@example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("known email: got status %d", resp.StatusCode)
	}
	var payload map[string]any
	if err := json.Unmarshal(known, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, leaked := payload["reset_token"]; leaked {
		t.Fatalf("reset token leaked to the caller: %s", known)
	}
	if ok, _ := payload["ok"].(bool); !ok {
		t.Fatalf("expected ok response, got %s", known)
	}

	// The answer must not reveal whether the account exists.
	resp, unknown := postJSON(t, srv.URL+"/api/auth/forgot-password", map[string]any{"email": "nobody@example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unknown email: got status %d", resp.StatusCode)
	}
	if !bytes.Equal(known, unknown) {
		t.Fatalf("responses differ between known and unknown accounts: %s vs %s", known, unknown)
	}

	// Whatever the caller guesses from the response cannot reset the password.
	resp, _ = postJSON(t, srv.URL+"/api/auth/reset-password", map[string]any{"token": "guessed", "new_password": "stolen"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("guessed token: got status %d, want 400", resp.StatusCode)
	}
	if _, _, err := service.LoginWithSession(ctx, "alice@example.com", "s3cret", time.Hour); err != nil {
		t.Fatalf("password must be unchanged: %v", err)
	}
}

func TestLogoutRevokesBearerToken(t *testing.T) {
	srv, service := newTestServer(t)
	ctx := context.Background()

	if _, err := service.Register(ctx, "Alice", "alice@example.com", "s3cret", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, body := postJSON(t, srv.URL+"/api/auth/login", map[string]any{"email": "alice@example.com", "password": "s3cret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: got status %d", resp.StatusCode)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &login); err != nil || login.Token == "" {
		t.Fatalf("expected a token in %s", body)
	}

	whoami := func() int {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/auth/whoami", nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+login.Token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("whoami: %v", err)
		}
		defer func() { _ = resp.Body.Close() }()
		return resp.StatusCode
	}

	if got := whoami(); got != http.StatusOK {
		t.Fatalf("whoami before logout: got %d", got)
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/auth/logout", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+login.Token)
	logoutResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	_ = logoutResp.Body.Close()
	if logoutResp.StatusCode != http.StatusOK {
		t.Fatalf("logout: got status %d", logoutResp.StatusCode)
	}

	if got := whoami(); got != http.StatusUnauthorized {
		t.Fatalf("whoami after logout: got %d, want 401", got)
	}
}
