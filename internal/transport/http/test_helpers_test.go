package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/darryyna/chatline-server/internal/auth"
	"github.com/darryyna/chatline-server/internal/chat"
	"github.com/darryyna/chatline-server/internal/config"
	"github.com/darryyna/chatline-server/internal/log"
	"github.com/darryyna/chatline-server/internal/store"
	"github.com/darryyna/chatline-server/internal/store/sqlite"
)

const testSchema = `
CREATE TABLE users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	email         TEXT NOT NULL UNIQUE,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	age           INTEGER NOT NULL DEFAULT 0,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user',
	reset_token   TEXT,
	reset_expires DATETIME,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	content      TEXT NOT NULL,
	timestamp    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	sender_id    INTEGER NOT NULL,
	recipient_id INTEGER,
	FOREIGN KEY (sender_id) REFERENCES users(id),
	FOREIGN KEY (recipient_id) REFERENCES users(id)
);
`

type testEnv struct {
	server  *httptest.Server
	store   store.Store
	authSvc *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(testSchema)
		return err
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.RateLimit = 1000
	cfg.RateBurst = 2000

	logger := log.Disabled()
	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	}
	authSvc := auth.NewService(st, jwtConfig, cfg.ResetTTL)
	hub := chat.NewHub(st, logger)
	gate := chat.NewGate(authSvc, st, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := NewServer(&cfg, hub, gate, authSvc, st, nil, logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, store: st, authSvc: authSvc}
}

// doJSON issues a request with an optional JSON body and bearer token and
// decodes the JSON response into out when it is non-nil.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := stdhttp.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("failed to read response body: %v", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, out); err != nil {
				t.Fatalf("failed to decode response %q: %v", raw, err)
			}
		}
	}
	return resp.StatusCode
}

func registerBody(email string) map[string]any {
	return map[string]any{
		"email":      email,
		"first_name": "Test",
		"last_name":  "User",
		"age":        25,
		"password":   "password123",
	}
}

// registerAndLogin creates an account over the API and returns its token.
func (e *testEnv) registerAndLogin(t *testing.T, email string) string {
	t.Helper()

	if code := e.doJSON(t, stdhttp.MethodPost, "/api/auth/register", "", registerBody(email), nil); code != stdhttp.StatusCreated {
		t.Fatalf("register returned %d", code)
	}
	return e.login(t, email, "password123")
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	var resp AuthResponse
	code := e.doJSON(t, stdhttp.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &resp)
	if code != stdhttp.StatusOK {
		t.Fatalf("login returned %d", code)
	}
	return resp.Token
}

// seedAdmin inserts an admin account directly and returns its token.
func (e *testEnv) seedAdmin(t *testing.T, email string) string {
	t.Helper()

	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	_, err = e.store.CreateUser(context.Background(), &store.User{
		Email:        email,
		FirstName:    "Admin",
		LastName:     "User",
		Age:          40,
		PasswordHash: hash,
		Role:         store.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}
	return e.login(t, email, "password123")
}

func waitTimeout() time.Duration { return 5 * time.Second }
