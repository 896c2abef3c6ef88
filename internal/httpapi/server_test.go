package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"aiinfra/internal/auth"
	"aiinfra/internal/config"
	"aiinfra/internal/events"
	"aiinfra/internal/keyvault"
	"aiinfra/internal/providers"
	"aiinfra/internal/storage"
)

type testServer struct {
	cfg     *config.Config
	deps    *Dependencies
	handler http.Handler
}

func setupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		JWTSecret: []byte("test-secret-key-for-jwt-signing"),
		JWTTTL:    time.Hour,
		Sessions:  config.SessionConfig{CacheSize: 16, TTL: time.Hour},
	}
}

// newTestServer serves the API over a private in-memory SQLite database.
func newTestServer(t *testing.T, discoverer *providers.HTTPDiscoverer) *testServer {
	t.Helper()

	db, err := storage.NewDB(storage.DBConfig{Driver: storage.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	codec, err := keyvault.NewAESGCMFromSecret("httpapi-test-secret")
	require.NoError(t, err)

	bus := events.NewMemoryBus(nil)
	t.Cleanup(func() { _ = bus.Close() })

	cfg := setupTestConfig(t)
	deps := NewDependencies(cfg, db, codec, bus, discoverer)
	return &testServer{cfg: cfg, deps: deps, handler: NewRouter(cfg, deps)}
}

func (s *testServer) token(t *testing.T, userID string, roles ...auth.Role) string {
	t.Helper()
	token, _, err := auth.GenerateUserJWT(userID, s.cfg, roles...)
	require.NoError(t, err)
	return token
}

// do sends a request as userID; an empty userID sends no token.
func (s *testServer) do(t *testing.T, method, path string, body any, userID string) *httptest.ResponseRecorder {
	t.Helper()
	return s.doWithToken(t, method, path, body, func() string {
		if userID == "" {
			return ""
		}
		return s.token(t, userID)
	}())
}

func (s *testServer) doWithToken(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
