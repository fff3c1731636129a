package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"productivity-api/internal/middleware"
	"productivity-api/internal/platform/logger"
	"productivity-api/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	method, route string
	status        int
}

type fakeObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (f *fakeObserver) ObserveHTTP(method, route string, status int, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs = append(f.obs, observation{method, route, status})
}

type staticVerifier struct{}

func (staticVerifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if token != "good" {
		return auth.Claims{}, errors.New("bad token")
	}
	return auth.Claims{UserID: "u1", Email: "ana@example.com"}, nil
}

func whoAmI(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserID(r.Context())
	_, _ = w.Write([]byte(uid))
}

func TestAuthContext_DebugHeaderInDevMode(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.AuthContext(nil))
	r.With(middleware.RequireClaims).Get("/me", whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(middleware.DebugUserHeader, " u9 ")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u9", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"unauthorized"}`, rec.Body.String())
}

func TestAuthContext_BearerWithVerifier(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.AuthContext(staticVerifier{}))
	r.With(middleware.RequireClaims).Get("/me", whoAmI)

	for _, tc := range []struct {
		header string
		want   int
	}{
		{"Bearer good", http.StatusOK},
		{"bearer good", http.StatusOK},
		{"Bearer bad", http.StatusUnauthorized},
		{"Basic good", http.StatusUnauthorized},
		{"", http.StatusUnauthorized},
	} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", tc.header)
		// con verifier, el header de debug se ignora
		req.Header.Set(middleware.DebugUserHeader, "u9")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, tc.header)
	}
}

func TestRequestLog_ObservesRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: logger.Debug, Format: logger.FormatJSON, Output: &buf})
	obs := &fakeObserver{}

	r := chi.NewRouter()
	r.Use(middleware.AuthContext(nil))
	r.Use(middleware.RequestLog(log, obs))
	r.Get("/tasks/{taskID}", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/tasks/abc", nil)
	req.Header.Set(middleware.DebugUserHeader, "u1")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Len(t, obs.obs, 2)
	assert.Equal(t, observation{http.MethodGet, "/tasks/{taskID}", http.StatusOK}, obs.obs[0])
	assert.Equal(t, observation{http.MethodGet, "/boom", http.StatusInternalServerError}, obs.obs[1])

	out := buf.String()
	assert.Contains(t, out, `"user_id":"u1"`)
	assert.Contains(t, out, `"level":"error"`)
}
