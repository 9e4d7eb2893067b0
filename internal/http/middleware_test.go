package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/cinerate/internal/auth"
	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/logging"
)

func newAuthOnlyServer(tokens *auth.TokenIssuer) *Server {
	return &Server{
		tokens:   tokens,
		validate: newValidator(),
		logger:   logging.Discard(),
		router:   chi.NewRouter(),
	}
}

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewTokenIssuer("middleware-secret-0123", "cinerate", time.Hour)
	srv := newAuthOnlyServer(tokens)

	var seen auth.Identity
	protected := srv.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = identityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token, _, err := tokens.Issue(domain.User{ID: 7, Email: "ana@example.com", Username: "ana"})
	require.NoError(t, err)
	other := auth.NewTokenIssuer("another-secret-456789", "cinerate", time.Hour)
	forged, _, err := other.Issue(domain.User{ID: 7})
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"forged", "Bearer " + forged, http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			assert.Equal(t, c.status, rec.Code)
			if c.status == http.StatusUnauthorized {
				var body errorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "UNAUTHORIZED", body.Code)
			}
		})
	}
	assert.Equal(t, int64(7), seen.UserID)
	assert.Equal(t, "ana", seen.Username)
}

func TestRateLimiterPerKey(t *testing.T) {
	rl := newRateLimiter(1, 2, logging.Discard())
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	hit := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/movies/evaluate", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2:1000"))
}

func TestRateLimiterKeysByUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "ip:192.0.2.1", limiterKey(req))

	req = req.WithContext(withIdentity(req.Context(), auth.Identity{UserID: 12}))
	assert.Equal(t, "user:12", limiterKey(req))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := newRateLimiter(0, 0, logging.Discard())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := rl.Handler(next)
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestDecodeAndValidate(t *testing.T) {
	srv := newAuthOnlyServer(nil)

	cases := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"malformed", `{"movieId":`, http.StatusBadRequest, ""},
		{"empty", ``, http.StatusBadRequest, ""},
		{"unknown field", `{"movieId":1,"rating":3,"stars":5}`, http.StatusBadRequest, ""},
		{"fractional rating", `{"movieId":1,"rating":3.5}`, http.StatusBadRequest, ""},
		{"missing rating", `{"movieId":1}`, http.StatusBadRequest, "rating"},
		{"rating too high", `{"movieId":1,"rating":6}`, http.StatusBadRequest, "rating"},
		{"bad movie id", `{"movieId":0,"rating":3}`, http.StatusBadRequest, "movieId"},
		{"valid", `{"movieId":1,"rating":3,"comment":"ok"}`, 0, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/movies/evaluate", stringBody(c.body))
			rec := httptest.NewRecorder()
			var dst evaluateRequest
			ok := srv.decodeAndValidate(rec, req, &dst)
			if c.status == 0 {
				require.True(t, ok)
				assert.Equal(t, int64(1), *dst.MovieID)
				return
			}
			require.False(t, ok)
			assert.Equal(t, c.status, rec.Code)
			var body struct {
				Code    string            `json:"code"`
				Details map[string]string `json:"details"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "VALIDATION_ERROR", body.Code)
			if c.field != "" {
				assert.Contains(t, body.Details, c.field)
			}
		})
	}
}

func TestValidateBatchReportsItemPath(t *testing.T) {
	srv := newAuthOnlyServer(nil)
	req := httptest.NewRequest(http.MethodPost, "/movies/evaluate-many",
		stringBody(`{"evaluations":[{"movieId":1,"rating":4},{"movieId":2,"rating":9}]}`))
	rec := httptest.NewRecorder()

	var dst evaluateManyRequest
	require.False(t, srv.decodeAndValidate(rec, req, &dst))

	var body struct {
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "must be at most 5", body.Details["evaluations[1].rating"])
}

func TestRequestLoggerRecordsRouteAndUser(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "info", "json")
	tokens := auth.NewTokenIssuer("middleware-secret-0123", "cinerate", time.Hour)
	srv := newAuthOnlyServer(tokens)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(instrument)
	r.With(srv.requireAuth).Get("/movies/{movieId}/evaluation", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	token, _, err := tokens.Issue(domain.User{ID: 31})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/movies/9/evaluation", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTeapot, rec.Code)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "/movies/{movieId}/evaluation", entry["route"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, float64(31), entry["user_id"])
	assert.NotEmpty(t, entry["request_id"])
}
