package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-master/internal/analytics"
	"quiz-master/internal/exports"
	"quiz-master/internal/jobs"
	"quiz-master/internal/middleware"
	"quiz-master/internal/quiz"
	"quiz-master/pkg/logger"
	"quiz-master/pkg/websocket"
)

const secret = "router-secret"

func token(t *testing.T, userID uint, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func testRouter(health map[string]HealthCheck) http.Handler {
	log := logger.Discard()
	return NewRouter(Deps{
		JWTSecret:      secret,
		AllowedOrigins: []string{"*"},
		Quiz:           quiz.NewHandler(nil, log),
		Analytics:      analytics.NewHandler(nil, log),
		Jobs:           jobs.NewHandler(nil, log),
		Exports:        exports.NewHandler(nil, log),
		Hub:            websocket.NewHub(func(string) (uint, error) { return 0, errors.New("no") }, nil, log),
		RateLimiter:    middleware.NewRateLimiter(100, 100, log),
		Health:         health,
		Log:            log,
	})
}

func request(router http.Handler, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAPIRequiresToken(t *testing.T) {
	router := testRouter(nil)

	assert.Equal(t, http.StatusUnauthorized, request(router, http.MethodGet, "/api/subjects", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(router, http.MethodGet, "/api/subjects", "garbage").Code)
}

func TestAdminRoutesRejectUsers(t *testing.T) {
	router := testRouter(nil)
	user := token(t, 5, "user")

	assert.Equal(t, http.StatusForbidden, request(router, http.MethodGet, "/api/summary/admin", user).Code)
	assert.Equal(t, http.StatusForbidden, request(router, http.MethodPost, "/api/admin/exports/quizzes", user).Code)
}

func TestSelfOnlyRoutes(t *testing.T) {
	router := testRouter(nil)
	user := token(t, 5, "user")

	assert.Equal(t, http.StatusForbidden, request(router, http.MethodGet, "/api/users/6/attempts", user).Code)
	assert.Equal(t, http.StatusForbidden, request(router, http.MethodPost, "/api/users/6/exports/attempts", user).Code)
	assert.Equal(t, http.StatusForbidden, request(router, http.MethodGet, "/api/users/6/reports", user).Code)
	assert.Equal(t, http.StatusBadRequest, request(router, http.MethodGet, "/api/quizzes/abc/full", user).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router := testRouter(map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
	})
	assert.Equal(t, http.StatusOK, request(router, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, request(router, http.MethodGet, "/metrics", "").Code)

	down := testRouter(map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	rec := request(down, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"redis":"down"}`, rec.Body.String())
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	router := testRouter(nil)
	assert.Equal(t, http.StatusUnauthorized, request(router, http.MethodGet, "/ws?token=x", "").Code)
}
