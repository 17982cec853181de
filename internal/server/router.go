// Package server wires the HTTP routes and runs the API server.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"quiz-master/internal/analytics"
	"quiz-master/internal/auth"
	"quiz-master/internal/exports"
	"quiz-master/internal/jobs"
	"quiz-master/internal/middleware"
	"quiz-master/internal/quiz"
	"quiz-master/pkg/httpjson"
	"quiz-master/pkg/metrics"
	"quiz-master/pkg/websocket"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	JWTSecret      string
	AllowedOrigins []string

	Quiz        *quiz.Handler
	Analytics   *analytics.Handler
	Jobs        *jobs.Handler
	Exports     *exports.Handler
	Hub         *websocket.Hub
	RateLimiter *middleware.RateLimiter
	Health      map[string]HealthCheck
	Log         *logrus.Entry
}

func NewRouter(d Deps) http.Handler {
	router := mux.NewRouter()
	router.Use(metrics.InstrumentHandler)

	router.HandleFunc("/healthz", healthHandler(d.Health, d.Log)).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/ws", d.Hub.HandleWebSocket)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware(d.JWTSecret))

	// Catalog
	api.HandleFunc("/subjects", d.Quiz.GetSubjects).Methods(http.MethodGet)
	api.HandleFunc("/subjects/{subjectID}/chapters", d.Quiz.GetChapters).Methods(http.MethodGet)
	api.HandleFunc("/chapters/{chapterID}/quizzes", d.Quiz.GetQuizzes).Methods(http.MethodGet)
	api.HandleFunc("/quizzes/{quizID}/full", d.Quiz.GetFullQuiz).Methods(http.MethodGet)

	// Attempts
	api.HandleFunc("/quizzes/{quizID}/start", d.Quiz.StartAttempt).Methods(http.MethodPost)
	api.HandleFunc("/attempts/{attemptID}/submit", d.Quiz.SubmitAttempt).Methods(http.MethodPost)
	api.HandleFunc("/attempts/{attemptID}", d.Quiz.GetAttempt).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/attempts", d.Quiz.ListUserAttempts).Methods(http.MethodGet)

	// Analytics
	limited := api.NewRoute().Subrouter()
	limited.Use(d.RateLimiter.Handler)
	limited.HandleFunc("/leaderboard/quiz/{quizID}", d.Analytics.QuizLeaderboard).Methods(http.MethodGet)
	limited.HandleFunc("/leaderboard/user/{userID}", d.Analytics.UserRanking).Methods(http.MethodGet)
	limited.HandleFunc("/analytics/user/{userID}/monthly", d.Analytics.UserMonthly).Methods(http.MethodGet)
	limited.HandleFunc("/analytics/quiz/{quizID}/difficulty", d.Analytics.QuizDifficulty).Methods(http.MethodGet)
	limited.HandleFunc("/analytics/quizzes/hardest", d.Analytics.HardestQuizzes).Methods(http.MethodGet)
	limited.Handle("/summary/admin", auth.RequireAdmin(http.HandlerFunc(d.Analytics.AdminSummary))).Methods(http.MethodGet)
	limited.HandleFunc("/summary/user", d.Analytics.UserSummary).Methods(http.MethodGet)

	// Jobs
	api.HandleFunc("/users/{userID}/exports/attempts", d.Jobs.ExportUserAttempts).Methods(http.MethodPost)
	api.Handle("/admin/exports/quizzes", auth.RequireAdmin(http.HandlerFunc(d.Jobs.ExportAllQuizzes))).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/reports/monthly", d.Jobs.RequestMonthlyReport).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/reports", d.Exports.ListUserArtifacts).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{jobID}", d.Jobs.GetJob).Methods(http.MethodGet)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return corsMiddleware.Handler(router)
}

func healthHandler(checks map[string]HealthCheck, log *logrus.Entry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.WithError(err).WithField("dependency", name).Warn("Health check failed")
				result[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			result[name] = "ok"
		}
		httpjson.Write(w, status, result)
	}
}
