package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-master/internal/auth"
	"quiz-master/internal/models"
	"quiz-master/pkg/logger"
)

type enqueueCall struct {
	kind    string
	ownerID uint
	payload interface{}
}

type fakeEnqueuer struct {
	calls    []enqueueCall
	err      error
	statuses map[string]Status
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, kind string, ownerID uint, payload interface{}) (Status, error) {
	if f.err != nil {
		return Status{}, f.err
	}
	f.calls = append(f.calls, enqueueCall{kind: kind, ownerID: ownerID, payload: payload})
	return Status{ID: "job-1", Kind: kind, OwnerID: ownerID, State: StateQueued}, nil
}

func (f *fakeEnqueuer) Get(_ context.Context, id string) (Status, error) {
	status, ok := f.statuses[id]
	if !ok {
		return Status{}, ErrJobNotFound
	}
	return status, nil
}

func jobsRouter(q Enqueuer) *mux.Router {
	h := NewHandler(q, logger.Discard())
	h.now = func() time.Time { return time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) }
	r := mux.NewRouter()
	r.HandleFunc("/users/{userID}/exports/attempts", h.ExportUserAttempts).Methods(http.MethodPost)
	r.HandleFunc("/admin/exports/quizzes", h.ExportAllQuizzes).Methods(http.MethodPost)
	r.HandleFunc("/users/{userID}/reports/monthly", h.RequestMonthlyReport).Methods(http.MethodPost)
	r.HandleFunc("/jobs/{jobID}", h.GetJob).Methods(http.MethodGet)
	return r
}

func do(router http.Handler, method, path string, identity auth.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestExportEndpointsEnqueue(t *testing.T) {
	q := &fakeEnqueuer{}
	router := jobsRouter(q)
	user := auth.Identity{UserID: 3, Role: models.RoleUser}

	rec := do(router, http.MethodPost, "/users/3/exports/attempts", user)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted Accepted
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&accepted))
	assert.Equal(t, "job-1", accepted.JobID)
	assert.Equal(t, "job-1", accepted.ID)
	assert.Equal(t, StateQueued, accepted.State)

	rec = do(router, http.MethodPost, "/users/4/exports/attempts", user)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(router, http.MethodPost, "/admin/exports/quizzes", auth.Identity{UserID: 1, Role: models.RoleAdmin})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, body["id"], body["job_id"])
	assert.Equal(t, "queued", body["status"])

	require.Len(t, q.calls, 2)
	assert.Equal(t, KindUserAttemptsExport, q.calls[0].kind)
	assert.Equal(t, UserPayload{UserID: 3}, q.calls[0].payload)
	assert.Equal(t, KindAdminQuizzesExport, q.calls[1].kind)
}

func TestMonthlyReportPeriod(t *testing.T) {
	q := &fakeEnqueuer{}
	router := jobsRouter(q)
	user := auth.Identity{UserID: 3, Role: models.RoleUser}

	rec := do(router, http.MethodPost, "/users/3/reports/monthly", user)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, q.calls, 1)
	assert.Equal(t, MonthlyReportPayload{UserID: 3, Year: 2025, Month: 12}, q.calls[0].payload)

	rec = do(router, http.MethodPost, "/users/3/reports/monthly?year=2026&month=13", user)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/users/3/reports/monthly?year=2026&month=3", user)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, MonthlyReportPayload{UserID: 3, Year: 2026, Month: 3}, q.calls[1].payload)
}

func TestQueueFullIsServiceUnavailable(t *testing.T) {
	router := jobsRouter(&fakeEnqueuer{err: ErrQueueFull})
	rec := do(router, http.MethodPost, "/users/3/exports/attempts", auth.Identity{UserID: 3})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetJobOwnerOrAdmin(t *testing.T) {
	q := &fakeEnqueuer{statuses: map[string]Status{
		"abc": {ID: "abc", OwnerID: 3, State: StateSucceeded, Artifact: "attempts_3_x.csv"},
	}}
	router := jobsRouter(q)

	rec := do(router, http.MethodGet, "/jobs/abc", auth.Identity{UserID: 3, Role: models.RoleUser})
	require.Equal(t, http.StatusOK, rec.Code)
	var status Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "attempts_3_x.csv", status.Artifact)

	rec = do(router, http.MethodGet, "/jobs/abc", auth.Identity{UserID: 4, Role: models.RoleUser})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(router, http.MethodGet, "/jobs/abc", auth.Identity{UserID: 1, Role: models.RoleAdmin})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/jobs/nope", auth.Identity{UserID: 3})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
