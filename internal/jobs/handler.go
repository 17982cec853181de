package jobs

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"quiz-master/internal/auth"
	"quiz-master/pkg/httpjson"
)

// UserPayload targets one user's data.
type UserPayload struct {
	UserID uint `json:"user_id"`
}

type MonthlyReportPayload struct {
	UserID uint `json:"user_id"`
	Year   int  `json:"year"`
	Month  int  `json:"month"`
}

// Accepted is the 202 body: the new job's status plus its id under job_id.
type Accepted struct {
	JobID string `json:"job_id"`
	Status
}

type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, ownerID uint, payload interface{}) (Status, error)
	Get(ctx context.Context, id string) (Status, error)
}

type Handler struct {
	queue Enqueuer
	now   func() time.Time
	log   *logrus.Entry
}

func NewHandler(queue Enqueuer, log *logrus.Entry) *Handler {
	return &Handler{queue: queue, now: time.Now, log: log}
}

func (h *Handler) ExportUserAttempts(w http.ResponseWriter, r *http.Request) {
	userID, ok := selfOnly(w, r)
	if !ok {
		return
	}
	h.enqueue(w, r, KindUserAttemptsExport, userID, UserPayload{UserID: userID})
}

func (h *Handler) ExportAllQuizzes(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	h.enqueue(w, r, KindAdminQuizzesExport, identity.UserID, struct{}{})
}

// RequestMonthlyReport defaults to the previous calendar month.
func (h *Handler) RequestMonthlyReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := selfOnly(w, r)
	if !ok {
		return
	}

	prev := time.Date(h.now().UTC().Year(), h.now().UTC().Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	year, err := httpjson.QueryInt(r, "year", prev.Year())
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	month, err := httpjson.QueryInt(r, "month", int(prev.Month()))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if month < 1 || month > 12 || year < 1970 {
		httpjson.Error(w, http.StatusBadRequest, "Invalid report period")
		return
	}

	h.enqueue(w, r, KindMonthlyReport, userID, MonthlyReportPayload{UserID: userID, Year: year, Month: month})
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id := mux.Vars(r)["jobID"]

	status, err := h.queue.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if status.OwnerID != identity.UserID && !identity.IsAdmin() {
		httpjson.Error(w, http.StatusForbidden, "Forbidden")
		return
	}
	httpjson.Write(w, http.StatusOK, status)
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request, kind string, ownerID uint, payload interface{}) {
	status, err := h.queue.Enqueue(r.Context(), kind, ownerID, payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, Accepted{JobID: status.ID, Status: status})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrJobNotFound):
		httpjson.Error(w, http.StatusNotFound, "Job not found")
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrQueueClosed):
		httpjson.Error(w, http.StatusServiceUnavailable, "Job queue is busy, try again later")
	case errors.Is(err, ErrUnknownKind):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.log.WithError(err).Error("job request failed")
		httpjson.Error(w, http.StatusInternalServerError, "Request failed")
	}
}

func selfOnly(w http.ResponseWriter, r *http.Request) (uint, bool) {
	identity, _ := auth.FromContext(r.Context())
	userID, err := httpjson.PathID(r, "userID")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	if userID != identity.UserID {
		httpjson.Error(w, http.StatusForbidden, "Forbidden")
		return 0, false
	}
	return userID, true
}
