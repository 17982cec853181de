package quiz

import (
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"quiz-master/internal/auth"
	"quiz-master/pkg/httpjson"
)

type Handler struct {
	service *Service
	log     *logrus.Entry
}

func NewHandler(service *Service, log *logrus.Entry) *Handler {
	return &Handler{service: service, log: log}
}

type startResponse struct {
	AttemptID uint      `json:"attempt_id"`
	StartedAt time.Time `json:"started_at"`
	Deadline  time.Time `json:"deadline"`
}

type submitRequest struct {
	Answers []SubmittedAnswer `json:"answers"`
}

func (h *Handler) GetSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.service.ListSubjects(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, subjects)
}

func (h *Handler) GetChapters(w http.ResponseWriter, r *http.Request) {
	subjectID, err := httpjson.PathID(r, "subjectID")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	chapters, err := h.service.ListChapters(r.Context(), subjectID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, chapters)
}

func (h *Handler) GetQuizzes(w http.ResponseWriter, r *http.Request) {
	chapterID, err := httpjson.PathID(r, "chapterID")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	quizzes, err := h.service.ListQuizzes(r.Context(), chapterID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, quizzes)
}

func (h *Handler) GetFullQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := httpjson.PathID(r, "quizID")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	quiz, err := h.service.GetFullQuiz(r.Context(), quizID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, quiz)
}

func (h *Handler) StartAttempt(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	quizID, err := httpjson.PathID(r, "quizID")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	attempt, created, err := h.service.StartAttempt(r.Context(), quizID, identity.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	deadline, err := h.service.Deadline(r.Context(), attempt)
	if err != nil {
		h.writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpjson.Write(w, status, startResponse{
		AttemptID: attempt.ID,
		StartedAt: attempt.StartedAt,
		Deadline:  deadline,
	})
}

func (h *Handler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	attemptID, err := httpjson.PathID(r, "attemptID")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var req submitRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "Invalid request")
		return
	}

	result, err := h.service.SubmitAttempt(r.Context(), attemptID, identity.UserID, req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, result)
}

func (h *Handler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	attemptID, err := httpjson.PathID(r, "attemptID")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.service.GetAttempt(r.Context(), attemptID, identity.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, detail)
}

func (h *Handler) ListUserAttempts(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	userID, err := httpjson.PathID(r, "userID")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if userID != identity.UserID {
		httpjson.Error(w, http.StatusForbidden, "Forbidden")
		return
	}

	attempts, err := h.service.ListAttempts(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, attempts)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrQuizNotFound):
		httpjson.Error(w, http.StatusNotFound, "Quiz not found")
	case errors.Is(err, ErrAttemptNotFound):
		httpjson.Error(w, http.StatusNotFound, "Attempt not found")
	case errors.Is(err, ErrForbidden):
		httpjson.Error(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, ErrQuizNotOpen):
		httpjson.Error(w, http.StatusConflict, "Quiz is not open yet")
	case errors.Is(err, ErrAlreadySubmitted):
		httpjson.Error(w, http.StatusBadRequest, "Attempt already submitted")
	case errors.Is(err, ErrTimeLimitExceeded):
		httpjson.Error(w, http.StatusBadRequest, "Time limit exceeded")
	case errors.Is(err, ErrInvalidAnswer):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.log.WithError(err).Error("quiz request failed")
		httpjson.Error(w, http.StatusInternalServerError, "Request failed")
	}
}
