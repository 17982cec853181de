package analytics

import (
	"errors"
	"net/http"

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

func (h *Handler) QuizLeaderboard(w http.ResponseWriter, r *http.Request) {
	quizID, err := httpjson.PathID(r, "quizID")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := httpjson.QueryInt(r, "limit", DefaultLeaderboardLimit)
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	board, err := h.service.QuizLeaderboard(r.Context(), quizID, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, board)
}

func (h *Handler) UserRanking(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.selfOrAdmin(w, r)
	if !ok {
		return
	}
	ranking, err := h.service.UserRanking(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, ranking)
}

func (h *Handler) UserMonthly(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.selfOrAdmin(w, r)
	if !ok {
		return
	}
	months, err := h.service.UserMonthly(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, months)
}

func (h *Handler) QuizDifficulty(w http.ResponseWriter, r *http.Request) {
	quizID, err := httpjson.PathID(r, "quizID")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	stats, err := h.service.QuizDifficulty(r.Context(), quizID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, stats)
}

func (h *Handler) HardestQuizzes(w http.ResponseWriter, r *http.Request) {
	limit, err := httpjson.QueryInt(r, "limit", DefaultHardestLimit)
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	quizzes, err := h.service.HardestQuizzes(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, quizzes)
}

func (h *Handler) AdminSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.AdminSummary(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, summary)
}

func (h *Handler) UserSummary(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	summary, err := h.service.UserSummary(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, summary)
}

// selfOrAdmin reads the userID path variable and allows it for the same user or an admin.
func (h *Handler) selfOrAdmin(w http.ResponseWriter, r *http.Request) (uint, bool) {
	identity, _ := auth.FromContext(r.Context())
	userID, err := httpjson.PathID(r, "userID")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	if userID != identity.UserID && !identity.IsAdmin() {
		httpjson.Error(w, http.StatusForbidden, "Forbidden")
		return 0, false
	}
	return userID, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrQuizNotFound) {
		httpjson.Error(w, http.StatusNotFound, "Quiz not found")
		return
	}
	h.log.WithError(err).Error("analytics request failed")
	httpjson.Error(w, http.StatusInternalServerError, "Request failed")
}
