package exports

import (
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

// ListUserArtifacts serves GET /users/{userID}/reports.
func (h *Handler) ListUserArtifacts(w http.ResponseWriter, r *http.Request) {
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

	list, err := h.service.ListUserArtifacts(userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("Failed to list artifacts")
		httpjson.Error(w, http.StatusInternalServerError, "Request failed")
		return
	}
	httpjson.Write(w, http.StatusOK, list)
}
