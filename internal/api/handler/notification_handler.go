package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/lms-notify/internal/api/middleware"
	"github.com/notifyhub/lms-notify/internal/service"
)

// NotificationHandler accepts notification requests and reports job status.
type NotificationHandler struct {
	svc      *service.NotificationService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewNotificationHandler(svc *service.NotificationService, validate *validator.Validate, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, validate: validate, logger: logger}
}

// Create handles POST /api/v1/notifications
//
// @Summary     Submit a notification for dispatch
// @Tags        notifications
// @Accept      json
// @Produce     json
// @Param       body  body      notificationRequest  true  "Notification payload"
// @Success     202   {object}  domain.Job
// @Failure     422   {object}  map[string]string
// @Router      /api/v1/notifications [post]
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		mapError(w, err)
		return
	}

	j, err := h.svc.Submit(r.Context(), req.toDomain())
	if err != nil {
		h.logger.Warn("submit notification failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, j)
}

// GetByID handles GET /api/v1/notifications/{id}
//
// @Summary  Get a dispatch job with its attempts and last outcomes
// @Tags     notifications
// @Produce  json
// @Param    id   path      string  true  "Job UUID"
// @Success  200  {object}  domain.Job
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/notifications/{id} [get]
func (h *NotificationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	j, err := h.svc.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, j)
}
