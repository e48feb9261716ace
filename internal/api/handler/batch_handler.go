package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/service"
)

// BatchHandler handles broadcast submissions such as course announcements.
type BatchHandler struct {
	svc      *service.NotificationService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewBatchHandler(svc *service.NotificationService, validate *validator.Validate, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{svc: svc, validate: validate, logger: logger}
}

// CreateBatch handles POST /api/v1/notifications/batch
//
// @Summary  Submit up to 1000 notifications in a single request
// @Tags     batches
// @Accept   json
// @Produce  json
// @Param    body  body      batchRequest  true  "Batch payload"
// @Success  202   {object}  domain.Batch
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/notifications/batch [post]
func (h *BatchHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		mapError(w, err)
		return
	}

	batch, err := h.svc.SubmitBatch(r.Context(), req.toDomain())
	if err != nil {
		h.logger.Warn("submit batch failed", zap.Error(err))
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, batch)
}
