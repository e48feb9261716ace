package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/notifyhub/lms-notify/internal/domain"
	"github.com/notifyhub/lms-notify/internal/service"
)

// InboxHandler serves a user's in-app notifications.
type InboxHandler struct {
	svc *service.NotificationService
}

func NewInboxHandler(svc *service.NotificationService) *InboxHandler {
	return &InboxHandler{svc: svc}
}

// List handles GET /api/v1/users/{userID}/notifications
//
// @Summary  List in-app notifications, newest first
// @Tags     inbox
// @Produce  json
// @Param    userID  path      string  true   "User ID"
// @Param    unread  query     bool    false  "Only unread notifications"
// @Param    page    query     int     false  "Page number (default 1)"
// @Param    limit   query     int     false  "Items per page (default 20, max 100)"
// @Success  200     {object}  map[string]any
// @Router   /api/v1/users/{userID}/notifications [get]
func (h *InboxHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseInboxFilter(r)
	items, total, err := h.svc.Inbox(r.Context(), chi.URLParam(r, "userID"), filter)
	if err != nil {
		mapError(w, err)
		return
	}
	if items == nil {
		items = []*domain.InAppNotification{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  items,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

// MarkRead handles POST /api/v1/users/{userID}/notifications/{id}/read
//
// @Summary  Mark one notification as read
// @Tags     inbox
// @Param    userID  path  string  true  "User ID"
// @Param    id      path  string  true  "Notification ID"
// @Success  204
// @Failure  404  {object}  map[string]string
// @Failure  409  {object}  map[string]string
// @Router   /api/v1/users/{userID}/notifications/{id}/read [post]
func (h *InboxHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkRead(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "id")); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /api/v1/users/{userID}/notifications/read-all
//
// @Summary  Mark every unread notification as read
// @Tags     inbox
// @Param    userID  path      string  true  "User ID"
// @Success  200     {object}  map[string]int
// @Router   /api/v1/users/{userID}/notifications/read-all [post]
func (h *InboxHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkAllRead(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func parseInboxFilter(r *http.Request) domain.InboxFilter {
	q := r.URL.Query()
	filter := domain.InboxFilter{Page: 1, Limit: 20}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		filter.Limit = l
	}
	if u, err := strconv.ParseBool(q.Get("unread")); err == nil {
		filter.UnreadOnly = u
	}
	return filter
}
