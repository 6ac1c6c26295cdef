package handler

import (
	"log/slog"
	"net/http"

	"github.com/daap14/teamup/internal/api/middleware"
	"github.com/daap14/teamup/internal/api/response"
	"github.com/daap14/teamup/internal/notification"
)

type notificationResponse struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	TeamID    *string `json:"teamId"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	IsRead    bool    `json:"isRead"`
	CreatedAt string  `json:"createdAt"`
}

func toNotificationResponse(n *notification.Notification) notificationResponse {
	resp := notificationResponse{
		ID:        n.ID.String(),
		Kind:      string(n.Kind),
		Title:     n.Title,
		Body:      n.Body,
		IsRead:    n.IsRead,
		CreatedAt: response.Time(n.CreatedAt),
	}
	if n.TeamID != nil {
		tid := n.TeamID.String()
		resp.TeamID = &tid
	}
	return resp
}

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	repo notification.Repository
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(repo notification.Repository) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

// List handles GET /notifications, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	page, limit, ok := pagination(w, r)
	if !ok {
		return
	}

	result, err := h.repo.ListByRecipient(r.Context(), middleware.CurrentUserID(r.Context()), page, limit)
	if err != nil {
		slog.Error("failed to list notifications", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list notifications", requestID)
		return
	}

	items := make([]notificationResponse, 0, len(result.Notifications))
	for i := range result.Notifications {
		items = append(items, toNotificationResponse(&result.Notifications[i]))
	}
	response.SuccessList(w, http.StatusOK, items, result.Total, result.Page, result.Limit, requestID)
}

// MarkRead handles PATCH /notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.MarkRead(r.Context(), id, middleware.CurrentUserID(r.Context())); err != nil {
		writeCoordinatorError(w, r, err, "Failed to mark notification read")
		return
	}

	response.NoContent(w)
}
