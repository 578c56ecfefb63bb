package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"margincall/internal/repository"
	"margincall/internal/service"
	"margincall/pkg/utils"
)

// NotificationHandler отвечает за журнал уведомлений
//
// Endpoints:
// - GET /api/v1/notifications?user_id=X - уведомления пользователя
// - GET /api/v1/notifications?user_id=X&types=margin_call&limit=50 - с фильтрами
// - POST /api/v1/notifications/{id}/read - пометить прочитанным
//
// Типы уведомлений:
// - MARGIN_CALL: открыт margin call
// - LIQUIDATION_WARNING: эскалация в ликвидацию
type NotificationHandler struct {
	notificationService service.NotificationServiceInterface
}

// NewNotificationHandler создает новый NotificationHandler с внедрением зависимости
func NewNotificationHandler(notificationService service.NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GetNotificationsResponse представляет ответ списка уведомлений
type GetNotificationsResponse struct {
	Notifications []NotificationDTO `json:"notifications"`
	Total         int               `json:"total"`
	Unread        int               `json:"unread"`
}

// NotificationDTO представляет уведомление в API
type NotificationDTO struct {
	ID        int                    `json:"id"`
	UserID    string                 `json:"user_id"`
	Timestamp string                 `json:"timestamp"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Read      bool                   `json:"read"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// GetNotifications возвращает журнал уведомлений пользователя
//
// GET /api/v1/notifications
//
// Query параметры:
// - user_id (string, обязателен): пользователь
// - types (string): фильтр по типам через запятую (margin_call,liquidation_warning)
// - limit (int): количество записей (по умолчанию 100, максимум 500)
//
// HTTP коды:
// - 200 OK: успешно
// - 400 Bad Request: не указан user_id
// - 500 Internal Server Error: ошибка сервера
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if err := utils.ValidateUserID(userID); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var types []string
	if typesParam := r.URL.Query().Get("types"); typesParam != "" {
		for _, part := range strings.Split(typesParam, ",") {
			if normalized := utils.NormalizeType(part); normalized != "" {
				types = append(types, normalized)
			}
		}
	}

	limit := 100
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	notifications, err := h.notificationService.GetNotifications(userID, types, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get notifications: "+err.Error())
		return
	}

	unread, err := h.notificationService.GetUnreadCount(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to count unread notifications: "+err.Error())
		return
	}

	dtos := make([]NotificationDTO, 0, len(notifications))
	for _, n := range notifications {
		dtos = append(dtos, NotificationDTO{
			ID:        n.ID,
			UserID:    n.UserID,
			Timestamp: n.Timestamp.Format(timeFormat),
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Read:      n.Read,
			Meta:      n.Meta,
		})
	}

	respondWithJSON(w, http.StatusOK, GetNotificationsResponse{
		Notifications: dtos,
		Total:         len(dtos),
		Unread:        unread,
	})
}

// MarkNotificationRead помечает уведомление прочитанным
//
// POST /api/v1/notifications/{id}/read
//
// HTTP коды:
// - 200 OK: помечено
// - 400 Bad Request: невалидный id
// - 404 Not Found: уведомление не найдено
// - 500 Internal Server Error: ошибка сервера
func (h *NotificationHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid notification id")
		return
	}

	if err := h.notificationService.MarkRead(id); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			respondWithError(w, http.StatusNotFound, "Notification not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to mark notification read: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Notification marked as read"})
}
