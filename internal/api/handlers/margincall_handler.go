package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"margincall/internal/models"
	"margincall/internal/repository"
	"margincall/internal/service"
	"margincall/pkg/utils"
)

// MarginCallHandler отвечает за запросы по margin calls
//
// Endpoints:
// - GET /api/v1/margin-calls - история записей (фильтры user_id, status, limit)
// - GET /api/v1/margin-calls/active?user_id=X - активная запись пользователя
// - GET /api/v1/users/{user_id}/trading-status - торговые ограничения счета
//
// Назначение:
// Отдает историю и текущее состояние margin calls для dashboard'а,
// а также две "заслонки" (restrict_new_trading, close_only) для пути
// исполнения ордеров.
type MarginCallHandler struct {
	marginCallService service.MarginCallServiceInterface
}

// NewMarginCallHandler создает новый MarginCallHandler с внедрением зависимости
func NewMarginCallHandler(marginCallService service.MarginCallServiceInterface) *MarginCallHandler {
	return &MarginCallHandler{
		marginCallService: marginCallService,
	}
}

// GetMarginCallsResponse представляет ответ списка записей
type GetMarginCallsResponse struct {
	MarginCalls []MarginCallDTO `json:"margin_calls"`
	Total       int             `json:"total"`
}

// MarginCallDTO представляет запись margin call в API
type MarginCallDTO struct {
	ID                   int     `json:"id"`
	UserID               string  `json:"user_id"`
	TriggeredAt          string  `json:"triggered_at"`
	MarginLevelAtTrigger float64 `json:"margin_level_at_trigger"`
	Status               string  `json:"status"`
	Severity             string  `json:"severity"`
	ResolvedAt           *string `json:"resolved_at,omitempty"`
	ResolutionType       string  `json:"resolution_type,omitempty"`
	EscalatedAt          *string `json:"escalated_at,omitempty"`
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

// toMarginCallDTO преобразует модель в DTO
func toMarginCallDTO(e *models.MarginCallEvent) MarginCallDTO {
	dto := MarginCallDTO{
		ID:                   e.ID,
		UserID:               e.UserID,
		TriggeredAt:          e.TriggeredAt.Format(timeFormat),
		MarginLevelAtTrigger: e.MarginLevelAtTrigger,
		Status:               e.Status,
		Severity:             e.Severity,
		ResolutionType:       e.ResolutionType,
	}
	if e.ResolvedAt != nil {
		s := e.ResolvedAt.Format(timeFormat)
		dto.ResolvedAt = &s
	}
	if e.EscalatedAt != nil {
		s := e.EscalatedAt.Format(timeFormat)
		dto.EscalatedAt = &s
	}
	return dto
}

// GetMarginCalls возвращает историю записей margin call
//
// GET /api/v1/margin-calls
//
// Query параметры:
// - user_id (string): фильтр по пользователю
// - status (string): notified, resolved, escalated
// - limit (int): количество записей (по умолчанию 100, максимум 500)
//
// HTTP коды:
// - 200 OK: успешно
// - 400 Bad Request: невалидный статус
// - 500 Internal Server Error: ошибка сервера
func (h *MarginCallHandler) GetMarginCalls(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	status := r.URL.Query().Get("status")

	limit := 100
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := h.marginCallService.GetCalls(userID, status, limit)
	if err != nil {
		if status != "" {
			// Единственная пользовательская ошибка здесь - невалидный статус
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get margin calls: "+err.Error())
		return
	}

	dtos := make([]MarginCallDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, toMarginCallDTO(e))
	}

	respondWithJSON(w, http.StatusOK, GetMarginCallsResponse{
		MarginCalls: dtos,
		Total:       len(dtos),
	})
}

// GetActiveMarginCall возвращает активную запись пользователя
//
// GET /api/v1/margin-calls/active?user_id=X
//
// HTTP коды:
// - 200 OK: активная запись найдена
// - 400 Bad Request: не указан user_id
// - 404 Not Found: активного margin call нет
// - 500 Internal Server Error: ошибка сервера
func (h *MarginCallHandler) GetActiveMarginCall(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if err := utils.ValidateUserID(userID); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.marginCallService.GetActiveCall(userID)
	if err != nil {
		if errors.Is(err, repository.ErrCallNotFound) {
			respondWithError(w, http.StatusNotFound, "No active margin call for user")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get active margin call: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, toMarginCallDTO(event))
}

// GetTradingStatus возвращает торговые ограничения счета
//
// GET /api/v1/users/{user_id}/trading-status
//
// Путь исполнения ордеров обязан сверяться с restrict_new_trading
// и close_only перед приемом ордера на открытие позиции.
//
// HTTP коды:
// - 200 OK: успешно
// - 404 Not Found: счет не найден
// - 500 Internal Server Error: ошибка сервера
func (h *MarginCallHandler) GetTradingStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["user_id"]

	status, err := h.marginCallService.GetTradingStatus(userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			respondWithError(w, http.StatusNotFound, "Account not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get trading status: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}
