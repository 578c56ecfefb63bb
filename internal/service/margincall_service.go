package service

import (
	"errors"
	"fmt"
	"math"

	"margincall/internal/models"
	"margincall/internal/repository"
	"margincall/internal/risk"
)

// MarginCallService предоставляет бизнес-логику для запросов по margin calls.
//
// Отвечает за:
// - Историю margin call записей (всю и по пользователю)
// - Активную запись пользователя
// - Статус торговых ограничений для пути исполнения ордеров
type MarginCallService struct {
	callRepo    MarginCallRepositoryInterface
	accountRepo AccountRepositoryInterface
}

// NewMarginCallService создает новый экземпляр MarginCallService.
func NewMarginCallService(
	callRepo MarginCallRepositoryInterface,
	accountRepo AccountRepositoryInterface,
) *MarginCallService {
	return &MarginCallService{
		callRepo:    callRepo,
		accountRepo: accountRepo,
	}
}

// GetCalls возвращает записи margin call с фильтрацией.
//
// Параметры:
//   - userID: фильтр по пользователю (пустой = все пользователи)
//   - status: фильтр по статусу (пустой = все статусы)
//   - limit: максимум записей (по умолчанию 100, максимум 500)
func (s *MarginCallService) GetCalls(userID, status string, limit int) ([]*models.MarginCallEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	if status != "" && !isValidCallStatus(status) {
		return nil, fmt.Errorf("invalid margin call status: %s", status)
	}

	switch {
	case userID != "":
		events, err := s.callRepo.GetByUserID(userID, limit)
		if err != nil {
			return nil, err
		}
		if status == "" {
			return events, nil
		}
		// Фильтр по статусу поверх выборки пользователя
		filtered := make([]*models.MarginCallEvent, 0, len(events))
		for _, e := range events {
			if e.Status == status {
				filtered = append(filtered, e)
			}
		}
		return filtered, nil
	case status != "":
		return s.callRepo.GetByStatus(status, limit)
	default:
		return s.callRepo.GetRecent(limit)
	}
}

// GetActiveCall возвращает активную запись пользователя.
//
// Возвращает repository.ErrCallNotFound если активного call нет.
func (s *MarginCallService) GetActiveCall(userID string) (*models.MarginCallEvent, error) {
	return s.callRepo.GetActiveByUserID(userID)
}

// TradingStatus - статус торговых ограничений счета
//
// Две "заслонки" (RestrictNewTrading, CloseOnly) - контракт для пути
// исполнения ордеров: он обязан сверяться с ними перед приемом ордера
// на открытие позиции.
type TradingStatus struct {
	UserID             string                   `json:"user_id"`
	MarginLevel        *float64                 `json:"margin_level,omitempty"` // nil если маржа не занята
	HasActiveCall      bool                     `json:"has_active_call"`
	CallStatus         string                   `json:"call_status"`
	Severity           string                   `json:"severity,omitempty"`
	RestrictNewTrading bool                     `json:"restrict_new_trading"`
	CloseOnly          bool                     `json:"close_only"`
	RecommendedActions []risk.RecommendedAction `json:"recommended_actions,omitempty"`
}

// GetTradingStatus возвращает статус ограничений для счета пользователя.
func (s *MarginCallService) GetTradingStatus(userID string) (*TradingStatus, error) {
	account, err := s.accountRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	status := &TradingStatus{
		UserID:     userID,
		CallStatus: models.MarginCallStatusPending,
	}

	level := risk.CalculateMarginLevel(account.Equity, account.MarginUsed)
	if !math.IsInf(level, 1) {
		rounded := risk.Round2(level)
		status.MarginLevel = &rounded
	}

	active, err := s.callRepo.GetActiveByUserID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrCallNotFound) {
			return status, nil
		}
		return nil, err
	}

	status.HasActiveCall = true
	status.CallStatus = active.Status
	status.Severity = active.Severity
	status.RestrictNewTrading = risk.ShouldRestrictNewTrading(active.Status)
	status.CloseOnly = risk.ShouldEnforceCloseOnly(active.Status)
	if !math.IsInf(level, 1) && level < risk.MarginCallThreshold {
		status.RecommendedActions = risk.GetRecommendedActions(level, 0)
	}

	return status, nil
}

// isValidCallStatus проверяет, является ли статус допустимым.
func isValidCallStatus(status string) bool {
	switch status {
	case models.MarginCallStatusNotified,
		models.MarginCallStatusResolved,
		models.MarginCallStatusEscalated:
		return true
	default:
		return false
	}
}
