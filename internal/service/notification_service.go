package service

import (
	"fmt"
	"strings"

	"margincall/internal/models"
)

// WebSocketBroadcaster - интерфейс для отправки WebSocket сообщений
//
// Позволяет избежать циклических зависимостей между пакетами
// и упрощает тестирование (можно подставить mock)
type WebSocketBroadcaster interface {
	BroadcastNotification(notif *models.Notification)
}

// NotificationService предоставляет бизнес-логику для управления уведомлениями.
//
// Отвечает за:
// - Создание уведомлений о риск-событиях
// - Получение журнала уведомлений с фильтрацией
// - Пометку уведомлений прочитанными
// - Broadcast уведомлений через WebSocket
//
// Типы уведомлений:
// - MARGIN_CALL: открыт margin call (уровень упал ниже 150%)
// - LIQUIDATION_WARNING: call эскалирован в принудительную ликвидацию
type NotificationService struct {
	notificationRepo NotificationRepositoryInterface
	wsHub            WebSocketBroadcaster
}

// NewNotificationService создает новый экземпляр NotificationService.
func NewNotificationService(notificationRepo NotificationRepositoryInterface) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
	}
}

// SetWebSocketHub устанавливает WebSocket hub для broadcast уведомлений.
//
// Вызывается после инициализации Hub в main.go:
//
//	notifService := service.NewNotificationService(notifRepo)
//	notifService.SetWebSocketHub(wsHub)
func (s *NotificationService) SetWebSocketHub(hub WebSocketBroadcaster) {
	s.wsHub = hub
}

// CreateNotification создает новое уведомление.
//
// После успешного создания отправляет broadcast через WebSocket
// (если hub настроен).
func (s *NotificationService) CreateNotification(notif *models.Notification) error {
	if err := s.notificationRepo.Create(notif); err != nil {
		return err
	}

	// Broadcast через WebSocket hub для real-time обновления UI
	if s.wsHub != nil {
		s.wsHub.BroadcastNotification(notif)
	}

	return nil
}

// GetNotifications возвращает журнал уведомлений пользователя.
//
// Параметры:
//   - userID: пользователь
//   - types: фильтр по типам (пустой = все типы)
//   - limit: максимальное количество записей (по умолчанию 100, максимум 500)
//
// Возвращает уведомления отсортированные по времени (новые сверху).
func (s *NotificationService) GetNotifications(userID string, types []string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	// Нормализуем типы (приводим к верхнему регистру)
	normalizedTypes := make([]string, 0, len(types))
	for _, t := range types {
		normalized := strings.ToUpper(strings.TrimSpace(t))
		if normalized != "" && s.isValidNotificationType(normalized) {
			normalizedTypes = append(normalizedTypes, normalized)
		}
	}

	if len(normalizedTypes) > 0 {
		return s.notificationRepo.GetByUserAndTypes(userID, normalizedTypes, limit)
	}

	return s.notificationRepo.GetRecentByUser(userID, limit)
}

// MarkRead помечает уведомление прочитанным.
func (s *NotificationService) MarkRead(id int) error {
	return s.notificationRepo.MarkRead(id)
}

// GetUnreadCount возвращает количество непрочитанных уведомлений пользователя.
func (s *NotificationService) GetUnreadCount(userID string) (int, error) {
	return s.notificationRepo.CountUnread(userID)
}

// CleanupOld удаляет уведомления пользователя, оставляя только последние N.
//
// Используется для автоматической очистки журнала при превышении лимита.
func (s *NotificationService) CleanupOld(userID string, keepCount int) (int64, error) {
	if keepCount <= 0 {
		keepCount = 100
	}
	return s.notificationRepo.KeepRecent(userID, keepCount)
}

// isValidNotificationType проверяет, является ли тип допустимым.
func (s *NotificationService) isValidNotificationType(notifType string) bool {
	switch notifType {
	case models.NotificationTypeMarginCall, models.NotificationTypeLiquidationWarning:
		return true
	default:
		return false
	}
}

// CreateMarginCallNotification создает уведомление об открытии margin call.
//
// Приоритет выводится из серьезности call:
// critical → urgent, urgent → high, standard → normal.
func (s *NotificationService) CreateMarginCallNotification(userID string, marginLevel float64, severity string) error {
	priority := models.PriorityNormal
	switch severity {
	case models.SeverityCritical:
		priority = models.PriorityUrgent
	case models.SeverityUrgent:
		priority = models.PriorityHigh
	}

	notif := &models.Notification{
		UserID: userID,
		Type:   models.NotificationTypeMarginCall,
		Title:  "Margin Call",
		Message: fmt.Sprintf("⚠️ Your margin level dropped to %.2f%%. Deposit funds or close positions to avoid liquidation.",
			marginLevel),
		Read: false,
		Meta: map[string]interface{}{
			"margin_level": marginLevel,
			"severity":     severity,
			"priority":     priority,
		},
	}
	return s.CreateNotification(notif)
}

// CreateLiquidationWarning создает предупреждение об эскалации в ликвидацию.
func (s *NotificationService) CreateLiquidationWarning(userID string, marginLevel float64) error {
	notif := &models.Notification{
		UserID: userID,
		Type:   models.NotificationTypeLiquidationWarning,
		Title:  "Liquidation Warning",
		Message: fmt.Sprintf("💥 Margin level %.2f%%: your positions are being handed to forced liquidation.",
			marginLevel),
		Read: false,
		Meta: map[string]interface{}{
			"margin_level": marginLevel,
			"priority":     models.PriorityUrgent,
		},
	}
	return s.CreateNotification(notif)
}
