package websocket

import (
	"time"

	"margincall/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeMarginCall - изменение состояния margin call
	// Отправляется при открытии, эскалации и разрешении записи
	MessageTypeMarginCall MessageType = "marginCall"

	// MessageTypeNotification - новое уведомление
	// Отправляется при создании записи в журнале уведомлений
	MessageTypeNotification MessageType = "notification"

	// MessageTypeRunSummary - итог прохода риск-проверки
	// Отправляется после каждого завершенного прохода по счетам
	MessageTypeRunSummary MessageType = "runSummary"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// MarginCallMessage - сообщение об изменении состояния margin call
//
// Содержит актуальное состояние записи:
// - Статус (notified, resolved, escalated)
// - Уровень критичности (standard, urgent, critical)
// - Уровень маржи на момент триггера
//
// Позволяет dashboard'у подсвечивать счета в margin call без polling
type MarginCallMessage struct {
	BaseMessage
	Data *MarginCallData `json:"data"`
}

// MarginCallData - данные записи margin call
type MarginCallData struct {
	// ID записи в БД
	ID int `json:"id"`

	// Пользователь, чей счет в margin call
	UserID string `json:"user_id"`

	// Статус записи (notified, resolved, escalated)
	Status string `json:"status"`

	// Уровень критичности (standard, urgent, critical)
	Severity string `json:"severity"`

	// Уровень маржи в процентах на момент триггера
	MarginLevel float64 `json:"margin_level"`

	// Время триггера
	TriggeredAt time.Time `json:"triggered_at"`
}

// NotificationMessage - сообщение о новом уведомлении
type NotificationMessage struct {
	BaseMessage
	Data *NotificationData `json:"data"`
}

// NotificationData - данные уведомления
type NotificationData struct {
	// ID уведомления в БД
	ID int `json:"id"`

	// Пользователь-получатель
	UserID string `json:"user_id"`

	// Тип уведомления (MARGIN_CALL, LIQUIDATION_WARNING)
	Type string `json:"type"`

	// Заголовок
	Title string `json:"title"`

	// Текст сообщения
	Message string `json:"message"`

	// Дополнительные метаданные (уровень маржи, severity и т.д.)
	Meta map[string]interface{} `json:"meta,omitempty"`

	// Время создания уведомления
	Timestamp time.Time `json:"timestamp"`
}

// RunSummaryMessage - сообщение об итоге прохода риск-проверки
//
// Data сериализуется как risk.RunSummary
type RunSummaryMessage struct {
	BaseMessage
	Data interface{} `json:"data"`
}

// ============ Фабричные функции для создания сообщений ============

// NewMarginCallMessage создает сообщение об изменении margin call
func NewMarginCallMessage(event *models.MarginCallEvent) *MarginCallMessage {
	return &MarginCallMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeMarginCall,
			Timestamp: time.Now(),
		},
		Data: &MarginCallData{
			ID:          event.ID,
			UserID:      event.UserID,
			Status:      event.Status,
			Severity:    event.Severity,
			MarginLevel: event.MarginLevelAtTrigger,
			TriggeredAt: event.TriggeredAt,
		},
	}
}

// NewNotificationMessage создает сообщение уведомления
func NewNotificationMessage(notif *models.Notification) *NotificationMessage {
	return &NotificationMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeNotification,
			Timestamp: time.Now(),
		},
		Data: &NotificationData{
			ID:        notif.ID,
			UserID:    notif.UserID,
			Type:      notif.Type,
			Title:     notif.Title,
			Message:   notif.Message,
			Meta:      notif.Meta,
			Timestamp: notif.Timestamp,
		},
	}
}

// NewRunSummaryMessage создает сообщение итога прохода
func NewRunSummaryMessage(summary interface{}) *RunSummaryMessage {
	return &RunSummaryMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeRunSummary,
			Timestamp: time.Now(),
		},
		Data: summary,
	}
}
