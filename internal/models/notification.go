package models

import "time"

// Notification представляет уведомление пользователя о риск-событии
type Notification struct {
	ID        int                    `json:"id" db:"id"`
	UserID    string                 `json:"user_id" db:"user_id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Type      string                 `json:"type" db:"type"` // MARGIN_CALL, LIQUIDATION_WARNING
	Title     string                 `json:"title" db:"title"`
	Message   string                 `json:"message" db:"message"`
	Read      bool                   `json:"read" db:"read"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"` // margin_level, severity, priority (JSON в БД)
}

// Типы уведомлений
const (
	NotificationTypeMarginCall         = "MARGIN_CALL"         // открыт margin call
	NotificationTypeLiquidationWarning = "LIQUIDATION_WARNING" // эскалация в ликвидацию
)

// Приоритеты уведомлений (поле meta.priority)
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)
