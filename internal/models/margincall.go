package models

import "time"

// MarginCallEvent представляет одну запись margin call в жизненном цикле счета
//
// Жизненный цикл записи:
// NOTIFIED (создана при падении уровня ниже 150%) →
// RESOLVED (уровень восстановился до >= 150%) или
// ESCALATED (передана в workflow принудительной ликвидации).
// RESOLVED и ESCALATED - терминальные статусы; при повторном падении
// уровня создается новая запись.
//
// Инвариант: не более одной активной (нетерминальной) записи на пользователя.
// Обеспечивается частичным уникальным индексом:
//
//	CREATE UNIQUE INDEX margin_call_events_active_uniq
//	ON margin_call_events (user_id)
//	WHERE status IN ('notified', 'escalated');
type MarginCallEvent struct {
	ID                   int        `json:"id" db:"id"`
	UserID               string     `json:"user_id" db:"user_id"`
	TriggeredAt          time.Time  `json:"triggered_at" db:"triggered_at"`
	MarginLevelAtTrigger float64    `json:"margin_level_at_trigger" db:"margin_level_at_trigger"` // округлен до 2 знаков
	Status               string     `json:"status" db:"status"`                                   // pending, notified, resolved, escalated
	Severity             string     `json:"severity" db:"severity"`                               // standard, urgent, critical
	ResolvedAt           *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolutionType       string     `json:"resolution_type,omitempty" db:"resolution_type"`
	EscalatedAt          *time.Time `json:"escalated_at,omitempty" db:"escalated_at"`
}

// Статусы margin call (закрытое множество, state machine в internal/risk)
const (
	MarginCallStatusPending   = "pending"   // активного call нет (не хранится как строка в БД)
	MarginCallStatusNotified  = "notified"  // call активен, пользователь уведомлен
	MarginCallStatusResolved  = "resolved"  // уровень восстановился, терминальный
	MarginCallStatusEscalated = "escalated" // передан в ликвидацию, терминальный
)

// Уровни серьезности margin call (по возрастанию риска)
const (
	SeverityStandard = "standard" // уровень [100%, 150%)
	SeverityUrgent   = "urgent"   // уровень [50%, 100%)
	SeverityCritical = "critical" // уровень < 50%
)

// Типы разрешения margin call
const (
	ResolutionEquityRecovered = "equity_recovered" // капитал восстановился выше порога
	ResolutionLiquidated      = "liquidated"       // позиции ликвидированы
)

// IsTerminal возвращает true для терминальных статусов записи
func (e *MarginCallEvent) IsTerminal() bool {
	return e.Status == MarginCallStatusResolved || e.Status == MarginCallStatusEscalated
}

// SeverityRank возвращает числовой ранг серьезности для сравнения
//
// Чем выше ранг, тем выше риск: critical=3, urgent=2, standard=1,
// неизвестное значение = 0.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 3
	case SeverityUrgent:
		return 2
	case SeverityStandard:
		return 1
	default:
		return 0
	}
}
