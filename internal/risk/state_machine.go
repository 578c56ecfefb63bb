package risk

import (
	"fmt"

	"margincall/internal/models"
)

// state_machine.go - жизненный цикл записи margin call
//
// Отслеживает переходы статуса одной записи между последовательными
// проверками. Порог открытия и порог разрешения совпадают (150%),
// отдельной полосы гистерезиса нет.

// ValidTransitions определяет допустимые переходы между статусами
var ValidTransitions = map[string][]string{
	models.MarginCallStatusPending:   {models.MarginCallStatusNotified},
	models.MarginCallStatusNotified:  {models.MarginCallStatusResolved, models.MarginCallStatusEscalated},
	models.MarginCallStatusResolved:  {}, // терминальный
	models.MarginCallStatusEscalated: {}, // терминальный
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StateTransition - результат сравнения двух последовательных проверок
type StateTransition struct {
	UserID         string `json:"user_id"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	Changed        bool   `json:"changed"`
	Reason         string `json:"reason"`
	// EscalationRequired выставляется на входном ребре (PENDING→NOTIFIED),
	// когда входная серьезность urgent или critical: batch runner должен
	// начать отсчет времени эскалации сразу, не дожидаясь следующего цикла.
	EscalationRequired bool `json:"escalation_required"`
}

// UpdateMarginCallState решает переход статуса по двум уровням.
//
// Чистая функция: различает только два ребра, видимых без знания
// времени - PENDING→NOTIFIED (вход в call) и NOTIFIED→RESOLVED
// (восстановление). Эскалация NOTIFIED→ESCALATED решается отдельно
// batch runner'ом, потому что требует времени с момента triggered_at,
// которого у чистой функции нет.
func UpdateMarginCallState(userID string, previousLevel, currentLevel float64) StateTransition {
	previousStatus := statusForLevel(previousLevel)
	currentStatus := statusForLevel(currentLevel)

	t := StateTransition{
		UserID:         userID,
		PreviousStatus: previousStatus,
		NewStatus:      previousStatus,
	}

	switch {
	case previousStatus == models.MarginCallStatusPending && currentStatus == models.MarginCallStatusNotified:
		// Вход в margin call - создается новая запись
		severity := ClassifyMarginCallSeverity(currentLevel)
		t.NewStatus = models.MarginCallStatusNotified
		t.Changed = true
		t.Reason = fmt.Sprintf("margin level dropped to %.2f%% (severity %s)", Round2(currentLevel), severity)
		t.EscalationRequired = severity != models.SeverityStandard

	case previousStatus == models.MarginCallStatusNotified && currentStatus == models.MarginCallStatusPending:
		// Восстановление - запись разрешается
		t.NewStatus = models.MarginCallStatusResolved
		t.Changed = true
		t.Reason = fmt.Sprintf("margin level recovered to %.2f%%", Round2(currentLevel))

	default:
		t.Reason = "no status change"
	}

	return t
}

// statusForLevel возвращает статус, подразумеваемый уровнем
func statusForLevel(level float64) string {
	if level >= MarginCallThreshold {
		return models.MarginCallStatusPending
	}
	return models.MarginCallStatusNotified
}

// ShouldRestrictNewTrading возвращает true если открытие новых позиций
// должно быть запрещено для данного статуса.
//
// Одна из двух внешне видимых "заслонок": путь исполнения ордеров
// (внешний компонент) обязан сверяться с ней перед приемом ордера
// на открытие позиции.
func ShouldRestrictNewTrading(status string) bool {
	return status == models.MarginCallStatusNotified || status == models.MarginCallStatusEscalated
}

// ShouldEnforceCloseOnly возвращает true если счет в режиме close-only
// (разрешено только закрытие позиций) для данного статуса.
func ShouldEnforceCloseOnly(status string) bool {
	return status == models.MarginCallStatusNotified || status == models.MarginCallStatusEscalated
}

// StatusInfo возвращает описание статуса для UI
func StatusInfo(status string) string {
	switch status {
	case models.MarginCallStatusPending:
		return "Margin call отсутствует"
	case models.MarginCallStatusNotified:
		return "Margin call активен, пользователь уведомлен"
	case models.MarginCallStatusResolved:
		return "Margin call разрешен (капитал восстановился)"
	case models.MarginCallStatusEscalated:
		return "Эскалация в принудительную ликвидацию"
	default:
		return "Неизвестный статус"
	}
}
