package risk

import (
	"fmt"
	"math"

	"margincall/internal/models"
)

// detector.go - классификация риска по маржинальному уровню
//
// Чистый детектор margin call: по двум числам (equity, margin_used)
// решает, открыт ли call, его серьезность, нужен ли режим close-only
// и требуется ли эскалация в ликвидацию. Никакого I/O и состояния.

// Пороговая таблица маржинального уровня (в процентах).
// Диапазоны не пересекаются, проверяются от наиболее серьезного:
//
//	marginUsed == 0  → call нет (уровень бесконечен)
//	< 50             → CRITICAL, эскалация, close-only
//	[50, 100)        → URGENT, close-only
//	[100, 150)       → STANDARD
//	>= 150           → call нет
const (
	// MarginCallThreshold - уровень, ниже которого открывается margin call.
	// Он же является порогом разрешения: гистерезиса нет, счет колеблющийся
	// ровно вокруг 150% будет переключаться между NOTIFIED и RESOLVED
	// на соседних проверках (осознанное упрощение текущего дизайна).
	MarginCallThreshold = 150.0

	// CloseOnlyThreshold - ниже этого уровня запрещено открытие новых позиций
	CloseOnlyThreshold = 100.0

	// CriticalThreshold - ниже этого уровня call считается критическим
	CriticalThreshold = 50.0

	// ImmediateEscalationThreshold - ниже этого уровня эскалация в ликвидацию
	// происходит немедленно, без ожидания EscalationDelayMinutes
	ImmediateEscalationThreshold = 30.0

	// EscalationDelayMinutes - сколько минут критический call может висеть
	// до принудительной эскалации в ликвидацию
	EscalationDelayMinutes = 30.0
)

// DetectionResult - результат классификации риска для одного счета
type DetectionResult struct {
	IsTriggered            bool    `json:"is_triggered"`
	MarginLevel            float64 `json:"margin_level"` // округлен до 2 знаков для отчета
	Severity               string  `json:"severity,omitempty"`
	ShouldEscalate         bool    `json:"should_escalate"`
	ShouldEnforceCloseOnly bool    `json:"should_enforce_close_only"`
	// TimeToLiquidationMinutes - эвристическая оценка времени до ликвидации.
	// Только справочная величина, не гарантия (см. EstimateTimeToLiquidation).
	// nil если call не открыт.
	TimeToLiquidationMinutes *int   `json:"time_to_liquidation_minutes,omitempty"`
	Message                  string `json:"message"`
}

// DetectMarginCall классифицирует риск счета по двум числам.
//
// Сравнение с порогами идет по неокругленному уровню; в результат
// записывается округленное значение (граница хранения/отчета).
//
// Отрицательный marginUsed - нарушение контракта вызывающего: функция
// не валидирует вход и вернет бессмысленный результат. Batch runner
// никогда не передает отрицательную маржу (SQL фильтр margin_used > 0).
func DetectMarginCall(equity, marginUsed float64) DetectionResult {
	level := CalculateMarginLevel(equity, marginUsed)

	// Счет без маржи по определению безопасен
	if marginUsed == 0 {
		return DetectionResult{
			IsTriggered: false,
			MarginLevel: level, // +Inf
			Message:     "No margin in use, account is safe",
		}
	}

	rounded := Round2(level)

	// Уровень достаточный - call не открывается
	if level >= MarginCallThreshold {
		return DetectionResult{
			IsTriggered: false,
			MarginLevel: rounded,
			Message:     fmt.Sprintf("Margin level %.2f%% is healthy", rounded),
		}
	}

	severity := ClassifyMarginCallSeverity(level)

	result := DetectionResult{
		IsTriggered:            true,
		MarginLevel:            rounded,
		Severity:               severity,
		ShouldEscalate:         level < CriticalThreshold,
		ShouldEnforceCloseOnly: level < CloseOnlyThreshold,
	}

	if est := EstimateTimeToLiquidation(level); est != nil {
		result.TimeToLiquidationMinutes = est
	}

	switch severity {
	case models.SeverityCritical:
		result.Message = fmt.Sprintf("CRITICAL margin call: level %.2f%%, liquidation imminent", rounded)
	case models.SeverityUrgent:
		result.Message = fmt.Sprintf("Urgent margin call: level %.2f%%, close-only mode enforced", rounded)
	default:
		result.Message = fmt.Sprintf("Margin call: level %.2f%%, deposit funds or reduce positions", rounded)
	}

	return result
}

// ClassifyMarginCallSeverity возвращает серьезность уже открытого call.
//
// Использует те же границы, что и DetectMarginCall:
// < 50 → critical, < 100 → urgent, иначе standard.
//
// Вызывается только для уровней ниже порога открытия call
// (level >= 150 в этом пути невозможен по построению).
func ClassifyMarginCallSeverity(marginLevel float64) string {
	switch {
	case marginLevel < CriticalThreshold:
		return models.SeverityCritical
	case marginLevel < CloseOnlyThreshold:
		return models.SeverityUrgent
	default:
		return models.SeverityStandard
	}
}

// ShouldEscalateToLiquidation решает, передавать ли call в принудительную
// ликвидацию.
//
// Правила:
//   - уровень < 50% И call висит >= 30 минут
//   - уровень < 30% - немедленно, независимо от времени
//
// Сама ликвидация выполняется внешним workflow; здесь только решение.
func ShouldEscalateToLiquidation(marginLevel, timeInCallMinutes float64) bool {
	if marginLevel < ImmediateEscalationThreshold {
		return true
	}
	return marginLevel < CriticalThreshold && timeInCallMinutes >= EscalationDelayMinutes
}

// EstimateTimeToLiquidation возвращает эвристическую оценку минут до
// ликвидации: max(0, ceil((level - 50) / (level / 60))).
//
// Формула - проекция линейного распада уровня без документированного
// вывода; значение только справочное, не SLA. nil для level <= 0.
func EstimateTimeToLiquidation(marginLevel float64) *int {
	if marginLevel <= 0 {
		return nil
	}
	minutes := int(math.Ceil((marginLevel - CriticalThreshold) / (marginLevel / 60)))
	if minutes < 0 {
		minutes = 0
	}
	return &minutes
}

// RecommendedAction - одно рекомендуемое действие для пользователя
type RecommendedAction struct {
	Action      string `json:"action"`
	Urgency     string `json:"urgency"` // high, medium, low
	Description string `json:"description"`
}

// Срочность рекомендаций
const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

// GetRecommendedActions возвращает список рекомендаций по уровню риска.
//
// Список чисто справочный, без побочных эффектов. Порядок фиксирован:
// самое срочное действие первым.
func GetRecommendedActions(marginLevel float64, positionCount int) []RecommendedAction {
	severity := ClassifyMarginCallSeverity(marginLevel)

	closeDescription := "Close open positions to free margin"
	if positionCount > 0 {
		closeDescription = fmt.Sprintf("Close some of your %d open positions to free margin", positionCount)
	}

	switch severity {
	case models.SeverityCritical:
		return []RecommendedAction{
			{
				Action:      "Deposit funds immediately",
				Urgency:     UrgencyHigh,
				Description: "Add funds to your account now to avoid forced liquidation",
			},
			{
				Action:      "Close positions",
				Urgency:     UrgencyHigh,
				Description: closeDescription,
			},
			{
				Action:      "Reduce leverage",
				Urgency:     UrgencyMedium,
				Description: "Lower leverage on remaining positions to reduce margin requirements",
			},
		}
	case models.SeverityUrgent:
		return []RecommendedAction{
			{
				Action:      "Deposit funds",
				Urgency:     UrgencyHigh,
				Description: "Add funds to restore your margin level above 100%",
			},
			{
				Action:      "Close largest losing positions",
				Urgency:     UrgencyMedium,
				Description: "Closing the biggest losers frees margin fastest",
			},
		}
	default:
		return []RecommendedAction{
			{
				Action:      "Monitor your account",
				Urgency:     UrgencyMedium,
				Description: "Watch your margin level, it is below the safe threshold",
			},
			{
				Action:      "Avoid new leveraged positions",
				Urgency:     UrgencyLow,
				Description: "Opening new leveraged positions will worsen your margin level",
			},
		}
	}
}
