package utils

import (
	"math"
)

// math.go - математические утилиты для риск-расчетов
//
// Назначение:
// Вспомогательные числовые функции для маржинальных расчетов.
// Все функции являются чистыми (pure functions) без побочных эффектов.
//
// Функции:
// - RoundTo: округление до N знаков после запятой
// - SafeDivide: деление с защитой от нуля
// - PercentOf: доля в процентах
// - Clamp / Abs / Min / Max: базовые ограничители

// RoundTo округляет значение до decimals знаков после запятой.
//
// Специальные значения (+Inf, -Inf, NaN) возвращаются как есть -
// счет без занятой маржи имеет уровень +Inf и округлению не подлежит.
//
// Примеры:
//   - RoundTo(149.996, 2) = 150.0
//   - RoundTo(33.333333, 2) = 33.33
//   - RoundTo(+Inf, 2) = +Inf
func RoundTo(value float64, decimals int) float64 {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return value
	}
	factor := math.Pow(10, float64(decimals))
	return math.Round(value*factor) / factor
}

// SafeDivide делит a на b, возвращая fallback при b == 0.
//
// Используется там, где деление на ноль означает "значение не
// определено", а не ошибку (например, средний уровень по пустому
// списку счетов).
func SafeDivide(a, b, fallback float64) float64 {
	if b == 0 {
		return fallback
	}
	return a / b
}

// PercentOf возвращает долю part от total в процентах.
//
// Возвращает 0 если total <= 0.
//
// Примеры:
//   - PercentOf(4200, 5000) = 84.0
//   - PercentOf(10, 0) = 0
func PercentOf(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return part / total * 100
}

// Abs возвращает абсолютное значение числа.
func Abs(x float64) float64 {
	return math.Abs(x)
}

// Min возвращает минимум из двух чисел.
func Min(a, b float64) float64 {
	return math.Min(a, b)
}

// Max возвращает максимум из двух чисел.
func Max(a, b float64) float64 {
	return math.Max(a, b)
}

// Clamp ограничивает значение диапазоном [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
