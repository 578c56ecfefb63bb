package utils

import (
	"fmt"
	"math"
	"strings"
)

// validator.go - валидация входных данных
//
// Назначение:
// Проверка корректности параметров на границе API и перед расчетами.
//
// Функции:
// - ValidateUserID: идентификатор пользователя
// - ValidateAccountInputs: входы маржинального расчета
// - ValidateLimit: параметр limit списочных запросов
//
// Возвращает error с описанием проблемы или nil

// maxUserIDLength ограничивает длину user_id на границе API
const maxUserIDLength = 64

// ValidateUserID проверяет идентификатор пользователя.
//
// Допустимы латинские буквы, цифры, дефис и подчеркивание,
// длина от 1 до 64 символов.
func ValidateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}
	if len(userID) > maxUserIDLength {
		return fmt.Errorf("user_id exceeds %d characters", maxUserIDLength)
	}
	for _, r := range userID {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return fmt.Errorf("user_id contains invalid character %q", r)
		}
	}
	return nil
}

// ValidateAccountInputs проверяет входы маржинального расчета.
//
// Отрицательная или нечисловая занятая маржа означает испорченные
// данные счета - расчет уровня по ним не имеет смысла.
func ValidateAccountInputs(equity, marginUsed float64) error {
	if math.IsNaN(equity) || math.IsInf(equity, 0) {
		return fmt.Errorf("equity is not a finite number")
	}
	if math.IsNaN(marginUsed) || math.IsInf(marginUsed, 0) {
		return fmt.Errorf("margin_used is not a finite number")
	}
	if marginUsed < 0 {
		return fmt.Errorf("margin_used must be >= 0, got %v", marginUsed)
	}
	return nil
}

// ValidateLimit нормализует параметр limit списочных запросов.
//
// Возвращает limit, ограниченный диапазоном [1, max];
// значения <= 0 заменяются на def.
func ValidateLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// NormalizeType приводит тип уведомления к каноническому виду
// (верхний регистр, без окружающих пробелов).
func NormalizeType(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}
