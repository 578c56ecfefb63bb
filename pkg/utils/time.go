package utils

import (
	"time"
)

// time.go - утилиты для работы со временем
//
// Назначение:
// Вспомогательные функции для временных расчетов риск-движка:
// возраст активного margin call, границы ретенции журналов,
// форматирование длительностей для логов.

// MinutesBetween возвращает количество минут между from и to.
//
// Используется для расчета времени нахождения счета в margin call
// (правило эскалации). Возвращает дробное значение; отрицательное
// если to раньше from.
func MinutesBetween(from, to time.Time) float64 {
	return to.Sub(from).Minutes()
}

// RetentionCutoff возвращает границу ретенции: все записи старше
// нее подлежат удалению.
//
// Параметры:
//   - now: текущий момент
//   - days: глубина хранения в днях (<= 0 означает "не удалять",
//     возвращается нулевое время)
func RetentionCutoff(now time.Time, days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -days).UTC()
}

// FormatDuration форматирует продолжительность в человекочитаемый формат
//
// Примеры:
//   - "45s"
//   - "5m30s"
//   - "2h15m"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		if hours > 0 {
			return (time.Duration(days*24+hours) * time.Hour).String()
		}
		return (time.Duration(days*24) * time.Hour).String()
	}

	if hours > 0 {
		if minutes > 0 {
			return (time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute).String()
		}
		return (time.Duration(hours) * time.Hour).String()
	}

	if minutes > 0 {
		if seconds > 0 {
			return (time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second).String()
		}
		return (time.Duration(minutes) * time.Minute).String()
	}

	return (time.Duration(seconds) * time.Second).String()
}

// ToUTC конвертирует время в UTC
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}
