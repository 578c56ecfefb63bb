package risk

import (
	"math"

	"margincall/pkg/utils"
)

// margin_level.go - расчет маржинального уровня счета
//
// Маржинальный уровень - единственная входная величина для всей
// классификации риска: level = equity / margin_used * 100.
//
// Все функции являются чистыми (pure functions) без побочных эффектов.

// CalculateMarginLevel возвращает маржинальный уровень счета в процентах.
//
// Параметры:
//   - equity: текущий капитал счета в USD
//   - marginUsed: занятая маржа в USD (по контракту вызывающего >= 0)
//
// Возвращает:
//   - equity / marginUsed * 100 с полной точностью
//   - +Inf если marginUsed == 0 (счет без маржи по определению безопасен,
//     деления на ноль не происходит)
//
// Округление НЕ выполняется: сравнение с порогами должно идти по
// неокругленному значению, иначе преждевременное округление маскирует
// граничные случаи (149.996 округлился бы до 150.00 и call не открылся бы).
// Округляйте через Round2 только на границе хранения/отчета.
func CalculateMarginLevel(equity, marginUsed float64) float64 {
	if marginUsed == 0 {
		return math.Inf(1)
	}
	return equity / marginUsed * 100
}

// Round2 округляет значение до 2 знаков после запятой.
//
// Используется только для хранимого/отображаемого значения уровня,
// никогда перед сравнением с порогами.
func Round2(value float64) float64 {
	return utils.RoundTo(value, 2)
}
