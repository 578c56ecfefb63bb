package models

import "time"

// Account представляет торговый счет пользователя
//
// Таблица accounts принадлежит основному приложению (ledger).
// Риск-сервис читает из нее только снимок {equity, margin_used}
// и никогда не пишет в нее.
type Account struct {
	ID            int       `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	Equity        float64   `json:"equity" db:"equity"`                 // текущий капитал в USD
	MarginUsed    float64   `json:"margin_used" db:"margin_used"`       // занятая маржа в USD
	AccountStatus string    `json:"account_status" db:"account_status"` // active, suspended, closed
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Статусы счета
const (
	AccountStatusActive    = "active"
	AccountStatusSuspended = "suspended"
	AccountStatusClosed    = "closed"
)

// HasOpenMargin возвращает true если на счете есть занятая маржа
//
// Счета без маржи (margin_used == 0) по определению безопасны
// и не участвуют в проверке margin call.
func (a *Account) HasOpenMargin() bool {
	return a.MarginUsed > 0
}
