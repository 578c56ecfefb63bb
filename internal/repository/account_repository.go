package repository

import (
	"database/sql"
	"errors"

	"margincall/internal/models"
)

// Ошибки репозитория счетов
var (
	ErrAccountNotFound = errors.New("account not found")
)

// AccountRepository - чтение таблицы accounts
//
// Таблица принадлежит основному приложению; риск-сервис из нее
// только читает. Методов записи здесь нет намеренно.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository создает новый экземпляр репозитория
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetActiveWithMargin возвращает активные счета с занятой маржой.
//
// Фильтр margin_used > 0 отсекает определенно безопасные счета
// еще на стороне БД - они не участвуют в проверке margin call.
func (r *AccountRepository) GetActiveWithMargin() ([]*models.Account, error) {
	query := `
		SELECT id, user_id, equity, margin_used, account_status, updated_at
		FROM accounts
		WHERE account_status = $1 AND margin_used > 0
		ORDER BY user_id`

	rows, err := r.db.Query(query, models.AccountStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account := &models.Account{}
		err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.Equity,
			&account.MarginUsed,
			&account.AccountStatus,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}

// GetByUserID возвращает счет пользователя
func (r *AccountRepository) GetByUserID(userID string) (*models.Account, error) {
	query := `
		SELECT id, user_id, equity, margin_used, account_status, updated_at
		FROM accounts
		WHERE user_id = $1`

	account := &models.Account{}
	err := r.db.QueryRow(query, userID).Scan(
		&account.ID,
		&account.UserID,
		&account.Equity,
		&account.MarginUsed,
		&account.AccountStatus,
		&account.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return account, nil
}

// CountActive возвращает количество активных счетов с занятой маржой
func (r *AccountRepository) CountActive() (int, error) {
	query := `SELECT COUNT(*) FROM accounts WHERE account_status = $1 AND margin_used > 0`

	var count int
	err := r.db.QueryRow(query, models.AccountStatusActive).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
