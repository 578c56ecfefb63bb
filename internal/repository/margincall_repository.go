package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"margincall/internal/models"
)

// Ошибки репозитория margin calls
var (
	ErrCallNotFound = errors.New("margin call not found")

	// ErrActiveCallExists возвращается при нарушении частичного уникального
	// индекса (user_id) WHERE status IN ('notified','escalated').
	// Означает что конкурирующий запуск уже создал активную запись -
	// вызывающий должен трактовать это как идемпотентный no-op,
	// а не как отказ.
	ErrActiveCallExists = errors.New("active margin call already exists for user")
)

// Код ошибки PostgreSQL unique_violation
const pqUniqueViolation = "23505"

// MarginCallRepository - работа с таблицей margin_call_events
type MarginCallRepository struct {
	db *sql.DB
}

// NewMarginCallRepository создает новый экземпляр репозитория
func NewMarginCallRepository(db *sql.DB) *MarginCallRepository {
	return &MarginCallRepository{db: db}
}

// Create создает запись margin call.
//
// Инвариант "не более одной активной записи на пользователя" обеспечивает
// БД (частичный уникальный индекс); конфликт транслируется в
// ErrActiveCallExists.
func (r *MarginCallRepository) Create(event *models.MarginCallEvent) error {
	query := `
		INSERT INTO margin_call_events (user_id, triggered_at, margin_level_at_trigger, status, severity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	if event.TriggeredAt.IsZero() {
		event.TriggeredAt = time.Now()
	}

	err := r.db.QueryRow(
		query,
		event.UserID,
		event.TriggeredAt,
		event.MarginLevelAtTrigger,
		event.Status,
		event.Severity,
	).Scan(&event.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrActiveCallExists
		}
		return err
	}

	return nil
}

// GetByID возвращает запись по ID
func (r *MarginCallRepository) GetByID(id int) (*models.MarginCallEvent, error) {
	query := `
		SELECT id, user_id, triggered_at, margin_level_at_trigger, status, severity, resolved_at, resolution_type, escalated_at
		FROM margin_call_events
		WHERE id = $1`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetActiveByUserID возвращает активную (нетерминальную) запись пользователя.
//
// Активными считаются только notified и escalated: pending не хранится
// как строка, resolved - терминальный.
func (r *MarginCallRepository) GetActiveByUserID(userID string) (*models.MarginCallEvent, error) {
	query := `
		SELECT id, user_id, triggered_at, margin_level_at_trigger, status, severity, resolved_at, resolution_type, escalated_at
		FROM margin_call_events
		WHERE user_id = $1 AND status IN ($2, $3)
		ORDER BY triggered_at DESC
		LIMIT 1`

	return r.scanOne(r.db.QueryRow(query, userID, models.MarginCallStatusNotified, models.MarginCallStatusEscalated))
}

// GetRecent возвращает последние N записей
func (r *MarginCallRepository) GetRecent(limit int) ([]*models.MarginCallEvent, error) {
	query := `
		SELECT id, user_id, triggered_at, margin_level_at_trigger, status, severity, resolved_at, resolution_type, escalated_at
		FROM margin_call_events
		ORDER BY triggered_at DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// GetByUserID возвращает историю записей пользователя
func (r *MarginCallRepository) GetByUserID(userID string, limit int) ([]*models.MarginCallEvent, error) {
	query := `
		SELECT id, user_id, triggered_at, margin_level_at_trigger, status, severity, resolved_at, resolution_type, escalated_at
		FROM margin_call_events
		WHERE user_id = $1
		ORDER BY triggered_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// GetByStatus возвращает записи с определенным статусом
func (r *MarginCallRepository) GetByStatus(status string, limit int) ([]*models.MarginCallEvent, error) {
	query := `
		SELECT id, user_id, triggered_at, margin_level_at_trigger, status, severity, resolved_at, resolution_type, escalated_at
		FROM margin_call_events
		WHERE status = $1
		ORDER BY triggered_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// MarkResolved переводит запись в терминальный статус resolved
func (r *MarginCallRepository) MarkResolved(id int, resolvedAt time.Time, resolutionType string) error {
	query := `
		UPDATE margin_call_events
		SET status = $1, resolved_at = $2, resolution_type = $3
		WHERE id = $4 AND status = $5`

	result, err := r.db.Exec(query, models.MarginCallStatusResolved, resolvedAt, resolutionType, id, models.MarginCallStatusNotified)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrCallNotFound
	}

	return nil
}

// MarkEscalated переводит запись в терминальный статус escalated
func (r *MarginCallRepository) MarkEscalated(id int, escalatedAt time.Time) error {
	query := `
		UPDATE margin_call_events
		SET status = $1, escalated_at = $2
		WHERE id = $3 AND status = $4`

	result, err := r.db.Exec(query, models.MarginCallStatusEscalated, escalatedAt, id, models.MarginCallStatusNotified)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrCallNotFound
	}

	return nil
}

// CountByStatus возвращает количество записей с определенным статусом
func (r *MarginCallRepository) CountByStatus(status string) (int, error) {
	query := `SELECT COUNT(*) FROM margin_call_events WHERE status = $1`

	var count int
	err := r.db.QueryRow(query, status).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteOlderThan удаляет терминальные записи старше указанной даты
//
// Активные записи не удаляются независимо от возраста.
func (r *MarginCallRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	query := `
		DELETE FROM margin_call_events
		WHERE triggered_at < $1 AND status IN ($2, $3)`

	result, err := r.db.Exec(query, timestamp, models.MarginCallStatusResolved, models.MarginCallStatusEscalated)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// scanOne сканирует одну строку margin_call_events
func (r *MarginCallRepository) scanOne(row *sql.Row) (*models.MarginCallEvent, error) {
	event := &models.MarginCallEvent{}
	var resolutionType sql.NullString

	err := row.Scan(
		&event.ID,
		&event.UserID,
		&event.TriggeredAt,
		&event.MarginLevelAtTrigger,
		&event.Status,
		&event.Severity,
		&event.ResolvedAt,
		&resolutionType,
		&event.EscalatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCallNotFound
		}
		return nil, err
	}

	event.ResolutionType = resolutionType.String

	return event, nil
}

// scanMany сканирует список строк margin_call_events
func (r *MarginCallRepository) scanMany(rows *sql.Rows) ([]*models.MarginCallEvent, error) {
	var events []*models.MarginCallEvent
	for rows.Next() {
		event := &models.MarginCallEvent{}
		var resolutionType sql.NullString

		err := rows.Scan(
			&event.ID,
			&event.UserID,
			&event.TriggeredAt,
			&event.MarginLevelAtTrigger,
			&event.Status,
			&event.Severity,
			&event.ResolvedAt,
			&resolutionType,
			&event.EscalatedAt,
		)
		if err != nil {
			return nil, err
		}

		event.ResolutionType = resolutionType.String
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
