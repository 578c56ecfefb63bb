package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"margincall/internal/models"
)

// Ошибки репозитория уведомлений
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// NotificationRepository - работа с таблицей notifications
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создает новое уведомление
func (r *NotificationRepository) Create(notif *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, timestamp, type, title, message, read, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	if notif.Timestamp.IsZero() {
		notif.Timestamp = time.Now()
	}

	var meta []byte
	if notif.Meta != nil {
		var err error
		meta, err = json.Marshal(notif.Meta)
		if err != nil {
			return err
		}
	}

	err := r.db.QueryRow(
		query,
		notif.UserID,
		notif.Timestamp,
		notif.Type,
		notif.Title,
		notif.Message,
		notif.Read,
		meta,
	).Scan(&notif.ID)

	if err != nil {
		return err
	}

	return nil
}

// GetRecentByUser возвращает последние N уведомлений пользователя
func (r *NotificationRepository) GetRecentByUser(userID string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, timestamp, type, title, message, read, meta
		FROM notifications
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// GetByUserAndTypes возвращает уведомления пользователя определенных типов
func (r *NotificationRepository) GetByUserAndTypes(userID string, types []string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, timestamp, type, title, message, read, meta
		FROM notifications
		WHERE user_id = $1 AND type = ANY($2)
		ORDER BY timestamp DESC
		LIMIT $3`

	rows, err := r.db.Query(query, userID, pq.Array(types), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// MarkRead помечает уведомление прочитанным
func (r *NotificationRepository) MarkRead(id int) error {
	query := `UPDATE notifications SET read = true WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// CountUnread возвращает количество непрочитанных уведомлений пользователя
func (r *NotificationRepository) CountUnread(userID string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = false`

	var count int
	err := r.db.QueryRow(query, userID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Count возвращает общее количество уведомлений
func (r *NotificationRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM notifications`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteOlderThan удаляет уведомления старше указанной даты
func (r *NotificationRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE timestamp < $1`

	result, err := r.db.Exec(query, timestamp)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// KeepRecent удаляет уведомления пользователя, оставляя последние N
func (r *NotificationRepository) KeepRecent(userID string, keepCount int) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM notifications
			WHERE user_id = $1
			ORDER BY timestamp DESC
			LIMIT $2
		)`

	result, err := r.db.Exec(query, userID, keepCount)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// scanMany сканирует список строк notifications
func (r *NotificationRepository) scanMany(rows *sql.Rows) ([]*models.Notification, error) {
	var notifications []*models.Notification
	for rows.Next() {
		notif := &models.Notification{}
		var meta []byte

		err := rows.Scan(
			&notif.ID,
			&notif.UserID,
			&notif.Timestamp,
			&notif.Type,
			&notif.Title,
			&notif.Message,
			&notif.Read,
			&meta,
		)
		if err != nil {
			return nil, err
		}

		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &notif.Meta); err != nil {
				return nil, err
			}
		}

		notifications = append(notifications, notif)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}
