package service

import (
	"time"

	"margincall/internal/models"
	"margincall/internal/repository"
)

// AccountRepositoryInterface определяет интерфейс репозитория счетов
type AccountRepositoryInterface interface {
	GetActiveWithMargin() ([]*models.Account, error)
	GetByUserID(userID string) (*models.Account, error)
	CountActive() (int, error)
}

// MarginCallRepositoryInterface определяет интерфейс репозитория margin calls
type MarginCallRepositoryInterface interface {
	Create(event *models.MarginCallEvent) error
	GetByID(id int) (*models.MarginCallEvent, error)
	GetActiveByUserID(userID string) (*models.MarginCallEvent, error)
	GetRecent(limit int) ([]*models.MarginCallEvent, error)
	GetByUserID(userID string, limit int) ([]*models.MarginCallEvent, error)
	GetByStatus(status string, limit int) ([]*models.MarginCallEvent, error)
	MarkResolved(id int, resolvedAt time.Time, resolutionType string) error
	MarkEscalated(id int, escalatedAt time.Time) error
	CountByStatus(status string) (int, error)
	DeleteOlderThan(timestamp time.Time) (int64, error)
}

// NotificationRepositoryInterface определяет интерфейс репозитория уведомлений
type NotificationRepositoryInterface interface {
	Create(notif *models.Notification) error
	GetRecentByUser(userID string, limit int) ([]*models.Notification, error)
	GetByUserAndTypes(userID string, types []string, limit int) ([]*models.Notification, error)
	MarkRead(id int) error
	CountUnread(userID string) (int, error)
	Count() (int, error)
	DeleteOlderThan(timestamp time.Time) (int64, error)
	KeepRecent(userID string, keepCount int) (int64, error)
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ AccountRepositoryInterface = (*repository.AccountRepository)(nil)
var _ MarginCallRepositoryInterface = (*repository.MarginCallRepository)(nil)
var _ NotificationRepositoryInterface = (*repository.NotificationRepository)(nil)

// ============ Интерфейсы сервисов для Dependency Injection ============

// NotificationServiceInterface определяет интерфейс сервиса уведомлений
type NotificationServiceInterface interface {
	CreateNotification(notif *models.Notification) error
	GetNotifications(userID string, types []string, limit int) ([]*models.Notification, error)
	MarkRead(id int) error
	GetUnreadCount(userID string) (int, error)
	CreateMarginCallNotification(userID string, marginLevel float64, severity string) error
	CreateLiquidationWarning(userID string, marginLevel float64) error
}

// MarginCallServiceInterface определяет интерфейс сервиса margin calls
type MarginCallServiceInterface interface {
	GetCalls(userID, status string, limit int) ([]*models.MarginCallEvent, error)
	GetActiveCall(userID string) (*models.MarginCallEvent, error)
	GetTradingStatus(userID string) (*TradingStatus, error)
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ NotificationServiceInterface = (*NotificationService)(nil)
var _ MarginCallServiceInterface = (*MarginCallService)(nil)
