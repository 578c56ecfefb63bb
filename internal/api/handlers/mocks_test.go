package handlers

import (
	"context"

	"margincall/internal/models"
	"margincall/internal/repository"
	"margincall/internal/risk"
	"margincall/internal/service"
)

// ============ Mock MarginCallService ============

type MockMarginCallService struct {
	calls         []*models.MarginCallEvent
	activeCall    *models.MarginCallEvent
	tradingStatus *service.TradingStatus
	err           error
}

func (m *MockMarginCallService) GetCalls(userID, status string, limit int) ([]*models.MarginCallEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.calls, nil
}

func (m *MockMarginCallService) GetActiveCall(userID string) (*models.MarginCallEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.activeCall == nil {
		return nil, repository.ErrCallNotFound
	}
	return m.activeCall, nil
}

func (m *MockMarginCallService) GetTradingStatus(userID string) (*service.TradingStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.tradingStatus == nil {
		return nil, repository.ErrAccountNotFound
	}
	return m.tradingStatus, nil
}

// ============ Mock NotificationService ============

type MockNotificationService struct {
	notifications []*models.Notification
	unreadCount   int
	markedRead    []int
	getErr        error
	markReadErr   error

	// запоминает аргументы последнего GetNotifications
	lastTypes []string
	lastLimit int
}

func (m *MockNotificationService) CreateNotification(notif *models.Notification) error {
	m.notifications = append(m.notifications, notif)
	return nil
}

func (m *MockNotificationService) GetNotifications(userID string, types []string, limit int) ([]*models.Notification, error) {
	m.lastTypes = types
	m.lastLimit = limit
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.notifications, nil
}

func (m *MockNotificationService) MarkRead(id int) error {
	if m.markReadErr != nil {
		return m.markReadErr
	}
	m.markedRead = append(m.markedRead, id)
	return nil
}

func (m *MockNotificationService) GetUnreadCount(userID string) (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.unreadCount, nil
}

func (m *MockNotificationService) CreateMarginCallNotification(userID string, marginLevel float64, severity string) error {
	return nil
}

func (m *MockNotificationService) CreateLiquidationWarning(userID string, marginLevel float64) error {
	return nil
}

// ============ Mock RiskCheckRunner ============

type MockRiskCheckRunner struct {
	summary *risk.RunSummary
	err     error
	runs    int
}

func (m *MockRiskCheckRunner) RunCheck(ctx context.Context) (*risk.RunSummary, error) {
	m.runs++
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

// Проверяем, что mock'и реализуют интерфейсы
var _ service.MarginCallServiceInterface = (*MockMarginCallService)(nil)
var _ service.NotificationServiceInterface = (*MockNotificationService)(nil)
var _ RiskCheckRunner = (*MockRiskCheckRunner)(nil)
