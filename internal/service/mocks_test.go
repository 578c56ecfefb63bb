package service

import (
	"sort"
	"time"

	"margincall/internal/models"
	"margincall/internal/repository"
)

// ============ Mock NotificationRepository ============

type MockNotificationRepository struct {
	notifications map[int]*models.Notification
	createErr     error
	getErr        error
	markReadErr   error
	nextID        int
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[int]*models.Notification),
		nextID:        1,
	}
}

func (m *MockNotificationRepository) Create(notif *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	notif.ID = m.nextID
	m.nextID++
	if notif.Timestamp.IsZero() {
		notif.Timestamp = time.Now()
	}
	m.notifications[notif.ID] = notif
	return nil
}

func (m *MockNotificationRepository) sorted() []*models.Notification {
	result := make([]*models.Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result
}

func (m *MockNotificationRepository) GetRecentByUser(userID string, limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.Notification
	for _, n := range m.sorted() {
		if n.UserID == userID && len(result) < limit {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *MockNotificationRepository) GetByUserAndTypes(userID string, types []string, limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}
	var result []*models.Notification
	for _, n := range m.sorted() {
		if n.UserID == userID && typeSet[n.Type] && len(result) < limit {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *MockNotificationRepository) MarkRead(id int) error {
	if m.markReadErr != nil {
		return m.markReadErr
	}
	notif, exists := m.notifications[id]
	if !exists {
		return repository.ErrNotificationNotFound
	}
	notif.Read = true
	return nil
}

func (m *MockNotificationRepository) CountUnread(userID string) (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *MockNotificationRepository) Count() (int, error) {
	return len(m.notifications), nil
}

func (m *MockNotificationRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	var removed int64
	for id, n := range m.notifications {
		if n.Timestamp.Before(timestamp) {
			delete(m.notifications, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MockNotificationRepository) KeepRecent(userID string, keepCount int) (int64, error) {
	var kept int
	var removed int64
	for _, n := range m.sorted() {
		if n.UserID != userID {
			continue
		}
		kept++
		if kept > keepCount {
			delete(m.notifications, n.ID)
			removed++
		}
	}
	return removed, nil
}

// ============ Mock MarginCallRepository ============

type MockMarginCallRepository struct {
	events    map[int]*models.MarginCallEvent
	createErr error
	getErr    error
	nextID    int
}

func NewMockMarginCallRepository() *MockMarginCallRepository {
	return &MockMarginCallRepository{
		events: make(map[int]*models.MarginCallEvent),
		nextID: 1,
	}
}

func (m *MockMarginCallRepository) Create(event *models.MarginCallEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, e := range m.events {
		if e.UserID == event.UserID &&
			(e.Status == models.MarginCallStatusNotified || e.Status == models.MarginCallStatusEscalated) {
			return repository.ErrActiveCallExists
		}
	}
	event.ID = m.nextID
	m.nextID++
	m.events[event.ID] = event
	return nil
}

func (m *MockMarginCallRepository) GetByID(id int) (*models.MarginCallEvent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	event, exists := m.events[id]
	if !exists {
		return nil, repository.ErrCallNotFound
	}
	return event, nil
}

func (m *MockMarginCallRepository) GetActiveByUserID(userID string) (*models.MarginCallEvent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, e := range m.sorted() {
		if e.UserID == userID &&
			(e.Status == models.MarginCallStatusNotified || e.Status == models.MarginCallStatusEscalated) {
			return e, nil
		}
	}
	return nil, repository.ErrCallNotFound
}

func (m *MockMarginCallRepository) sorted() []*models.MarginCallEvent {
	result := make([]*models.MarginCallEvent, 0, len(m.events))
	for _, e := range m.events {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TriggeredAt.After(result[j].TriggeredAt)
	})
	return result
}

func (m *MockMarginCallRepository) GetRecent(limit int) ([]*models.MarginCallEvent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := m.sorted()
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockMarginCallRepository) GetByUserID(userID string, limit int) ([]*models.MarginCallEvent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.MarginCallEvent
	for _, e := range m.sorted() {
		if e.UserID == userID && len(result) < limit {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *MockMarginCallRepository) GetByStatus(status string, limit int) ([]*models.MarginCallEvent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.MarginCallEvent
	for _, e := range m.sorted() {
		if e.Status == status && len(result) < limit {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *MockMarginCallRepository) MarkResolved(id int, resolvedAt time.Time, resolutionType string) error {
	event, exists := m.events[id]
	if !exists || event.Status != models.MarginCallStatusNotified {
		return repository.ErrCallNotFound
	}
	event.Status = models.MarginCallStatusResolved
	event.ResolvedAt = &resolvedAt
	event.ResolutionType = resolutionType
	return nil
}

func (m *MockMarginCallRepository) MarkEscalated(id int, escalatedAt time.Time) error {
	event, exists := m.events[id]
	if !exists || event.Status != models.MarginCallStatusNotified {
		return repository.ErrCallNotFound
	}
	event.Status = models.MarginCallStatusEscalated
	event.EscalatedAt = &escalatedAt
	return nil
}

func (m *MockMarginCallRepository) CountByStatus(status string) (int, error) {
	count := 0
	for _, e := range m.events {
		if e.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *MockMarginCallRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	var removed int64
	for id, e := range m.events {
		if e.TriggeredAt.Before(timestamp) &&
			(e.Status == models.MarginCallStatusResolved || e.Status == models.MarginCallStatusEscalated) {
			delete(m.events, id)
			removed++
		}
	}
	return removed, nil
}

// ============ Mock AccountRepository ============

type MockAccountRepository struct {
	accounts map[string]*models.Account
	getErr   error
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*models.Account),
	}
}

func (m *MockAccountRepository) GetActiveWithMargin() ([]*models.Account, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.Account
	for _, a := range m.accounts {
		if a.AccountStatus == models.AccountStatusActive && a.MarginUsed > 0 {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}

func (m *MockAccountRepository) GetByUserID(userID string) (*models.Account, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	account, exists := m.accounts[userID]
	if !exists {
		return nil, repository.ErrAccountNotFound
	}
	return account, nil
}

func (m *MockAccountRepository) CountActive() (int, error) {
	count := 0
	for _, a := range m.accounts {
		if a.AccountStatus == models.AccountStatusActive && a.MarginUsed > 0 {
			count++
		}
	}
	return count, nil
}

// ============ Mock WebSocketBroadcaster ============

type MockBroadcaster struct {
	notifications []*models.Notification
}

func (m *MockBroadcaster) BroadcastNotification(notif *models.Notification) {
	m.notifications = append(m.notifications, notif)
}

// Проверяем, что mock'и реализуют интерфейсы
var _ NotificationRepositoryInterface = (*MockNotificationRepository)(nil)
var _ MarginCallRepositoryInterface = (*MockMarginCallRepository)(nil)
var _ AccountRepositoryInterface = (*MockAccountRepository)(nil)
var _ WebSocketBroadcaster = (*MockBroadcaster)(nil)
