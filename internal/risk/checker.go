package risk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"margincall/internal/models"
	"margincall/internal/repository"
	"margincall/pkg/retry"
	"margincall/pkg/utils"
)

// checker.go - периодический проход по счетам с открытой маржой
//
// Checker - оркестратор: загружает активные счета, прогоняет каждый
// через детектор и state machine, пишет записи margin call и уведомления.
//
// Главное свойство надежности: частичный отказ не становится полным.
// Ошибка (или паника) при обработке одного счета фиксируется в его
// результате и не прерывает проход по остальным.

// AccountStore - источник счетов для проверки
type AccountStore interface {
	// GetActiveWithMargin возвращает счета с account_status='active'
	// и margin_used > 0
	GetActiveWithMargin() ([]*models.Account, error)
}

// MarginCallStore - хранилище записей margin call
type MarginCallStore interface {
	GetActiveByUserID(userID string) (*models.MarginCallEvent, error)
	Create(event *models.MarginCallEvent) error
	MarkResolved(id int, resolvedAt time.Time, resolutionType string) error
	MarkEscalated(id int, escalatedAt time.Time) error
}

// NotificationDispatcher - отправка уведомлений пользователю
type NotificationDispatcher interface {
	CreateMarginCallNotification(userID string, marginLevel float64, severity string) error
	CreateLiquidationWarning(userID string, marginLevel float64) error
}

// EventBroadcaster - real-time рассылка риск-событий (WebSocket hub)
//
// Интерфейс позволяет избежать циклической зависимости пакетов
// и подставить mock в тестах.
type EventBroadcaster interface {
	BroadcastMarginCall(event *models.MarginCallEvent)
	BroadcastRunSummary(summary *RunSummary)
}

// AccountCheckResult - результат проверки одного счета
type AccountCheckResult struct {
	UserID                 string  `json:"user_id"`
	MarginLevel            float64 `json:"margin_level"` // округлен до 2 знаков
	HasMarginCall          bool    `json:"has_margin_call"`
	Severity               string  `json:"severity,omitempty"`
	MarginCallCreated      bool    `json:"margin_call_created"`
	EscalatedToLiquidation bool    `json:"escalated_to_liquidation"`
	Error                  string  `json:"error,omitempty"`
}

// RunSummary - агрегированный итог одного прохода
type RunSummary struct {
	Timestamp      time.Time            `json:"timestamp"`
	UsersChecked   int                  `json:"users_checked"`
	NewMarginCalls int                  `json:"new_margin_calls"`
	Escalations    int                  `json:"escalations"`
	Errors         int                  `json:"errors"`
	Results        []AccountCheckResult `json:"results"`
	Duration       string               `json:"duration"`
}

// Checker выполняет batch-проверку рисков по всем счетам
type Checker struct {
	accounts AccountStore
	calls    MarginCallStore
	notifier NotificationDispatcher
	hub      EventBroadcaster // опционально, может быть nil
	logger   *zap.Logger

	// Защита от наложения запусков внутри процесса.
	// Межпроцессное наложение (два инстанса, два cron'а) - забота
	// планировщика, ядро его не управляет.
	runMu sync.Mutex

	// now подменяется в тестах
	now func() time.Time
}

// NewChecker создает Checker
func NewChecker(
	accounts AccountStore,
	calls MarginCallStore,
	notifier NotificationDispatcher,
	logger *zap.Logger,
) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		accounts: accounts,
		calls:    calls,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SetBroadcaster устанавливает WebSocket hub для real-time рассылки.
//
// Вызывается после инициализации Hub в main.go.
func (c *Checker) SetBroadcaster(hub EventBroadcaster) {
	c.hub = hub
}

// RunCheck выполняет один полный проход по счетам.
//
// Фатальной для прохода является только инфраструктурная ошибка -
// недоступность хранилища счетов (после retry). Ошибки обработки
// отдельных счетов фиксируются в результатах и не прерывают проход.
func (c *Checker) RunCheck(ctx context.Context) (*RunSummary, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	start := c.now()

	// Загрузка счетов - единственная операция, отказ которой фатален.
	// Retry сглаживает кратковременные сбои соединения с БД.
	var accounts []*models.Account
	loadCfg := retry.DefaultConfig()
	loadCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.logger.Warn("account load failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}
	err := retry.Do(ctx, func() error {
		var loadErr error
		accounts, loadErr = c.accounts.GetActiveWithMargin()
		return loadErr
	}, loadCfg)
	if err != nil {
		SweepsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	summary := &RunSummary{
		Timestamp: start,
		Results:   make([]AccountCheckResult, 0, len(accounts)),
	}

	inCall := 0
	for _, account := range accounts {
		result := c.checkAccount(ctx, account)

		summary.UsersChecked++
		AccountsChecked.Inc()
		if result.HasMarginCall {
			inCall++
		}
		if result.MarginCallCreated {
			summary.NewMarginCalls++
		}
		if result.EscalatedToLiquidation {
			summary.Escalations++
		}
		if result.Error != "" {
			summary.Errors++
			AccountCheckErrors.Inc()
			c.logger.Error("account risk check failed",
				zap.String("user_id", result.UserID),
				zap.String("error", result.Error),
			)
		}

		summary.Results = append(summary.Results, result)
	}

	duration := c.now().Sub(start)
	summary.Duration = duration.String()

	SweepDuration.Observe(duration.Seconds())
	SweepsTotal.WithLabelValues("ok").Inc()
	AccountsInCall.Set(float64(inCall))

	c.logger.Info("risk check sweep completed",
		zap.Int("users_checked", summary.UsersChecked),
		zap.Int("new_margin_calls", summary.NewMarginCalls),
		zap.Int("escalations", summary.Escalations),
		zap.Int("errors", summary.Errors),
		zap.Duration("duration", duration),
	)

	if c.hub != nil {
		c.hub.BroadcastRunSummary(summary)
	}

	return summary, nil
}

// checkAccount обрабатывает один счет изолированно.
//
// Любая ошибка или паника превращается в result.Error и не выходит
// наружу - один плохой счет не должен блокировать проверку рисков
// для остальных пользователей.
func (c *Checker) checkAccount(ctx context.Context, account *models.Account) (result AccountCheckResult) {
	result.UserID = account.UserID

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Sprintf("panic during risk evaluation: %v", r)
		}
	}()

	// Неокругленный уровень для сравнения с порогами,
	// округленный - для отчета и хранения
	level := CalculateMarginLevel(account.Equity, account.MarginUsed)
	detection := DetectMarginCall(account.Equity, account.MarginUsed)

	result.MarginLevel = detection.MarginLevel
	result.HasMarginCall = detection.IsTriggered
	result.Severity = detection.Severity

	// Последняя активная (нетерминальная) запись пользователя
	active, err := c.calls.GetActiveByUserID(account.UserID)
	if err != nil && !errors.Is(err, repository.ErrCallNotFound) {
		result.Error = fmt.Sprintf("failed to query active margin call: %v", err)
		return result
	}
	hasActive := err == nil

	switch {
	case !detection.IsTriggered && hasActive:
		// Уровень восстановился - разрешаем запись
		if err := c.calls.MarkResolved(active.ID, c.now(), models.ResolutionEquityRecovered); err != nil {
			result.Error = fmt.Sprintf("failed to resolve margin call: %v", err)
			return result
		}
		MarginCallsResolved.Inc()
		c.logger.Info("margin call resolved",
			zap.String("user_id", account.UserID),
			zap.Float64("margin_level", detection.MarginLevel),
		)

	case detection.IsTriggered && !hasActive:
		// Вход в margin call - создаем запись и уведомляем
		event := &models.MarginCallEvent{
			UserID:               account.UserID,
			TriggeredAt:          c.now(),
			MarginLevelAtTrigger: detection.MarginLevel,
			Status:               models.MarginCallStatusNotified,
			Severity:             detection.Severity,
		}
		if err := c.calls.Create(event); err != nil {
			if errors.Is(err, repository.ErrActiveCallExists) {
				// Конкурирующий запуск уже создал активную запись
				// (check-then-insert гонка) - идемпотентный no-op
				return result
			}
			result.Error = fmt.Sprintf("failed to create margin call: %v", err)
			return result
		}

		result.MarginCallCreated = true
		MarginCallsCreated.WithLabelValues(detection.Severity).Inc()

		if err := c.dispatchMarginCall(ctx, account.UserID, detection); err != nil {
			result.Error = fmt.Sprintf("margin call created but notification failed: %v", err)
		}

		if c.hub != nil {
			c.hub.BroadcastMarginCall(event)
		}

	case detection.IsTriggered && hasActive:
		// Call уже активен - проверяем условие эскалации по времени.
		// Сравнение по неокругленному уровню.
		if active.Status != models.MarginCallStatusNotified {
			return result
		}
		minutesInCall := utils.MinutesBetween(active.TriggeredAt, c.now())
		if !ShouldEscalateToLiquidation(level, minutesInCall) {
			return result
		}

		escalatedAt := c.now()
		if err := c.calls.MarkEscalated(active.ID, escalatedAt); err != nil {
			result.Error = fmt.Sprintf("failed to escalate margin call: %v", err)
			return result
		}

		result.EscalatedToLiquidation = true
		EscalationsTotal.Inc()
		c.logger.Warn("margin call escalated to liquidation",
			zap.String("user_id", account.UserID),
			zap.Float64("margin_level", detection.MarginLevel),
			zap.Float64("minutes_in_call", minutesInCall),
		)

		if err := c.dispatchLiquidationWarning(ctx, account.UserID, detection.MarginLevel); err != nil {
			result.Error = fmt.Sprintf("escalated but notification failed: %v", err)
		}

		if c.hub != nil {
			active.Status = models.MarginCallStatusEscalated
			active.EscalatedAt = &escalatedAt
			c.hub.BroadcastMarginCall(active)
		}
	}

	return result
}

// dispatchMarginCall отправляет уведомление об открытии margin call с retry
func (c *Checker) dispatchMarginCall(ctx context.Context, userID string, detection DetectionResult) error {
	return retry.Do(ctx, func() error {
		return c.notifier.CreateMarginCallNotification(userID, detection.MarginLevel, detection.Severity)
	}, retry.ConservativeConfig())
}

// dispatchLiquidationWarning отправляет предупреждение о ликвидации с retry
func (c *Checker) dispatchLiquidationWarning(ctx context.Context, userID string, marginLevel float64) error {
	return retry.Do(ctx, func() error {
		return c.notifier.CreateLiquidationWarning(userID, marginLevel)
	}, retry.ConservativeConfig())
}

// ============================================================
// Периодический запуск
// ============================================================

// Monitor - воркер для периодического запуска проверки
//
// Дополняет внешний cron (POST /internal/risk-check): при ненулевом
// интервале сервис проверяет счета сам, cron остается резервным
// триггером. При interval == 0 работает только внешний cron.
type Monitor struct {
	checker  *Checker
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMonitor создает монитор с заданным интервалом
func NewMonitor(checker *Checker, interval time.Duration) *Monitor {
	return &Monitor{
		checker:  checker,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start запускает периодические проверки (блокирующий вызов)
func (m *Monitor) Start(ctx context.Context) {
	if m.interval <= 0 {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			if _, err := m.checker.RunCheck(ctx); err != nil {
				m.checker.logger.Error("scheduled risk check failed", zap.Error(err))
			}
		}
	}
}

// Stop останавливает мониторинг
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}
