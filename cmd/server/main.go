package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"margincall/internal/api"
	"margincall/internal/config"
	"margincall/internal/repository"
	"margincall/internal/risk"
	"margincall/internal/service"
	"margincall/internal/websocket"
	"margincall/pkg/utils"

	_ "github.com/lib/pq"
)

// retentionSweepInterval - период фонового удаления устаревших записей
const retentionSweepInterval = 24 * time.Hour

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логирования
	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	defer logger.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("dsn", cfg.Database.DSNWithoutPassword()),
			zap.Error(err),
		)
	}
	defer db.Close()

	logger.Info("Connected to database", zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Инициализация репозиториев
	accountRepo := repository.NewAccountRepository(db)
	marginCallRepo := repository.NewMarginCallRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// WebSocket hub для real-time обновлений dashboard'а
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Инициализация сервисов
	notificationService := service.NewNotificationService(notificationRepo)
	notificationService.SetWebSocketHub(hub)

	marginCallService := service.NewMarginCallService(marginCallRepo, accountRepo)

	// Batch runner риск-проверки
	checker := risk.NewChecker(
		accountRepo,
		marginCallRepo,
		notificationService,
		logger.Logger.Named("checker"),
	)
	checker.SetBroadcaster(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Внутренний периодический запуск (0 = только внешний cron)
	monitor := risk.NewMonitor(checker, cfg.RiskCheck.Interval)
	if cfg.RiskCheck.Interval > 0 {
		logger.Info("Starting internal risk check monitor",
			zap.Duration("interval", cfg.RiskCheck.Interval),
		)
		go monitor.Start(ctx)
	}
	defer monitor.Stop()

	// Фоновая очистка устаревших терминальных записей и уведомлений
	if cfg.RiskCheck.RetentionDays > 0 {
		go runRetentionSweeps(ctx, cfg, marginCallRepo, notificationRepo, logger.Logger)
	}

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		MarginCallService:   marginCallService,
		NotificationService: notificationService,
		RiskCheckRunner:     checker,
		Hub:                 hub,
		Logger:              logger.Logger,
		CronSecret:          cfg.Security.CronSecret,
	}

	// Настройка HTTP роутера
	router := api.SetupRoutes(deps)

	// HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		logger.Info("Starting server", zap.String("addr", server.Addr))
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				logger.Fatal("Server failed", zap.Error(err))
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("Server failed", zap.Error(err))
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Останавливаем фоновые воркеры до закрытия БД
	cancel()
	monitor.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runRetentionSweeps периодически удаляет терминальные записи margin call
// и уведомления старше границы ретенции.
//
// Активные (notified/escalated) записи никогда не удаляются.
func runRetentionSweeps(
	ctx context.Context,
	cfg *config.Config,
	marginCallRepo *repository.MarginCallRepository,
	notificationRepo *repository.NotificationRepository,
	logger *zap.Logger,
) {
	ticker := time.NewTicker(retentionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := utils.RetentionCutoff(time.Now(), cfg.RiskCheck.RetentionDays)

			removed, err := marginCallRepo.DeleteOlderThan(cutoff)
			if err != nil {
				logger.Error("margin call retention sweep failed", zap.Error(err))
			} else if removed > 0 {
				logger.Info("removed old margin call records", zap.Int64("count", removed))
			}

			removed, err = notificationRepo.DeleteOlderThan(cutoff)
			if err != nil {
				logger.Error("notification retention sweep failed", zap.Error(err))
			} else if removed > 0 {
				logger.Info("removed old notifications", zap.Int64("count", removed))
			}
		}
	}
}
