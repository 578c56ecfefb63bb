package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"margincall/internal/api/handlers"
	"margincall/internal/api/middleware"
	"margincall/internal/service"
	"margincall/internal/websocket"
	"margincall/pkg/ratelimit"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	MarginCallService   service.MarginCallServiceInterface
	NotificationService service.NotificationServiceInterface
	RiskCheckRunner     handlers.RiskCheckRunner
	Hub                 *websocket.Hub
	Logger              *zap.Logger
	CronSecret          string
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Назначение:
// Центральное место для определения всех API endpoints.
// Регистрирует handlers для каждого маршрута.
// Применяет middleware к группам маршрутов.
// Организует версионирование API (v1).
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /margin-calls/
//	│   ├── GET / - история margin calls (фильтры user_id, status, limit)
//	│   └── GET /active - активный margin call пользователя
//	├── /users/
//	│   └── GET /{user_id}/trading-status - торговые ограничения счета
//	└── /notifications/
//	    ├── GET / - журнал уведомлений пользователя
//	    └── POST /{id}/read - пометить прочитанным
//
// /internal/
//
//	└── POST /risk-check - запуск риск-проверки (X-Cron-Secret)
//
// /ws/
//
//	└── /stream - WebSocket для real-time обновлений
//
// /health - проверка живости
// /metrics - Prometheus метрики
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. RateLimit (только для /api/v1/*)
// 5. CronAuth (только для /internal/*)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	logger := zap.NewNop()
	if deps != nil && deps.Logger != nil {
		logger = deps.Logger
	}

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.CORS)

	// Создание handlers с внедрением зависимостей
	var marginCallHandler *handlers.MarginCallHandler
	if deps != nil && deps.MarginCallService != nil {
		marginCallHandler = handlers.NewMarginCallHandler(deps.MarginCallService)
	}

	var notificationHandler *handlers.NotificationHandler
	if deps != nil && deps.NotificationService != nil {
		notificationHandler = handlers.NewNotificationHandler(deps.NotificationService)
	}

	var riskCheckHandler *handlers.RiskCheckHandler
	if deps != nil && deps.RiskCheckRunner != nil {
		riskCheckHandler = handlers.NewRiskCheckHandler(deps.RiskCheckRunner)
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Rate limit только на публичный API
	api.Use(middleware.RateLimit(ratelimit.NewRateLimiter(50, 100)))

	// Margin call routes
	if marginCallHandler != nil {
		api.HandleFunc("/margin-calls", marginCallHandler.GetMarginCalls).Methods("GET")
		api.HandleFunc("/margin-calls/active", marginCallHandler.GetActiveMarginCall).Methods("GET")
		api.HandleFunc("/users/{user_id}/trading-status", marginCallHandler.GetTradingStatus).Methods("GET")
	}

	// Notification routes
	if notificationHandler != nil {
		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
		api.HandleFunc("/notifications/{id}/read", notificationHandler.MarkNotificationRead).Methods("POST")
	}

	// Internal routes - только для cron/scheduler, защищены X-Cron-Secret
	if riskCheckHandler != nil {
		internal := router.PathPrefix("/internal").Subrouter()
		var secret string
		if deps != nil {
			secret = deps.CronSecret
		}
		internal.Use(middleware.CronAuth(secret))
		internal.HandleFunc("/risk-check", riskCheckHandler.TriggerRiskCheck).Methods("POST")
	}

	// WebSocket route
	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}
