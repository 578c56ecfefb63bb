package handlers

import (
	"context"
	"net/http"

	"margincall/internal/risk"
)

// RiskCheckRunner - интерфейс batch runner'а для внедрения зависимости
type RiskCheckRunner interface {
	RunCheck(ctx context.Context) (*risk.RunSummary, error)
}

// RiskCheckHandler отвечает за запуск риск-проверки по внешнему триггеру
//
// Endpoints:
// - POST /internal/risk-check - запустить проход по всем счетам
//
// Endpoint защищен middleware.CronAuth (заголовок X-Cron-Secret):
// неавторизованный запрос отклоняется до любой обработки счетов.
type RiskCheckHandler struct {
	runner RiskCheckRunner
}

// NewRiskCheckHandler создает новый RiskCheckHandler с внедрением зависимости
func NewRiskCheckHandler(runner RiskCheckRunner) *RiskCheckHandler {
	return &RiskCheckHandler{runner: runner}
}

// RiskCheckResponse представляет ответ триггера риск-проверки
type RiskCheckResponse struct {
	Success        bool                      `json:"success"`
	Timestamp      string                    `json:"timestamp"`
	UsersChecked   int                       `json:"users_checked"`
	NewMarginCalls int                       `json:"new_margin_calls"`
	Escalations    int                       `json:"escalations"`
	Errors         int                       `json:"errors"`
	Results        []risk.AccountCheckResult `json:"results"`
	Duration       string                    `json:"duration"`
	Message        string                    `json:"message"`
}

// TriggerRiskCheck запускает один полный проход по счетам
//
// POST /internal/risk-check
//
// Выполняется синхронно: ответ содержит агрегированный итог прохода.
// Ошибки отдельных счетов не делают запрос неуспешным - они
// перечислены в results и посчитаны в errors (частичный отказ не
// становится полным). 500 возвращается только при инфраструктурном
// сбое (недоступно хранилище счетов).
//
// HTTP коды:
// - 200 OK: проход выполнен (возможно с per-account ошибками)
// - 401 Unauthorized: нет/неверный X-Cron-Secret (middleware)
// - 500 Internal Server Error: инфраструктурный сбой, проход не состоялся
func (h *RiskCheckHandler) TriggerRiskCheck(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.RunCheck(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Risk check failed: "+err.Error())
		return
	}

	message := "Risk check completed"
	if summary.Errors > 0 {
		message = "Risk check completed with per-account errors"
	}

	response := RiskCheckResponse{
		Success:        true,
		Timestamp:      summary.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		UsersChecked:   summary.UsersChecked,
		NewMarginCalls: summary.NewMarginCalls,
		Escalations:    summary.Escalations,
		Errors:         summary.Errors,
		Results:        summary.Results,
		Duration:       summary.Duration,
		Message:        message,
	}

	respondWithJSON(w, http.StatusOK, response)
}
