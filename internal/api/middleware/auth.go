package middleware

import (
	"crypto/subtle"
	"net/http"
)

// CronSecretHeader - заголовок с shared secret планировщика
const CronSecretHeader = "X-Cron-Secret"

// CronAuth - middleware для защиты внутренних cron endpoints
//
// Назначение:
// Защищает триггер risk-check (/internal/risk-check) от неавторизованного
// вызова. Планировщик (cron) передает shared secret в заголовке
// X-Cron-Secret; значение сравнивается с CRON_SECRET из конфигурации.
//
// Неавторизованный запрос отклоняется (401) ДО любой обработки счетов
// и не попадает в счетчики ошибок прохода.
//
// Безопасность:
// - Использует constant-time сравнение для предотвращения timing attacks
// - Пустой настроенный секрет запрещает доступ полностью (fail-closed);
//   config.Load не пропустит пустой CRON_SECRET, но middleware
//   не полагается на это
//
// Использование:
//
//	internal := router.PathPrefix("/internal").Subrouter()
//	internal.Use(middleware.CronAuth(cfg.Security.CronSecret))
func CronAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Fail-closed: без настроенного секрета endpoint недоступен
			if secret == "" {
				http.Error(w, "Cron endpoints disabled. Set CRON_SECRET.", http.StatusForbidden)
				return
			}

			provided := r.Header.Get(CronSecretHeader)
			if provided == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Constant-time сравнение для предотвращения timing attacks
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
