package middleware

import (
	"net/http"

	"margincall/pkg/ratelimit"
)

// RateLimit - middleware для ограничения частоты запросов к API
//
// Token bucket на весь публичный API: dashboard с агрессивным
// polling'ом не должен выедать пул соединений БД, нужный
// риск-проверке. При исчерпании токенов возвращает 429.
//
// Не применяется к /internal/* - триггер cron'а и так сериализован
// внутри batch runner'а.
func RateLimit(limiter *ratelimit.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil && !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"Too many requests"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
