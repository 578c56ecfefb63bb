package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config содержит всю конфигурацию сервиса
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Security  SecurityConfig
	RiskCheck RiskCheckConfig
	Logging   LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	// CronSecret - shared secret для триггера risk-check.
	// Планировщик передает его в заголовке X-Cron-Secret;
	// запросы без корректного секрета отклоняются до любой работы.
	CronSecret string
}

// RiskCheckConfig - настройки риск-проверок
type RiskCheckConfig struct {
	// Interval - период внутреннего запуска проверки.
	// 0 = только внешний cron через HTTP endpoint.
	Interval time.Duration

	// NotificationKeep - сколько последних уведомлений пользователя
	// сохранять при очистке журнала
	NotificationKeep int

	// RetentionDays - глубина хранения терминальных записей margin call
	// и уведомлений. 0 = не удалять.
	RetentionDays int
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "margincall"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			CronSecret: getEnv("CRON_SECRET", ""),
		},
		RiskCheck: RiskCheckConfig{
			Interval:         getEnvAsDuration("RISK_CHECK_INTERVAL", 0),
			NotificationKeep: getEnvAsInt("NOTIFICATION_KEEP", 100),
			RetentionDays:    getEnvAsInt("RETENTION_DAYS", 90),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Валидация критичных параметров безопасности
	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	// Валидация числовых диапазонов
	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// CRON_SECRET обязателен: без него любой может запустить sweep
	// и заспамить пользователей уведомлениями
	if c.Security.CronSecret == "" {
		return fmt.Errorf("CRON_SECRET is required for the risk-check trigger")
	}

	if len(c.Security.CronSecret) < 16 {
		return fmt.Errorf("CRON_SECRET must be at least 16 characters for security")
	}

	if c.Security.CronSecret == "change-me-in-production" {
		return fmt.Errorf("CRON_SECRET must be changed from default value in production")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	// Валидация портов
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	// Интервал проверки: 0 = отключено, иначе не чаще раза в секунду
	if c.RiskCheck.Interval < 0 {
		return fmt.Errorf("RISK_CHECK_INTERVAL cannot be negative, got %v", c.RiskCheck.Interval)
	}
	if c.RiskCheck.Interval > 0 && c.RiskCheck.Interval < time.Second {
		return fmt.Errorf("RISK_CHECK_INTERVAL must be at least 1s, got %v", c.RiskCheck.Interval)
	}

	if c.RiskCheck.NotificationKeep < 1 {
		return fmt.Errorf("NOTIFICATION_KEEP must be positive, got %d", c.RiskCheck.NotificationKeep)
	}

	if c.RiskCheck.RetentionDays < 0 {
		return fmt.Errorf("RETENTION_DAYS cannot be negative, got %d", c.RiskCheck.RetentionDays)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
