package utils

import (
	"math"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger.go - настройка структурированного логирования
//
// Назначение:
// Инициализация zap logger'а для всего приложения.
//
// Функции:
// - InitLogger: создать logger по конфигурации
//   * Выбор формата (json, text)
//   * Уровни: debug, info, warn, error, fatal
//   * Вывод в stderr или файл
// - Глобальный logger с доступом через L() / GetGlobalLogger()
// - Типизированные конструкторы полей для риск-домена
//   (UserID, MarginLevel, Severity, CallID и т.д.)

// LogConfig - конфигурация логирования
type LogConfig struct {
	// Уровень: debug, info, warn, error, fatal (по умолчанию info)
	Level string

	// Формат: json или text (по умолчанию json)
	Format string

	// Development включает caller и человекочитаемый encoder
	Development bool

	// Output - путь к файлу лога, пусто = stderr
	Output string
}

// Logger оборачивает zap.Logger вместе с sugared вариантом
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

// parseLevel преобразует строку в zapcore.Level
//
// Неизвестные значения дают InfoLevel
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger создает и настраивает logger
//
// При невозможности открыть файл вывода падает обратно на stderr,
// никогда не возвращает nil и не паникует
func InitLogger(config LogConfig) *Logger {
	level := parseLevel(config.Level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if config.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(config.Format) {
	case "text", "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	var sink zapcore.WriteSyncer = zapcore.AddSync(os.Stderr)
	if config.Output != "" {
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			sink = zapcore.AddSync(file)
		}
		// При ошибке открытия файла остаемся на stderr
	}

	core := zapcore.NewCore(encoder, sink, level)

	opts := []zap.Option{}
	if config.Development {
		opts = append(opts, zap.Development(), zap.AddCaller())
	}

	zl := zap.New(core, opts...)
	return &Logger{
		Logger: zl,
		sugar:  zl.Sugar(),
	}
}

// Sugar возвращает sugared logger для printf-style логирования
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// With возвращает дочерний logger с дополнительными полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	child := l.Logger.With(fields...)
	return &Logger{
		Logger: child,
		sugar:  child.Sugar(),
	}
}

// WithComponent возвращает logger с полем component
func (l *Logger) WithComponent(component string) *Logger {
	return l.With(Component(component))
}

// WithUserID возвращает logger с полем user_id
func (l *Logger) WithUserID(userID string) *Logger {
	return l.With(UserID(userID))
}

// WithCallID возвращает logger с полем call_id
func (l *Logger) WithCallID(callID int) *Logger {
	return l.With(CallID(callID))
}

// WithRequestID возвращает logger с полем request_id
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.With(RequestID(requestID))
}

// ============ Глобальный logger ============

var (
	globalMu     sync.Mutex
	globalLogger *Logger
)

// InitGlobalLogger инициализирует глобальный logger по конфигурации
func InitGlobalLogger(config LogConfig) *Logger {
	logger := InitLogger(config)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger устанавливает глобальный logger
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger возвращает глобальный logger
//
// Если logger еще не инициализирован, создается logger по умолчанию
// (info, json, stderr)
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{})
	}
	return globalLogger
}

// L - короткий алиас для GetGlobalLogger
func L() *Logger {
	return GetGlobalLogger()
}

// ============ Глобальные функции логирования ============

// Debug логирует через глобальный logger
func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

// Info логирует через глобальный logger
func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

// Warn логирует через глобальный logger
func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

// Error логирует через глобальный logger
func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

// Debugf - printf-style debug через глобальный logger
func Debugf(template string, args ...interface{}) {
	L().sugar.Debugf(template, args...)
}

// Infof - printf-style info через глобальный logger
func Infof(template string, args ...interface{}) {
	L().sugar.Infof(template, args...)
}

// Warnf - printf-style warn через глобальный logger
func Warnf(template string, args ...interface{}) {
	L().sugar.Warnf(template, args...)
}

// Errorf - printf-style error через глобальный logger
func Errorf(template string, args ...interface{}) {
	L().sugar.Errorf(template, args...)
}

// ============ Конструкторы полей риск-домена ============

// UserID - поле user_id
func UserID(userID string) zap.Field {
	return zap.String("user_id", userID)
}

// CallID - поле call_id (ID записи margin call)
func CallID(id int) zap.Field {
	return zap.Int("call_id", id)
}

// MarginLevel - поле margin_level в процентах
func MarginLevel(level float64) zap.Field {
	return zap.Float64("margin_level", level)
}

// Severity - поле severity (standard, urgent, critical)
func Severity(severity string) zap.Field {
	return zap.String("severity", severity)
}

// CallStatus - поле status записи margin call
func CallStatus(status string) zap.Field {
	return zap.String("status", status)
}

// Equity - поле equity
func Equity(equity float64) zap.Field {
	return zap.Float64("equity", equity)
}

// MarginUsed - поле margin_used
func MarginUsed(used float64) zap.Field {
	return zap.Float64("margin_used", used)
}

// Latency - поле latency_ms
func Latency(ms float64) zap.Field {
	return zap.Float64("latency_ms", ms)
}

// RequestID - поле request_id
func RequestID(requestID string) zap.Field {
	return zap.String("request_id", requestID)
}

// Component - поле component
func Component(component string) zap.Field {
	return zap.String("component", component)
}

// ============ Переэкспорт стандартных конструкторов ============

// String - алиас zap.String
func String(key, value string) zap.Field {
	return zap.String(key, value)
}

// Int - алиас zap.Int
func Int(key string, value int) zap.Field {
	return zap.Int(key, value)
}

// Int64 - алиас zap.Int64
func Int64(key string, value int64) zap.Field {
	return zap.Int64(key, value)
}

// Float64 - алиас zap.Float64
func Float64(key string, value float64) zap.Field {
	return zap.Float64(key, value)
}

// Bool - алиас zap.Bool
func Bool(key string, value bool) zap.Field {
	return zap.Bool(key, value)
}

// Err - алиас zap.Error
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Any - алиас zap.Any
func Any(key string, value interface{}) zap.Field {
	return zap.Any(key, value)
}

// fieldsToInterface преобразует zap поля в плоский key/value срез
//
// Используется для передачи полей в sugared logger
func fieldsToInterface(fields []zap.Field) []interface{} {
	result := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		var value interface{}
		switch f.Type {
		case zapcore.StringType:
			value = f.String
		case zapcore.Int64Type, zapcore.Int32Type:
			value = f.Integer
		case zapcore.Float64Type:
			value = math.Float64frombits(uint64(f.Integer))
		default:
			value = f.Interface
		}
		result = append(result, f.Key, value)
	}
	return result
}
