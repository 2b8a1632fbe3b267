package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Глобальный экземпляр логгера
var (
	globalLogger *zap.Logger
	mu           sync.RWMutex
	once         sync.Once
)

// Options параметры логгера
type Options struct {
	Level      string // debug, info, warn, error
	File       string // JSON-лог с ротацией, пусто - без файла
	MaxSizeMB  int
	MaxBackups int
	Console    bool // читаемый вывод в stdout
}

// Init инициализирует глобальный логгер. Повторные вызовы игнорируются.
func Init(opts Options) {
	once.Do(func() {
		SetLogger(newLogger(opts))
	})
}

// SetLogger подменяет глобальный логгер (используется в тестах)
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = l
}

// GetLogger возвращает глобальный экземпляр логгера.
// До вызова Init возвращается no-op логгер.
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

// Вспомогательные функции для удобства использования
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// Sync сбрасывает буферы логгера
func Sync() {
	_ = GetLogger().Sync()
}

func newLogger(opts Options) *zap.Logger {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(opts.Level); err != nil {
			level = zapcore.InfoLevel
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("02.01.2006 - 15:04:05.000000000Z07:00")
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var cores []zapcore.Core

	if opts.Console {
		consoleConfig := encoderConfig
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleConfig),
			zapcore.AddSync(os.Stdout),
			level,
		))
	}

	if opts.File != "" {
		// Ротация файла вместо бесконечного роста app.json.log
		jsonFileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		})
		jsonConfig := encoderConfig
		jsonConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonConfig), jsonFileWriter, level))
	}

	if len(cores) == 0 {
		return zap.NewNop()
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}
