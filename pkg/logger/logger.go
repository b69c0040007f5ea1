// Package logger собирает zap.Logger сервиса из настроек окружения.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EncodingJSON    = "json"
	EncodingConsole = "console"
)

// Config - настройки логгера. Пустые поля заменяются значениями по умолчанию:
// уровень info, формат json, вывод в stdout.
type Config struct {
	Level       string
	Encoding    string
	OutputPath  string
	ServiceName string
	// Development включает caller, стектрейсы и DPanic как panic.
	Development bool
}

// New собирает логгер. Нераспознанный уровень не ошибка: логгер поднимается
// на info и первой записью сообщает о неверном значении.
func New(cfg Config) (*zap.Logger, error) {
	level, levelErr := parseLevel(cfg.Level)

	zapConfig := zap.Config{
		Level:             level,
		Development:       cfg.Development,
		DisableCaller:     !cfg.Development,
		DisableStacktrace: !cfg.Development,
		Encoding:          encodingOf(cfg.Encoding),
		EncoderConfig:     encoderConfig(),
		OutputPaths:       []string{outputOf(cfg.OutputPath)},
		ErrorOutputPaths:  []string{"stderr"},
	}
	if cfg.ServiceName != "" {
		zapConfig.InitialFields = map[string]interface{}{"service": cfg.ServiceName}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if levelErr != nil {
		logger.Warn("Invalid log level, falling back to info",
			zap.String("level", cfg.Level), zap.Error(levelErr))
	}
	return logger, nil
}

func parseLevel(raw string) (zap.AtomicLevel, error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if raw == "" {
		return level, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
		level.SetLevel(zap.InfoLevel)
		return level, err
	}
	return level, nil
}

func encodingOf(raw string) string {
	if strings.EqualFold(raw, EncodingConsole) {
		return EncodingConsole
	}
	return EncodingJSON
}

func outputOf(path string) string {
	if path == "" {
		return "stdout"
	}
	return path
}

// encoderConfig - production-формат с ISO8601 в поле timestamp и уровнями INFO/WARN.
func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}
