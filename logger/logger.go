package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// Init builds the process-wide logger. Mode "production" emits JSON,
// anything else gets the colored development encoder.
func Init(mode string) error {
	var err error

	once.Do(func() {
		var config zap.Config
		if mode == "production" {
			config = zap.NewProductionConfig()
		} else {
			config = zap.NewDevelopmentConfig()
			config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}

		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		logger, err = config.Build()
	})

	return err
}

func Get() *zap.Logger {
	if logger == nil {
		panic("logger not initialized, call logger.Init first")
	}
	return logger
}

// Sync flushes buffered entries, call before exit.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

func Debug(message string, fields ...zap.Field) {
	Get().Debug(message, fields...)
}

func Info(message string, fields ...zap.Field) {
	Get().Info(message, fields...)
}

func Warn(message string, fields ...zap.Field) {
	Get().Warn(message, fields...)
}

func Error(message string, fields ...zap.Field) {
	Get().Error(message, fields...)
}
