// Package logger holds the process-wide zap loggers. Every entry carries the
// service name.
package logger

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var InfoLogger, FatalLogger *zap.Logger

var serviceName = "strategylab"

// Init builds production loggers at level ("debug", "info", "warn", "error").
func Init(level, service string) error {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return errors.Wrapf(err, "log level %q", level)
		}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return errors.Wrap(err, "build logger")
	}
	InfoLogger, FatalLogger = l, l
	if service != "" {
		SetServiceName(service)
	}
	return nil
}

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName
	return oldName
}

// L is the info logger tagged with the service, or a no-op before Init.
func L() *zap.Logger {
	if InfoLogger == nil {
		return zap.NewNop()
	}
	return InfoLogger.With(zap.String("service", serviceName))
}

// Named is L scoped to a component.
func Named(component string) *zap.Logger {
	return L().Named(component)
}

func Sync() {
	if InfoLogger != nil {
		_ = InfoLogger.Sync()
	}
}

func Info(format string, args ...interface{}) {
	L().Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	L().Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	L().Error(fmt.Sprintf(format, args...))
}

func Fatal(format string, args ...interface{}) {
	if FatalLogger == nil {
		panic("FatalLogger is not initialized")
	}
	FatalLogger.With(zap.String("service", serviceName)).Fatal(fmt.Sprintf(format, args...))
}
