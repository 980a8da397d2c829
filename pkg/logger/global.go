package logger

import (
	"os"
	"sync"
)

var (
	globalLogger *Logger
	globalMu     sync.Mutex
	once         sync.Once
)

// Get returns the process-wide logger, initializing it from the
// environment on first use.
func Get() *Logger {
	once.Do(func() {
		globalMu.Lock()
		defer globalMu.Unlock()
		if globalLogger == nil {
			level := "info"
			if v := os.Getenv("TRENDLENS_LOG_LEVEL"); v != "" {
				level = v
			}
			globalLogger = New(Config{Level: level, Format: "console", Output: "stdout"})
		}
	})
	return globalLogger
}

// Set replaces the process-wide logger, typically after config is loaded.
func Set(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
	SetGlobal(l)
}

func Debug(msg string) { Get().Debug(msg) }
func Info(msg string)  { Get().Info(msg) }
func Warn(msg string)  { Get().Warn(msg) }
func Error(msg string) { Get().Error(msg) }

func Debugf(format string, args ...any) { Get().Debugf(format, args...) }
func Infof(format string, args ...any)  { Get().Infof(format, args...) }
func Warnf(format string, args ...any)  { Get().Warnf(format, args...) }
func Errorf(format string, args ...any) { Get().Errorf(format, args...) }

func WithField(key string, value any) *Logger { return Get().WithField(key, value) }
func WithError(err error) *Logger             { return Get().WithError(err) }
