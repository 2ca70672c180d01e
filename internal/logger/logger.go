// Package logger provides the process-wide structured logger used by depot.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields is a type alias for log fields to make the API cleaner
type Fields = logrus.Fields

var (
	logger   *logrus.Logger
	loggerMu sync.Mutex
	output   io.Writer = os.Stdout
)

// SetOutput redirects log output, mainly for tests. It takes effect on the next InitLogger.
func SetOutput(w io.Writer) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	output = w
}

// InitLogger initializes the global logger for CLI operations
func InitLogger(logLevel string, noColor bool) {
	l := logrus.New()

	loggerMu.Lock()
	l.SetOutput(output)
	loggerMu.Unlock()

	level, err := logrus.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:    noColor,
		DisableTimestamp: true,
	})

	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

// GetLogger returns the configured logger instance
func GetLogger() *logrus.Logger {
	loggerMu.Lock()
	l := logger
	loggerMu.Unlock()
	if l == nil {
		InitLogger("info", true)
		loggerMu.Lock()
		l = logger
		loggerMu.Unlock()
	}
	return l
}

// Info logs an info message
func Info(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Info(msg)
}

// Infof logs a formatted info message.
func Infof(format string, args ...interface{}) {
	GetLogger().Infof(format, args...)
}

// Debug logs a debug message (only shown when debug level is enabled)
func Debug(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Debug(msg)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) {
	GetLogger().Debugf(format, args...)
}

// Warn logs a warning message
func Warn(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Warn(msg)
}

// Warnf logs a formatted warning message.
func Warnf(format string, args ...interface{}) {
	GetLogger().Warnf(format, args...)
}

// Error logs an error message
func Error(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Error(msg)
}

// Success logs a success message as info with success indicator
func Success(msg string, fields ...Fields) {
	merged := mergeFields(fields...)
	merged["status"] = "success"
	GetLogger().WithFields(merged).Info(msg)
}

func mergeFields(fields ...Fields) logrus.Fields {
	result := make(logrus.Fields)
	for _, field := range fields {
		for k, v := range field {
			result[k] = v
		}
	}
	return result
}
