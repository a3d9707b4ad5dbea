// Package logging provides the standardized logrus helper shared by the
// cryptoengine packages.
//
// Secret material never reaches a log line: callers log sizes and, for public
// values only, a short prefix produced by SecureFieldHash.
package logging

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// LoggerHelper provides standardized logging functionality for one function of one package
type LoggerHelper struct {
	function string
	pkg      string
	logger   *logrus.Logger
	fields   logrus.Fields
}

// NewLogger creates a new logger helper with standardized fields.
// The helper writes to logrus.StandardLogger() until WithLogger is called.
func NewLogger(pkg, function string) *LoggerHelper {
	return &LoggerHelper{
		function: function,
		pkg:      pkg,
		logger:   logrus.StandardLogger(),
		fields: logrus.Fields{
			"function": function,
			"package":  pkg,
		},
	}
}

// WithLogger routes output to l. A nil l keeps the current logger.
func (l *LoggerHelper) WithLogger(logger *logrus.Logger) *LoggerHelper {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// WithCaller adds caller information to the logger
func (l *LoggerHelper) WithCaller() *LoggerHelper {
	if pc, file, line, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			funcName := fn.Name()
			if lastSlash := strings.LastIndex(funcName, "/"); lastSlash >= 0 {
				funcName = funcName[lastSlash+1:]
			}
			l.fields["caller"] = fmt.Sprintf("%s:%d", file, line)
			l.fields["caller_func"] = funcName
		}
	}
	return l
}

// WithField adds a custom field to the logger
func (l *LoggerHelper) WithField(key string, value interface{}) *LoggerHelper {
	l.fields[key] = value
	return l
}

// WithFields adds multiple custom fields to the logger
func (l *LoggerHelper) WithFields(fields logrus.Fields) *LoggerHelper {
	for k, v := range fields {
		l.fields[k] = v
	}
	return l
}

// WithError adds error information to the logger
func (l *LoggerHelper) WithError(err error, errorType, operation string) *LoggerHelper {
	if err != nil {
		l.fields["error"] = err.Error()
	}
	l.fields["error_type"] = errorType
	l.fields["operation"] = operation
	return l
}

// Entry logs function entry
func (l *LoggerHelper) Entry(message string) {
	l.logger.WithFields(l.fields).Debug(fmt.Sprintf("Function entry: %s", message))
}

// Exit logs function exit
func (l *LoggerHelper) Exit() {
	l.logger.WithFields(l.fields).Debug(fmt.Sprintf("Function exit: %s", l.function))
}

// Debug logs a debug message
func (l *LoggerHelper) Debug(message string) {
	l.logger.WithFields(l.fields).Debug(message)
}

// Info logs an info message
func (l *LoggerHelper) Info(message string) {
	l.logger.WithFields(l.fields).Info(message)
}

// Warn logs a warning message
func (l *LoggerHelper) Warn(message string) {
	l.logger.WithFields(l.fields).Warn(message)
}

// Error logs an error message
func (l *LoggerHelper) Error(message string) {
	l.logger.WithFields(l.fields).Error(message)
}

// SecureFieldHash creates a short preview of public data for logging.
// Only the first 8 bytes are shown. Never pass private key material.
func SecureFieldHash(data []byte, name string) logrus.Fields {
	preview := "nil"
	if len(data) > 0 {
		previewLen := 8
		if len(data) < previewLen {
			previewLen = len(data)
		}
		preview = fmt.Sprintf("%x", data[:previewLen])
		if len(data) > previewLen {
			preview += "..."
		}
	}

	return logrus.Fields{
		name + "_preview": preview,
		name + "_size":    len(data),
	}
}

// SizeField records only the length of sensitive data.
func SizeField(data []byte, name string) logrus.Fields {
	return logrus.Fields{name + "_size": len(data)}
}

// OperationFields creates standardized operation logging fields
func OperationFields(operation, status string, additional ...logrus.Fields) logrus.Fields {
	fields := logrus.Fields{
		"operation": operation,
		"status":    status,
	}

	for _, extra := range additional {
		for k, v := range extra {
			fields[k] = v
		}
	}

	return fields
}

// ParseLevel maps a configuration string to a logrus level. An empty string
// selects logrus.InfoLevel.
func ParseLevel(level string) (logrus.Level, error) {
	if level == "" {
		return logrus.InfoLevel, nil
	}
	return logrus.ParseLevel(level)
}
