// Package logrus adapts github.com/sirupsen/logrus to the domain Logger interface.
package logrus

import (
	"io"
	"os"
	"strings"

	"github.com/ochairo/appguard/internal/domain/interfaces"
	"github.com/sirupsen/logrus"
)

// LevelEnv overrides the configured log level
const LevelEnv = "APPGUARD_LOG_LEVEL"

type appNameHook struct {
	appName string
}

// Levels implements logrus.Hook interface.
func (h *appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook interface.
func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Message = "[" + h.appName + "] " + entry.Message
	return nil
}

// Logger implements interfaces.Logger on a logrus logger
type Logger struct {
	log *logrus.Logger
}

// NewLogger creates a text logger writing to out (stderr when nil). The level
// comes from APPGUARD_LOG_LEVEL, else level, else info.
func NewLogger(appName, level string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if env := os.Getenv(LevelEnv); env != "" {
		level = env
	}
	level = strings.ToLower(level)
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to INFO", level)
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	if appName != "" {
		log.AddHook(&appNameHook{appName})
	}
	return &Logger{log: log}
}

// Level returns the active level
func (l *Logger) Level() string {
	return l.log.GetLevel().String()
}

// Debug logs debug-level messages
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	l.entry(fields).Debug(msg)
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	l.entry(fields).Info(msg)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	l.entry(fields).Warn(msg)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	l.entry(fields).Error(msg)
}

func (l *Logger) entry(fields []interfaces.Field) *logrus.Entry {
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return l.log.WithFields(data)
}

var _ interfaces.Logger = (*Logger)(nil)
