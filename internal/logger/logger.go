package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"trackserver/internal/config"
)

// LogFile is the name of the rotated log file inside the log directory.
const LogFile = "app.log"

// Interface is the logging surface the pipeline components depend on.
type Interface interface {
	Info(format string, v ...interface{})
	Warning(format string, v ...interface{})
	Error(format string, v ...interface{})
	With(fields map[string]interface{}) Interface
}

// Logger provides leveled logging (info/warning/error) to a rotated file and stdout.
type Logger struct {
	entry  *logrus.Entry
	logDir string
	file   *lumberjack.Logger
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(config.LogDirectory, LogFile),
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
	}

	base := logrus.New()
	base.SetOutput(io.MultiWriter(os.Stdout, file))
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(config.LogLevel); err == nil {
		base.SetLevel(level)
	}

	return &Logger{
		entry:  logrus.NewEntry(base),
		logDir: config.LogDirectory,
		file:   file,
	}
}

// New wraps an existing logrus logger, e.g. one writing to a test buffer.
func New(base *logrus.Logger) *Logger {
	return &Logger{entry: logrus.NewEntry(base)}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return New(base)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.entry.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.entry.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

// With returns a logger that attaches the given fields to every entry.
func (l *Logger) With(fields map[string]interface{}) Interface {
	return &Logger{
		entry:  l.entry.WithFields(logrus.Fields(fields)),
		logDir: l.logDir,
		file:   l.file,
	}
}

// Path returns the location of the current log file, or "" when logging to stdout only.
func (l *Logger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Filename
}

// CleanLogs truncates the log file. The file is closed first so the next write
// reopens it in append mode at offset zero.
func (l *Logger) CleanLogs() {
	if l.file == nil {
		return
	}
	if err := l.file.Close(); err != nil {
		l.Error("Error closing log file: %v", err)
		return
	}
	if err := os.Truncate(l.file.Filename, 0); err != nil {
		l.Error("Error truncating log file: %v", err)
		return
	}

	l.Info("Log file content has been cleared.")
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
