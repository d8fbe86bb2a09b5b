package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents the logging level
type Level int

const (
	// DEBUG level for detailed debugging information
	DEBUG Level = iota
	// INFO level for informational messages
	INFO
	// WARN level for warning messages
	WARN
	// ERROR level for error messages
	ERROR
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func fromZapLevel(l zapcore.Level) Level {
	switch l {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.WarnLevel:
		return WARN
	case zapcore.InfoLevel:
		return INFO
	default:
		return ERROR
	}
}

// ParseLevel parses a level name such as "debug" or "WARN"
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO", "":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %s", s)
	}
}

// FileName is the name of the active log file inside LogDir
const FileName = "ezrec.log"

// Logger writes leveled log lines to a size-rotated file
type Logger struct {
	level  zap.AtomicLevel
	sugar  *zap.SugaredLogger
	writer *lumberjack.Logger
	logDir string
}

// Config holds logger configuration
type Config struct {
	LogDir        string
	Level         Level
	RetentionDays int
	MaxSizeMB     int
	// Console mirrors log lines to this writer when set (e.g. os.Stderr)
	Console io.Writer
}

// DefaultLogDir returns the per-user log directory
func DefaultLogDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "EzRec", "logs")
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		LogDir:        DefaultLogDir(),
		Level:         INFO,
		RetentionDays: 7,
		MaxSizeMB:     10,
	}
}

func encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	ec.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + l.CapitalString() + "]")
	}
	ec.ConsoleSeparator = " "
	ec.CallerKey = zapcore.OmitKey
	return ec
}

// New creates a new logger
func New(config Config) (*Logger, error) {
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: failed to create log directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename: filepath.Join(config.LogDir, FileName),
		MaxSize:  config.MaxSizeMB,
		MaxAge:   config.RetentionDays,
	}

	// lumberjack opens lazily; open now so a bad directory fails here
	if _, err := writer.Write(nil); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: failed to open log file: %w", err)
	}

	level := zap.NewAtomicLevelAt(config.Level.zapLevel())
	encoder := zapcore.NewConsoleEncoder(encoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(writer), level)
	if config.Console != nil {
		core = zapcore.NewTee(core, zapcore.NewCore(encoder, zapcore.AddSync(config.Console), level))
	}

	return &Logger{
		level:  level,
		sugar:  zap.New(core).Sugar(),
		writer: writer,
		logDir: config.LogDir,
	}, nil
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{
		level: zap.NewAtomicLevelAt(zapcore.InfoLevel),
		sugar: zap.NewNop().Sugar(),
	}
}

// With returns a child logger that adds key/value context to every line.
// Closing a child is a no-op.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		level:  l.level,
		sugar:  l.sugar.With(keysAndValues...),
		logDir: l.logDir,
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Info logs an informational message
func (l *Logger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	if l.writer == nil {
		return nil
	}
	_ = l.sugar.Sync()
	return l.writer.Close()
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level.zapLevel())
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() Level {
	return fromZapLevel(l.level.Level())
}

// Path returns the active log file path, or "" for loggers without a file
func (l *Logger) Path() string {
	if l.writer == nil {
		return ""
	}
	return l.writer.Filename
}
