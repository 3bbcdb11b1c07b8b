// Package logging provides component-scoped loggers for the reclaim disk
// analyzer.
//
// Basic usage:
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Close()
//
//	logger := logging.Get("pipeline")
//	logger.Info("scan started", "roots", 3)
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) toCharmLevel() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelInfo:
		return log.InfoLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default log level (debug, info, warn, error).
	Level string

	// File is an optional log file path. Empty disables file logging.
	File string

	// Quiet suppresses console output entirely. File logging, when
	// configured, is unaffected.
	Quiet bool

	// Components maps component names to per-component level overrides.
	Components map[string]string
}

// Logger wraps charmbracelet/log with a component identity. Console and
// file output carry the same records with different timestamp formats.
type Logger struct {
	console   *log.Logger
	file      *log.Logger
	component string
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.console.Debug(msg, args...)
	if l.file != nil {
		l.file.Debug(msg, args...)
	}
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.console.Info(msg, args...)
	if l.file != nil {
		l.file.Info(msg, args...)
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.console.Warn(msg, args...)
	if l.file != nil {
		l.file.Warn(msg, args...)
	}
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.console.Error(msg, args...)
	if l.file != nil {
		l.file.Error(msg, args...)
	}
}

// With returns a new logger carrying additional key-value context.
func (l *Logger) With(args ...interface{}) *Logger {
	derived := &Logger{
		console:   l.console.With(args...),
		component: l.component,
	}
	if l.file != nil {
		derived.file = l.file.With(args...)
	}
	return derived
}

// state holds the global logging registry.
type state struct {
	mu          sync.RWMutex
	initialized bool
	level       Level
	components  map[string]Level
	loggers     map[string]*Logger
	quiet       bool
	logFile     *os.File
}

var globalState = &state{
	loggers:    make(map[string]*Logger),
	components: make(map[string]Level),
}

// Init initializes the logging system. It must be called before loggers
// produce output; loggers obtained earlier are silent until then.
func Init(cfg Config) error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if globalState.initialized && globalState.logFile != nil {
		if err := globalState.logFile.Close(); err != nil {
			return fmt.Errorf("closing existing log file: %w", err)
		}
		globalState.logFile = nil
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	globalState.level = level
	globalState.quiet = cfg.Quiet
	globalState.components = make(map[string]Level)

	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		globalState.components[comp] = parsed
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		globalState.logFile = f
	}

	globalState.initialized = true

	// Rebuild loggers handed out before Init so they pick up the new
	// configuration.
	for component := range globalState.loggers {
		globalState.loggers[component] = createLogger(component)
	}

	return nil
}

// Get returns the logger for the given component, creating it on first
// use. Component level overrides from the config apply; before Init all
// loggers are silent.
func Get(component string) *Logger {
	globalState.mu.RLock()
	if logger, ok := globalState.loggers[component]; ok {
		globalState.mu.RUnlock()
		return logger
	}
	globalState.mu.RUnlock()

	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if logger, ok := globalState.loggers[component]; ok {
		return logger
	}

	logger := createLogger(component)
	globalState.loggers[component] = logger
	return logger
}

// createLogger builds the logger for a component. Caller holds
// globalState.mu.
func createLogger(component string) *Logger {
	level := globalState.level
	if compLevel, ok := globalState.components[component]; ok {
		level = compLevel
	}

	consoleOut := io.Writer(os.Stderr)
	if !globalState.initialized || globalState.quiet {
		consoleOut = io.Discard
	}

	console := log.NewWithOptions(consoleOut, log.Options{
		Level:           level.toCharmLevel(),
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          component,
	})

	logger := &Logger{
		console:   console,
		component: component,
	}

	if globalState.initialized && globalState.logFile != nil {
		logger.file = log.NewWithOptions(globalState.logFile, log.Options{
			Level:           level.toCharmLevel(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		})
	}

	return logger
}

// Close flushes and closes the log file, if any. Call on application exit.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if !globalState.initialized {
		return nil
	}

	if globalState.logFile != nil {
		if err := globalState.logFile.Close(); err != nil {
			return fmt.Errorf("closing log file: %w", err)
		}
		globalState.logFile = nil
	}

	globalState.initialized = false
	globalState.loggers = make(map[string]*Logger)
	globalState.components = make(map[string]Level)

	return nil
}

// DefaultLogPath returns the default log file path under the XDG state
// directory.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "reclaim", "reclaim.log")
}

// DefaultConfig returns a configuration with sensible defaults: info
// level, console only.
func DefaultConfig() Config {
	return Config{Level: "info"}
}
