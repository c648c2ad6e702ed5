// Package logging provides config-driven categorized file-based logging for accord.
// Logs are written to .accord/logs/ with separate files per category.
// Logging is controlled by debug_mode in .accord/config.yaml - when false, no logs are written.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup/initialization
	CategoryVCS        Category = "vcs"        // Version-control command execution
	CategoryResolver   Category = "resolver"   // Conflict inspection and resolution
	CategoryPattern    Category = "pattern"    // Conflict fingerprinting
	CategoryStrategy   Category = "strategy"   // Strategy tracking and recommendation
	CategoryEscalation Category = "escalation" // Escalation state machine
	CategoryChannel    Category = "channel"    // Decision channel adapters
	CategoryPorter     Category = "porter"     // Feature porting
	CategoryStore      Category = "store"      // Escalation/strategy persistence
)

// loggingConfig mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type loggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

// configFile structure for reading .accord/config.yaml
type configFile struct {
	Logging loggingConfig `yaml:"logging"`
}

// Logger is a category-scoped file logger.
// A Logger with a nil inner logger is a silent no-op.
type Logger struct {
	category Category
	file     *os.File
	logger   *log.Logger
}

var (
	workspace string
	logsDir   string

	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex

	config   loggingConfig
	configMu sync.RWMutex

	logLevel int // 0=debug, 1=info, 2=warn, 3=error
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config.
// Should be called once at startup with the workspace path.
func Initialize(ws string) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}

	workspace = ws
	logsDir = filepath.Join(workspace, ".accord", "logs")

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not load config: %v\n", err)
		config.DebugMode = false
	}

	// Only create logs directory if debug mode is enabled
	if !config.DebugMode {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== accord logging initialized ===")
	boot.Info("Workspace: %s", workspace)
	boot.Info("Debug mode: %v, level: %s", config.DebugMode, config.Level)

	return nil
}

// loadConfig reads the logging config from .accord/config.yaml
func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	configPath := filepath.Join(workspace, ".accord", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config = production mode (no logging)
			config.DebugMode = false
			return nil
		}
		return err
	}

	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	config = cf.Logging

	switch config.Level {
	case "debug":
		logLevel = LevelDebug
	case "info":
		logLevel = LevelInfo
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}

	return nil
}

// IsDebugMode reports whether file logging is active.
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !config.DebugMode {
		return false
	}

	if config.Categories == nil {
		return true // All enabled by default in debug mode
	}

	enabled, exists := config.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	if logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix keeps rotation a matter of deleting old files
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l

	return l
}

// Debug logs a debug message (only if level <= debug)
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message (only if level <= info)
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning message (only if level <= warn)
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error message (always written when logger is active)
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// Close closes all open log files. Call on shutdown.
func Close() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for cat, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
		delete(loggers, cat)
	}
}

// =============================================================================
// CATEGORY CONVENIENCE HELPERS
// =============================================================================

// VCS logs at info level to the vcs category.
func VCS(format string, args ...interface{}) { Get(CategoryVCS).Info(format, args...) }

// VCSDebug logs at debug level to the vcs category.
func VCSDebug(format string, args ...interface{}) { Get(CategoryVCS).Debug(format, args...) }

// Resolver logs at info level to the resolver category.
func Resolver(format string, args ...interface{}) { Get(CategoryResolver).Info(format, args...) }

// ResolverDebug logs at debug level to the resolver category.
func ResolverDebug(format string, args ...interface{}) { Get(CategoryResolver).Debug(format, args...) }

// ResolverWarn logs at warn level to the resolver category.
func ResolverWarn(format string, args ...interface{}) { Get(CategoryResolver).Warn(format, args...) }

// Strategy logs at info level to the strategy category.
func Strategy(format string, args ...interface{}) { Get(CategoryStrategy).Info(format, args...) }

// StrategyDebug logs at debug level to the strategy category.
func StrategyDebug(format string, args ...interface{}) { Get(CategoryStrategy).Debug(format, args...) }

// Escalation logs at info level to the escalation category.
func Escalation(format string, args ...interface{}) { Get(CategoryEscalation).Info(format, args...) }

// EscalationDebug logs at debug level to the escalation category.
func EscalationDebug(format string, args ...interface{}) {
	Get(CategoryEscalation).Debug(format, args...)
}

// EscalationWarn logs at warn level to the escalation category.
func EscalationWarn(format string, args ...interface{}) { Get(CategoryEscalation).Warn(format, args...) }

// Channel logs at info level to the channel category.
func Channel(format string, args ...interface{}) { Get(CategoryChannel).Info(format, args...) }

// ChannelWarn logs at warn level to the channel category.
func ChannelWarn(format string, args ...interface{}) { Get(CategoryChannel).Warn(format, args...) }

// Porter logs at info level to the porter category.
func Porter(format string, args ...interface{}) { Get(CategoryPorter).Info(format, args...) }

// PorterDebug logs at debug level to the porter category.
func PorterDebug(format string, args ...interface{}) { Get(CategoryPorter).Debug(format, args...) }

// Pattern logs at debug level to the pattern category.
func Pattern(format string, args ...interface{}) { Get(CategoryPattern).Debug(format, args...) }

// Store logs at info level to the store category.
func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

// StoreDebug logs at debug level to the store category.
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
