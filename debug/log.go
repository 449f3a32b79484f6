package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	logger  = zap.NewNop().Sugar()
	enabled bool
)

// DefaultPath returns ~/.config/go-drum/debug.log
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "go-drum", "debug.log")
}

// Enable starts debug logging to path (DefaultPath when empty).
// The TUI owns the terminal, so logs only ever go to a file.
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	// truncate like a fresh session
	if err := os.WriteFile(path, nil, 0644); err != nil {
		return fmt.Errorf("create log file: %w", err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	logger = l.Sugar()
	enabled = true
	logger.Debugw("=== Debug logging started ===", "category", "debug")
	return nil
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if !enabled {
		return
	}
	_ = logger.Sync()
	logger = zap.NewNop().Sugar()
	enabled = false
}

// Enabled reports whether logs are being written
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

func current() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Log writes a debug message under category
func Log(category, format string, args ...any) {
	current().Debugw(fmt.Sprintf(format, args...), "category", category)
}

// Info writes an informational message under category
func Info(category, format string, args ...any) {
	current().Infow(fmt.Sprintf(format, args...), "category", category)
}

// Error writes an error under category
func Error(category string, err error, format string, args ...any) {
	current().Errorw(fmt.Sprintf(format, args...), "category", category, "error", err)
}

// LogEvery logs only every N calls (use for high-frequency events)
var (
	countersMu sync.Mutex
	counters   = make(map[string]int)
)

func LogEvery(n int, category, format string, args ...any) {
	countersMu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	countersMu.Unlock()

	if n > 0 && count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
