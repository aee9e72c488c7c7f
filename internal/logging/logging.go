// Package logging is the process-wide leveled logger. Debug output is only
// written in verbose mode; Info, Warn and Error are always written.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	logger  = log.New(os.Stderr, "", log.LstdFlags)
	logFile *os.File
)

// SetVerbose enables or disables debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether debug output is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects all log output. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// Init writes logs to stderr and, when logPath is set, appends them to that file too.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	writers := []io.Writer{os.Stderr}
	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = f
		writers = append(writers, f)
	}
	logger.SetOutput(io.MultiWriter(writers...))
	return nil
}

// Close closes the log file opened by Init, if any, and restores stderr output.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	logger.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		logger.Printf("[DEBUG] "+format, args...)
	}
}

func Info(format string, args ...any) { write("[INFO] ", format, args) }

func Warn(format string, args ...any) { write("[WARN] ", format, args) }

func Error(format string, args ...any) { write("[ERROR] ", format, args) }

func write(level, format string, args []any) {
	mu.RLock()
	defer mu.RUnlock()
	logger.Printf(level+format, args...)
}
