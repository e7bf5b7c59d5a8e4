package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileWriter writes log messages to a per-session log file.
// It always captures all levels regardless of console settings.
// Initialization is lazy: the file is only created on first write.
type FileWriter struct {
	mu       sync.Mutex
	file     *os.File
	logDir   string
	logPath  string
	initOnce sync.Once
	initErr  error
}

// NewFileWriter creates a new file writer rooted at logDir.
func NewFileWriter(logDir string) *FileWriter {
	return &FileWriter{logDir: logDir}
}

func (f *FileWriter) init() error {
	f.initOnce.Do(func() {
		f.initErr = f.doInit()
	})
	return f.initErr
}

func (f *FileWriter) doInit() error {
	logDir := f.logDir
	if !filepath.IsAbs(logDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		logDir = filepath.Join(cwd, f.logDir)
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, fmt.Sprintf("session_%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("create log file: %w", err)
	}

	f.file = file
	f.logPath = logPath

	_, _ = fmt.Fprintf(file, "=== Session started at %s ===\n", time.Now().Format("2006-01-02 15:04:05"))

	// Keep a stable pointer to the most recent session log.
	latestPath := filepath.Join(logDir, "latest.log")
	_ = os.Remove(latestPath)
	_ = os.Symlink(filepath.Base(logPath), latestPath)

	return nil
}

// Write writes a log message to the file. All levels are written.
func (f *FileWriter) Write(level Level, prefix, msg string, fields ...Field) error {
	if err := f.init(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}

	_, err := f.file.WriteString(formatLine(level, prefix, msg, fields))
	return err
}

// Path returns the path to the current log file, or empty if not initialized.
func (f *FileWriter) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logPath
}

// Close closes the file writer.
func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file != nil {
		_, _ = fmt.Fprintf(f.file, "=== Session ended at %s ===\n", time.Now().Format("2006-01-02 15:04:05"))
		err := f.file.Close()
		f.file = nil
		return err
	}
	return nil
}
