package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"vertex-relay/internal/config"

	log "github.com/sirupsen/logrus"
)

var (
	logMux        sync.Mutex
	logFileHandle *os.File
)

// Setup configures the global logrus logger. Debug switches to a text
// formatter at debug level; production output is JSON at info level.
// The most recent call wins.
func Setup(cfg *config.Config) error {
	logMux.Lock()
	defer logMux.Unlock()

	debug := cfg != nil && cfg.Security.Debug

	var formatter log.Formatter = &log.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	level := log.InfoLevel
	if debug {
		formatter = &log.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339Nano}
		level = log.DebugLevel
	}
	log.SetFormatter(formatter)
	log.SetLevel(level)

	closeFileLocked()
	writers := []io.Writer{os.Stdout}
	if cfg != nil && cfg.Security.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Security.LogFile), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.Security.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFileHandle = file
		writers = append(writers, file)
	}

	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// Close releases the log file, if any.
func Close() {
	logMux.Lock()
	defer logMux.Unlock()
	log.SetOutput(os.Stdout)
	closeFileLocked()
}

func closeFileLocked() {
	if logFileHandle != nil {
		_ = logFileHandle.Close()
		logFileHandle = nil
	}
}
