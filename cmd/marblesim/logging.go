package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

const (
	logFile     = "marblesim.log"
	maxLogBytes = 4 << 20
)

// setupLogging picks the log destination. An explicit path wins; otherwise
// the viewer logs to a file under dataDir, since it owns the terminal, and
// everything else logs to stderr. A log file larger than maxLogBytes is
// rotated to <name>.1 before opening.
func setupLogging(path, dataDir string, screen bool) (*log.Logger, func(), error) {
	if path == "" && !screen {
		return log.New(os.Stderr, "", log.LstdFlags), func() {}, nil
	}
	if path == "" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("log dir: %w", err)
		}
		path = filepath.Join(dataDir, logFile)
	}

	if info, err := os.Stat(path); err == nil && info.Size() > maxLogBytes {
		if err := os.Rename(path, path+".1"); err != nil {
			return nil, nil, fmt.Errorf("rotate log: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	return log.New(f, "", log.LstdFlags|log.Lmicroseconds), func() { f.Close() }, nil
}
