package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/OFFIS-RIT/threatmap/pkg/common"
)

// QuarantineLog collects pairs whose model responses never validated, one
// JSON entry per line, for later inspection.
type QuarantineLog struct {
	mu     sync.Mutex
	file   *os.File
	closed bool
}

// OpenQuarantineLog opens the quarantine log at path for appending, creating
// it and its directory if needed.
func OpenQuarantineLog(path string) (*QuarantineLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create quarantine directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open quarantine log: %w", err)
	}
	return &QuarantineLog{file: file}, nil
}

// Append writes entry as one synced line. It fails with ErrClosed after Close.
func (q *QuarantineLog) Append(entry common.QuarantineEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode quarantine entry: %w", err)
	}
	if err := appendLine(q.file, data); err != nil {
		return fmt.Errorf("failed to append quarantine entry: %w", err)
	}
	return nil
}

// Close closes the log. Calling it again is a no-op.
func (q *QuarantineLog) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	return q.file.Close()
}

// ReadQuarantine returns the entries of the quarantine log at path.
func ReadQuarantine(path string) ([]common.QuarantineEntry, error) {
	var entries []common.QuarantineEntry
	err := scanFile(path, func(line []byte) error {
		var entry common.QuarantineEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	return entries, err
}
