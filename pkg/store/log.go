package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"
)

// RecordLog is the append-only system of record of an extraction run: one
// JSON Entry per line, synced after every append. Opening an existing log
// loads its pair keys so a resumed run can skip completed pairs.
type RecordLog struct {
	mu         sync.Mutex
	path       string
	file       *os.File
	completed  map[common.PairKey]struct{}
	count      int
	mirror     *ArrayFile
	quarantine *QuarantineLog
	closed     bool
}

// OpenRecordLogParams configures a RecordLog. QuarantinePath and ArrayPath are
// optional. ArrayPath enables a JSON array mirror that is valid after every
// append.
type OpenRecordLogParams struct {
	Path           string
	QuarantinePath string
	ArrayPath      string
}

// OpenRecordLog opens or creates the log at params.Path. A torn trailing line
// left by a crash is truncated.
func OpenRecordLog(params OpenRecordLogParams) (*RecordLog, error) {
	if err := os.MkdirAll(filepath.Dir(params.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(params.Path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open record log: %w", err)
	}

	l := &RecordLog{
		path:      params.Path,
		file:      file,
		completed: make(map[common.PairKey]struct{}),
	}

	var records []common.RelationshipRecord
	good, err := scanLines(file, func(line []byte) error {
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return err
		}
		l.completed[entry.Key()] = struct{}{}
		records = append(records, entry.Record)
		l.count++
		return nil
	})
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to load record log %s: %w", params.Path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat record log: %w", err)
	}
	if info.Size() > good {
		logger.Warn("[Store] Truncating torn record", "path", params.Path, "bytes", info.Size()-good)
		if err := file.Truncate(good); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to truncate record log: %w", err)
		}
	}

	if params.QuarantinePath != "" {
		l.quarantine, err = OpenQuarantineLog(params.QuarantinePath)
		if err != nil {
			file.Close()
			return nil, err
		}
	}

	if params.ArrayPath != "" {
		if records == nil {
			records = []common.RelationshipRecord{}
		}
		if err := WriteJSONAtomic(params.ArrayPath, records); err != nil {
			l.Close()
			return nil, err
		}
		l.mirror, err = OpenArrayFile(params.ArrayPath)
		if err != nil {
			l.Close()
			return nil, err
		}
	}

	logger.Info("[Store] Opened record log", "path", params.Path, "records", l.count)

	return l, nil
}

// Completed reports whether the log already holds a record for key.
func (l *RecordLog) Completed(key common.PairKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.completed[key]
	return ok
}

// Len returns the number of records in the log.
func (l *RecordLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Append writes record as one synced line. The write is not abandoned when
// ctx is cancelled since the record is already paid for.
func (l *RecordLog) Append(ctx context.Context, documentID string, record common.RelationshipRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}

	entry := Entry{DocumentID: documentID, Record: record}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := appendLine(l.file, data); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	l.completed[entry.Key()] = struct{}{}
	l.count++

	if l.mirror != nil {
		if err := l.mirror.Append(record); err != nil {
			return fmt.Errorf("failed to update array mirror: %w", err)
		}
	}
	return nil
}

// Quarantine stores an entry in the quarantine log. Without one it is only
// logged.
func (l *RecordLog) Quarantine(ctx context.Context, entry common.QuarantineEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if l.quarantine == nil {
		logger.Warn("[Store] Quarantined pair", "document", entry.DocumentID, "entity_1", entry.Entity1, "entity_2", entry.Entity2, "response", entry.Response)
		return nil
	}
	return l.quarantine.Append(entry)
}

// Close releases the log and its companions. Closing twice is a no-op.
func (l *RecordLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	if l.mirror != nil {
		errs = append(errs, l.mirror.Close())
	}
	if l.quarantine != nil {
		errs = append(errs, l.quarantine.Close())
	}
	errs = append(errs, l.file.Close())
	return errors.Join(errs...)
}

// ReadLog returns the entries of the log at path in order. A missing log is
// empty and a torn trailing line is ignored.
func ReadLog(path string) ([]Entry, error) {
	var entries []Entry
	err := scanFile(path, func(line []byte) error {
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	return entries, err
}
