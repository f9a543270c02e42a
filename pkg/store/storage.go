package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/OFFIS-RIT/threatmap/pkg/common"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	// ErrClosed is returned by writes to a closed log or array file.
	ErrClosed = errors.New("store closed")
	// ErrCorrupt is returned when a complete line of a log cannot be decoded.
	ErrCorrupt = errors.New("corrupt log")
)

// Entry is one line of the record log.
type Entry struct {
	DocumentID string                    `json:"document_id"`
	Record     common.RelationshipRecord `json:"record"`
}

// Key returns the pair key of the entry.
func (e Entry) Key() common.PairKey {
	return common.NewPairKey(e.DocumentID, e.Record.Entity1.Value, e.Record.Entity2.Value)
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	id, err := gonanoid.New(10)
	if err != nil {
		return fmt.Errorf("failed to generate temp name: %w", err)
	}
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+id+".tmp")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func(err error) error {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}

	if _, err := f.Write(data); err != nil {
		return cleanup(fmt.Errorf("failed to write %s: %w", tmp, err))
	}
	if err := f.Sync(); err != nil {
		return cleanup(fmt.Errorf("failed to sync %s: %w", tmp, err))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// WriteJSONAtomic encodes v as indented JSON and writes it with WriteFileAtomic.
func WriteJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return WriteFileAtomic(path, append(data, '\n'))
}

// ReadRecords reads a JSON array of records.
func ReadRecords(path string) ([]common.RelationshipRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var records []common.RelationshipRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return records, nil
}
