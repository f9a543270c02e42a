package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/OFFIS-RIT/threatmap/pkg/logger"
)

var arrayTail = []byte("\n]\n")

// ArrayFile is a JSON array on disk that stays parseable after every append.
// Each append overwrites the closing bracket with the new element followed by
// a fresh bracket.
type ArrayFile struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	tail   int64
	count  int
	closed bool
}

// OpenArrayFile opens or creates the array at path and reconciles its end:
// complete elements are kept, a torn trailing element is cut and the closing
// bracket is restored.
func OpenArrayFile(path string) (*ArrayFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create array directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open array file: %w", err)
	}

	a := &ArrayFile{path: path, file: file}
	if err := a.reconcile(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to reconcile %s: %w", path, err)
	}
	return a, nil
}

func (a *ArrayFile) reconcile() error {
	data, err := io.ReadAll(io.NewSectionReader(a.file, 0, 1<<62))
	if err != nil {
		return err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return a.rewriteTail(0, []byte("["))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('[') {
		return errors.New("not a JSON array")
	}
	end := dec.InputOffset()
	count := 0
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			break
		}
		end = dec.InputOffset()
		count++
	}

	if int64(len(data)) != end+int64(len(arrayTail)) || !bytes.Equal(data[end:], arrayTail) {
		logger.Debug("[Store] Reconciled array end", "path", a.path, "elements", count)
	}
	a.count = count
	return a.rewriteTail(end, nil)
}

// rewriteTail cuts the file at offset, writes prefix and the closing bracket.
func (a *ArrayFile) rewriteTail(offset int64, prefix []byte) error {
	if err := a.file.Truncate(offset); err != nil {
		return err
	}
	buf := append(append([]byte{}, prefix...), arrayTail...)
	if _, err := a.file.WriteAt(buf, offset); err != nil {
		return err
	}
	a.tail = offset + int64(len(prefix))
	return a.file.Sync()
}

// Append encodes v as the next element.
func (a *ArrayFile) Append(v any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}

	data, err := json.MarshalIndent(v, "  ", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode element: %w", err)
	}

	sep := "\n  "
	if a.count > 0 {
		sep = ",\n  "
	}
	chunk := make([]byte, 0, len(sep)+len(data)+len(arrayTail))
	chunk = append(chunk, sep...)
	chunk = append(chunk, data...)
	chunk = append(chunk, arrayTail...)

	if _, err := a.file.WriteAt(chunk, a.tail); err != nil {
		return fmt.Errorf("failed to write element: %w", err)
	}
	if err := a.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync array file: %w", err)
	}
	a.tail += int64(len(chunk) - len(arrayTail))
	a.count++
	return nil
}

// Len returns the number of elements.
func (a *ArrayFile) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// Close reconciles the end once more and closes the file.
func (a *ArrayFile) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	err := a.rewriteTail(a.tail, nil)
	return errors.Join(err, a.file.Close())
}
