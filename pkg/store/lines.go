package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// scanLines calls fn for every newline-terminated, non-blank line of r and
// returns the offset just past the last complete line. A trailing line
// without newline is the remains of an interrupted write and is ignored.
func scanLines(r io.Reader, fn func(line []byte) error) (int64, error) {
	reader := bufio.NewReader(r)
	var offset int64
	lineNo := 0

	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			return offset, nil
		}
		if err != nil {
			return offset, err
		}
		lineNo++

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if err := fn(trimmed); err != nil {
				return offset, fmt.Errorf("%w: line %d: %w", ErrCorrupt, lineNo, err)
			}
		}
		offset += int64(len(line))
	}
}

// scanFile is scanLines over the file at path. A missing file has no lines.
func scanFile(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := scanLines(f, fn); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// appendLine writes data plus newline in a single write and syncs.
func appendLine(f *os.File, data []byte) error {
	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return err
	}
	return f.Sync()
}
