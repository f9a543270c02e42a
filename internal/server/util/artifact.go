package util

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"
	"github.com/OFFIS-RIT/threatmap/pkg/store"
)

// ErrArtifactMissing is returned while the sanitized record file does not exist.
var ErrArtifactMissing = errors.New("artifact not available")

// Artifact serves the records of the sanitized JSON array. The file is read
// again whenever its size or modification time changes.
type Artifact struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	size    int64
	records []common.RelationshipRecord
}

func NewArtifact(path string) *Artifact {
	return &Artifact{path: path}
}

func (a *Artifact) Path() string {
	return a.path
}

// Records returns the current records. Callers must not modify the slice.
func (a *Artifact) Records() ([]common.RelationshipRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	info, err := os.Stat(a.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, a.path)
		}
		return nil, err
	}
	if a.records != nil && info.ModTime().Equal(a.modTime) && info.Size() == a.size {
		return a.records, nil
	}

	records, err := store.ReadRecords(a.path)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []common.RelationshipRecord{}
	}

	a.records = records
	a.modTime = info.ModTime()
	a.size = info.Size()
	logger.Info("[Server] Loaded artifact", "path", a.path, "records", len(records))

	return records, nil
}
