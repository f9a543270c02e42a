package store

import (
	"fmt"

	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"
)

// Finalize compacts the record log at logPath into a JSON array at outPath.
// Records keep log order; a later record for an already seen pair is
// dropped. The array is replaced atomically.
func Finalize(logPath, outPath string) (int, error) {
	entries, err := ReadLog(logPath)
	if err != nil {
		return 0, err
	}

	seen := make(map[common.PairKey]struct{}, len(entries))
	records := make([]common.RelationshipRecord, 0, len(entries))
	for _, entry := range entries {
		key := entry.Key()
		if _, ok := seen[key]; ok {
			logger.Debug("[Store] Dropped duplicate record", "document", entry.DocumentID, "entity_1", key.Entity1, "entity_2", key.Entity2)
			continue
		}
		seen[key] = struct{}{}
		records = append(records, entry.Record)
	}

	if err := WriteJSONAtomic(outPath, records); err != nil {
		return 0, fmt.Errorf("failed to finalize records: %w", err)
	}
	logger.Info("[Store] Finalized records", "log", logPath, "out", outPath, "records", len(records), "duplicates", len(entries)-len(records))

	return len(records), nil
}
