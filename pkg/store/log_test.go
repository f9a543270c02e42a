package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/OFFIS-RIT/threatmap/pkg/common"
)

func testRecord(e1, e2 string) common.RelationshipRecord {
	return common.RelationshipRecord{
		Entity1:             common.NewText(e1),
		Entity2:             common.NewText(e2),
		RelationshipSummary: common.NewText(e1 + " and " + e2),
		ConfidenceScore:     common.NewText("90%"),
		ThreatAssessment:    common.ThreatAssessment{ThreatLevel: 5},
	}
}

func openLog(t *testing.T, params OpenRecordLogParams) *RecordLog {
	t.Helper()
	l, err := OpenRecordLog(params)
	if err != nil {
		t.Fatalf("OpenRecordLog() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordLogAppendAndResume(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "records.ndjson")

	l := openLog(t, OpenRecordLogParams{Path: path})
	if err := l.Append(ctx, "d1", testRecord("A", "B")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := l.Append(ctx, "d1", testRecord("A", "C")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if !l.Completed(common.NewPairKey("d1", "B", "A")) {
		t.Error("pair B|A not completed")
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := l.Append(ctx, "d1", testRecord("B", "C")); !errors.Is(err, ErrClosed) {
		t.Errorf("Append() after Close error = %v, want ErrClosed", err)
	}

	reopened := openLog(t, OpenRecordLogParams{Path: path})
	if reopened.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reopened.Len())
	}
	for _, key := range []common.PairKey{
		common.NewPairKey("d1", "A", "B"),
		common.NewPairKey("d1", "C", "A"),
	} {
		if !reopened.Completed(key) {
			t.Errorf("Completed(%v) = false", key)
		}
	}
	if reopened.Completed(common.NewPairKey("d2", "A", "B")) {
		t.Error("pair of another document completed")
	}
}

func TestRecordLogTruncatesTornLine(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.ndjson")

	l := openLog(t, OpenRecordLogParams{Path: path})
	if err := l.Append(ctx, "d1", testRecord("A", "B")); err != nil {
		t.Fatal(err)
	}
	l.Close()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"document_id":"d1","record":{"entity_1":"A","ent`); err != nil {
		t.Fatal(err)
	}
	f.Close()

	reopened := openLog(t, OpenRecordLogParams{Path: path})
	if reopened.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reopened.Len())
	}
	if err := reopened.Append(ctx, "d1", testRecord("A", "C")); err != nil {
		t.Fatal(err)
	}

	entries, err := ReadLog(path)
	if err != nil {
		t.Fatalf("ReadLog() error = %v", err)
	}
	if len(entries) != 2 || entries[1].Record.Entity2.Value != "C" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestRecordLogRejectsCorruptLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.ndjson")
	if err := os.WriteFile(path, []byte("not json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenRecordLog(OpenRecordLogParams{Path: path}); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("OpenRecordLog() error = %v, want ErrCorrupt", err)
	}
}

func TestRecordLogQuarantine(t *testing.T) {
	dir := t.TempDir()
	quarantinePath := filepath.Join(dir, "quarantine.ndjson")
	l := openLog(t, OpenRecordLogParams{
		Path:           filepath.Join(dir, "records.ndjson"),
		QuarantinePath: quarantinePath,
	})

	entry := common.QuarantineEntry{
		DocumentID: "d1",
		Entity1:    "A",
		Entity2:    "B",
		Reason:     "missing keys threat_assessment",
		Response:   `{"entity_1": "A"}`,
		Attempts:   5,
		Time:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := l.Quarantine(context.Background(), entry); err != nil {
		t.Fatalf("Quarantine() error = %v", err)
	}
	if l.Completed(common.NewPairKey("d1", "A", "B")) {
		t.Error("quarantined pair completed")
	}

	got, err := ReadQuarantine(quarantinePath)
	if err != nil {
		t.Fatalf("ReadQuarantine() error = %v", err)
	}
	if !reflect.DeepEqual(got, []common.QuarantineEntry{entry}) {
		t.Errorf("ReadQuarantine() = %+v, want %+v", got, entry)
	}
}

func TestQuarantineLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "quarantine.ndjson")
	entry := common.QuarantineEntry{DocumentID: "d1", Entity1: "A", Entity2: "B", Reason: "empty response", Attempts: 2}

	for range 2 {
		q, err := OpenQuarantineLog(path)
		if err != nil {
			t.Fatalf("OpenQuarantineLog() error = %v", err)
		}
		if err := q.Append(entry); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if err := q.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if err := q.Close(); err != nil {
			t.Errorf("second Close() error = %v", err)
		}
		if err := q.Append(entry); !errors.Is(err, ErrClosed) {
			t.Errorf("Append() after Close error = %v, want ErrClosed", err)
		}
	}

	got, err := ReadQuarantine(path)
	if err != nil {
		t.Fatalf("ReadQuarantine() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("reopened log holds %d entries, want 2", len(got))
	}
}

func TestRecordLogMirror(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "records.ndjson")
	arrayPath := filepath.Join(dir, "records.json")

	l := openLog(t, OpenRecordLogParams{Path: logPath, ArrayPath: arrayPath})
	for _, r := range []common.RelationshipRecord{testRecord("A", "B"), testRecord("A", "C")} {
		if err := l.Append(ctx, "d1", r); err != nil {
			t.Fatal(err)
		}
		assertArrayLen(t, arrayPath, l.Len())
	}
	l.Close()

	// a stale mirror is rebuilt from the log
	if err := os.WriteFile(arrayPath, []byte("[\n  {\"entity_1\""), 0o644); err != nil {
		t.Fatal(err)
	}
	reopened := openLog(t, OpenRecordLogParams{Path: logPath, ArrayPath: arrayPath})
	assertArrayLen(t, arrayPath, 2)
	if err := reopened.Append(ctx, "d2", testRecord("X", "Y")); err != nil {
		t.Fatal(err)
	}
	assertArrayLen(t, arrayPath, 3)
}

func assertArrayLen(t *testing.T, path string, want int) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var records []common.RelationshipRecord
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("%s is not a valid array: %v\n%s", path, err, data)
	}
	if len(records) != want {
		t.Fatalf("array has %d records, want %d", len(records), want)
	}
}
