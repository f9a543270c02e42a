package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"math"
	"reflect"

	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"
	"github.com/OFFIS-RIT/threatmap/pkg/store"
)

var textType = reflect.TypeFor[common.Text]()

// SanitizeRecords returns a copy of records in which every Text holding a
// placeholder ("", "Unknown", "N/A") is replaced by the missing marker. It is
// idempotent and never fails.
func SanitizeRecords(records []common.RelationshipRecord) []common.RelationshipRecord {
	out := make([]common.RelationshipRecord, len(records))
	copy(out, records)
	for i := range out {
		sanitizeValue(reflect.ValueOf(&out[i]).Elem())
	}
	return out
}

func sanitizeValue(v reflect.Value) {
	if v.Type() == textType {
		if t := v.Interface().(common.Text); t.Valid && common.IsPlaceholder(t.Value) {
			v.Set(reflect.ValueOf(common.Missing))
		}
		return
	}

	switch v.Kind() {
	case reflect.Struct:
		for i := range v.NumField() {
			if f := v.Field(i); f.CanSet() {
				sanitizeValue(f)
			}
		}
	case reflect.Pointer:
		if !v.IsNil() {
			sanitizeValue(v.Elem())
		}
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			sanitizeValue(v.Index(i))
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			elem := reflect.New(v.Type().Elem()).Elem()
			elem.Set(iter.Value())
			sanitizeValue(elem)
			v.SetMapIndex(iter.Key(), elem)
		}
	}
}

// SanitizeJSON applies the placeholder rule to a decoded JSON tree. Strings
// equal to a placeholder become nil; objects and arrays are rewritten in place
// and returned.
func SanitizeJSON(v any) any {
	switch node := v.(type) {
	case string:
		if common.IsPlaceholder(node) {
			return nil
		}
		return node
	case map[string]any:
		for k, child := range node {
			node[k] = SanitizeJSON(child)
		}
		return node
	case []any:
		for i, child := range node {
			node[i] = SanitizeJSON(child)
		}
		return node
	default:
		return v
	}
}

var levelKeys = []string{"threat_level", "impact_level_on_singapore"}

// SanitizeRecordJSON sanitizes one decoded record. Both assessment levels
// always end up as integers; placeholder, unparsable or absent levels become 0.
func SanitizeRecordJSON(v any) any {
	record, ok := SanitizeJSON(v).(map[string]any)
	if !ok {
		return v
	}

	assessment, ok := record["threat_assessment"].(map[string]any)
	if !ok {
		assessment = map[string]any{}
		record["threat_assessment"] = assessment
	}
	for _, key := range levelKeys {
		assessment[key] = int(coerceLevel(assessment[key]))
	}
	return record
}

func coerceLevel(v any) common.Level {
	switch n := v.(type) {
	case json.Number:
		level, err := common.ParseLevel(n.String())
		if err == nil {
			return level
		}
	case float64:
		return common.Level(math.Round(n))
	case int:
		return common.Level(n)
	case string:
		level, err := common.ParseLevel(n)
		if err == nil {
			return level
		}
	}
	return 0
}

// SanitizeFile sanitizes the JSON array at in and writes it to out. Unknown
// fields are preserved. in and out may name the same file; the write is
// atomic.
func SanitizeFile(in, out string) (int, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", in, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var records []any
	if err := dec.Decode(&records); err != nil {
		return 0, fmt.Errorf("failed to decode %s: %w", in, err)
	}

	if records == nil {
		records = []any{}
	}
	for i, r := range records {
		records[i] = SanitizeRecordJSON(r)
	}

	if err := store.WriteJSONAtomic(out, records); err != nil {
		return 0, err
	}
	logger.Info("[Sanitize] Wrote sanitized records", "records", len(records), "in", in, "out", out)

	return len(records), nil
}
