package graph

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/OFFIS-RIT/threatmap/internal/util"
	"github.com/OFFIS-RIT/threatmap/pkg/ai"
	"github.com/OFFIS-RIT/threatmap/pkg/common"

	"github.com/go-playground/validator"
)

var requiredKeys = []string{
	"entity_1",
	"entity_2",
	"relationship_summary",
	"confidence_score",
	"relevant_context",
	"threat_assessment",
}

// keyAliases maps canonicalized keys of older prompt formats, e.g.
// "Threat Assessment" -> "threat_assessment" after canonicalization, to the
// record keys where the names differ.
var keyAliases = map[string]string{
	"entity1":                 "entity_1",
	"entity2":                 "entity_2",
	"summary":                 "relationship_summary",
	"confidence":              "confidence_score",
	"context":                 "relevant_context",
	"level":                   "threat_level",
	"threat_type":             "type",
	"impact_level":            "impact_level_on_singapore",
	"explanation_(singapore)": "impact_explanation",
	"singapore_explanation":   "impact_explanation",
	"location_1":              "origin_location_1",
	"location_2":              "origin_location_2",
}

var recordValidator = newRecordValidator()

func newRecordValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if t, ok := field.Interface().(common.Text); ok && t.Valid {
			return t.Value
		}
		return nil
	}, common.Text{})
	return v
}

func canonicalKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if alias, ok := keyAliases[key]; ok {
		return alias
	}
	return key
}

func canonicalFields(fields map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		key := canonicalKey(k)
		if _, exists := out[key]; exists && key != k {
			continue
		}
		out[key] = v
	}
	return out
}

// parseRelationship turns a raw model response into a validated record for the
// pair (entity1, entity2). Any failure is a *SchemaError carrying the response.
func parseRelationship(response, entity1, entity2 string) (common.RelationshipRecord, error) {
	var record common.RelationshipRecord

	object, ok := ai.ExtractJSONObject(response)
	if !ok {
		return record, schemaErrorf(response, "no JSON object in response")
	}

	var fields map[string]json.RawMessage
	if err := ai.UnmarshalFlexible(object, &fields); err != nil {
		return record, schemaErrorf(response, "unparseable JSON: %v", err)
	}
	fields = canonicalFields(fields)

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return record, schemaErrorf(response, "missing keys %s", strings.Join(missing, ", "))
	}

	var assessment map[string]json.RawMessage
	if err := json.Unmarshal(fields["threat_assessment"], &assessment); err != nil || assessment == nil {
		return record, schemaErrorf(response, "threat_assessment is not an object")
	}
	assessment = canonicalFields(assessment)
	if _, ok := assessment["threat_level"]; !ok {
		return record, schemaErrorf(response, "missing keys threat_assessment.threat_level")
	}

	normalized, err := json.Marshal(assessment)
	if err != nil {
		return record, schemaErrorf(response, "threat_assessment: %v", err)
	}
	fields["threat_assessment"] = normalized

	data, err := json.Marshal(fields)
	if err != nil {
		return record, schemaErrorf(response, "%v", err)
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, schemaErrorf(response, "invalid field: %v", err)
	}

	record.Entity1 = common.NewText(entity1)
	record.Entity2 = common.NewText(entity2)
	if record.RelevantContext.Valid {
		record.RelevantContext = common.NewText(util.CleanContext(record.RelevantContext.Value))
	}

	if err := recordValidator.Struct(record); err != nil {
		return record, schemaErrorf(response, "validation failed: %v", err)
	}

	return record, nil
}
