package ner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/OFFIS-RIT/threatmap/pkg/common"
)

// DefaultScoreThreshold is the confidence a tagged span needs to be kept.
const DefaultScoreThreshold = 0.80

// Span is one aggregated mention returned by a token-classification model.
type Span struct {
	Group string  `json:"entity_group"`
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// Tagger finds organization and person mentions in a document.
type Tagger interface {
	Tag(ctx context.Context, documentID string, text string) ([]common.DetectedEntity, error)
}

// FilterSpans converts raw spans into detections for documentID. Subword
// pieces starting with "##" are dropped, remaining "##" markers are removed and
// only ORG and PER spans scoring at least threshold are kept.
func FilterSpans(spans []Span, documentID string, threshold float64) []common.DetectedEntity {
	var out []common.DetectedEntity
	for _, s := range spans {
		text := strings.TrimSpace(s.Word)
		if strings.HasPrefix(text, "##") {
			continue
		}
		text = strings.ReplaceAll(text, "##", "")

		label := common.Label(strings.ToUpper(s.Group))
		if !label.Valid() || s.Score < threshold || text == "" {
			continue
		}
		out = append(out, common.DetectedEntity{
			Text:       text,
			Label:      label,
			Score:      s.Score,
			DocumentID: documentID,
		})
	}
	return out
}

// Dedupe keeps the first detection for every (text, document) pair.
func Dedupe(detections []common.DetectedEntity) []common.DetectedEntity {
	type key struct{ text, doc string }
	seen := make(map[key]struct{}, len(detections))
	out := make([]common.DetectedEntity, 0, len(detections))
	for _, d := range detections {
		k := key{d.Text, d.DocumentID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, d)
	}
	return out
}

// fileEntity accepts the older "filename" key for the document id.
type fileEntity struct {
	common.DetectedEntity
	Filename string `json:"filename"`
}

// ReadDetections loads a JSON array of detections or canonical entities.
func ReadDetections(path string) ([]common.DetectedEntity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var raw []fileEntity
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	out := make([]common.DetectedEntity, 0, len(raw))
	for _, r := range raw {
		d := r.DetectedEntity
		if d.DocumentID == "" {
			d.DocumentID = r.Filename
		}
		out = append(out, d)
	}
	return out, nil
}

// DefaultMaxChars keeps chunks well inside the 512 token window of BERT
// style taggers.
const DefaultMaxChars = 1500

// ChunkText splits text on line breaks into pieces of at most maxChars bytes.
// A single line longer than maxChars is cut on whitespace.
func ChunkText(text string, maxChars int) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		for _, piece := range splitLong(line, maxChars) {
			if current.Len() > 0 && current.Len()+1+len(piece) > maxChars {
				flush()
			}
			if current.Len() > 0 {
				current.WriteByte('\n')
			}
			current.WriteString(piece)
		}
	}
	flush()

	return chunks
}

func splitLong(line string, maxChars int) []string {
	if len(line) <= maxChars {
		return []string{line}
	}
	var pieces []string
	var current strings.Builder
	for _, word := range strings.Fields(line) {
		if current.Len() > 0 && current.Len()+1+len(word) > maxChars {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}
