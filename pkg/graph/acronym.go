package graph

import (
	"maps"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"
)

// Acronym concatenates the first letter of every capitalized word of text.
// "Ministry of Foreign Affairs" yields "MFA".
func Acronym(text string) string {
	var b strings.Builder
	for _, word := range strings.Fields(text) {
		r, _ := utf8.DecodeRuneInString(word)
		if unicode.IsUpper(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CollapseAcronyms drops every entity whose text equals the acronym of another
// entity of the same document. Full forms are never dropped. The second return
// value holds the dropped strings for audit output.
func CollapseAcronyms(entities []common.Entity) ([]common.Entity, map[string]struct{}) {
	// document -> acronym -> index of an entity producing it
	acronyms := make(map[string]map[string][]int)
	for i, e := range entities {
		a := Acronym(e.Text)
		if a == "" {
			continue
		}
		doc := acronyms[e.DocumentID]
		if doc == nil {
			doc = make(map[string][]int)
			acronyms[e.DocumentID] = doc
		}
		doc[a] = append(doc[a], i)
	}

	removed := make(map[string]struct{})
	kept := make([]common.Entity, 0, len(entities))
	for i, e := range entities {
		if fullForm := otherSource(acronyms[e.DocumentID][e.Text], i); fullForm >= 0 {
			logger.Debug("[Acronym] Dropped acronym", "text", e.Text, "full_form", entities[fullForm].Text, "document", e.DocumentID)
			removed[e.Text] = struct{}{}
			continue
		}
		kept = append(kept, e)
	}

	if len(removed) > 0 {
		dropped := slices.Sorted(maps.Keys(removed))
		logger.Info("[Acronym] Collapsed acronyms", "removed", len(entities)-len(kept), "acronyms", strings.Join(dropped, ", "))
	}

	return kept, removed
}

func otherSource(sources []int, self int) int {
	for _, idx := range sources {
		if idx != self {
			return idx
		}
	}
	return -1
}
