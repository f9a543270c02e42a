package graph

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// mentionMatcher finds whole-word, case-insensitive mentions of entity names.
// Compiled patterns are cached per name.
type mentionMatcher struct {
	patterns map[string]*regexp.Regexp
}

func newMentionMatcher() *mentionMatcher {
	return &mentionMatcher{patterns: make(map[string]*regexp.Regexp)}
}

func (m *mentionMatcher) pattern(entity string) *regexp.Regexp {
	if re, ok := m.patterns[entity]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(entity))
	m.patterns[entity] = re
	return re
}

// mentions reports whether sentence contains entity as a whole word. Go's \b
// only knows ASCII, so the runes around a match are checked instead: a match
// edge that is a word character must not touch another word character.
func (m *mentionMatcher) mentions(sentence, entity string) bool {
	if entity == "" {
		return false
	}
	for _, loc := range m.pattern(entity).FindAllStringIndex(sentence, -1) {
		first, _ := utf8.DecodeRuneInString(sentence[loc[0]:])
		last, _ := utf8.DecodeLastRuneInString(sentence[:loc[1]])
		if isWordRune(first) && loc[0] > 0 {
			if prev, _ := utf8.DecodeLastRuneInString(sentence[:loc[0]]); isWordRune(prev) {
				continue
			}
		}
		if isWordRune(last) && loc[1] < len(sentence) {
			if next, _ := utf8.DecodeRuneInString(sentence[loc[1]:]); isWordRune(next) {
				continue
			}
		}
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// selectSupportingText picks the sentences that mention both entities. When
// none do, it falls back to sentences mentioning either one. Sentences keep
// their document order and are joined by a single space. An empty result
// means the pair has no supporting text.
func (m *mentionMatcher) selectSupportingText(sentences []string, entity1, entity2 string) string {
	var both, either []string
	for _, sentence := range sentences {
		has1 := m.mentions(sentence, entity1)
		has2 := m.mentions(sentence, entity2)
		switch {
		case has1 && has2:
			both = append(both, sentence)
		case has1 || has2:
			either = append(either, sentence)
		}
	}

	selected := both
	if len(selected) == 0 {
		selected = either
	}
	return strings.TrimSpace(strings.Join(selected, " "))
}

// SelectSupportingText splits text into sentences and returns the supporting
// text for the pair (entity1, entity2).
//
// Example:
//
//	text := "Alice Smith met Bob Jones. The UN was not involved. Bob Jones left."
//	graph.SelectSupportingText(text, "Alice Smith", "Bob Jones")
//	// "Alice Smith met Bob Jones."
func SelectSupportingText(text, entity1, entity2 string) string {
	return newMentionMatcher().selectSupportingText(splitIntoSentences(text), entity1, entity2)
}
