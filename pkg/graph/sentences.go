package graph

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// abbreviations never end a sentence when followed by a period.
var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {},
	"st": {}, "gen": {}, "col": {}, "lt": {}, "maj": {}, "capt": {}, "sgt": {},
	"adm": {}, "gov": {}, "sen": {}, "rep": {}, "amb": {}, "pres": {}, "hon": {},
	"dept": {},
	"vs": {}, "etc": {}, "no": {}, "vol": {}, "approx": {}, "ref": {}, "para": {},
	"jan": {}, "feb": {}, "mar": {}, "apr": {}, "jun": {}, "jul": {}, "aug": {},
	"sep": {}, "sept": {}, "oct": {}, "nov": {}, "dec": {},
}

// corporateSuffixes close an organization name and end a sentence unless the
// next word is lower case.
var corporateSuffixes = map[string]struct{}{
	"inc": {}, "ltd": {}, "co": {}, "corp": {}, "bhd": {}, "pte": {},
}

// splitIntoSentences splits text into sentences in document order. Lines
// are joined until a sentence terminator is reached and blank lines always end
// the current sentence.
func splitIntoSentences(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}

		parts, open := splitLineIntoSentences(trimmed)
		for i, part := range parts {
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(part)
			if i < len(parts)-1 || !open {
				flush()
			}
		}
	}
	flush()

	return sentences
}

// splitLineIntoSentences splits a single trimmed line. open reports whether the
// last part is unterminated and may continue on the next line.
func splitLineIntoSentences(line string) (parts []string, open bool) {
	runes := []rune(line)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		j := i + 1
		for j < len(runes) && (runes[j] == '.' || runes[j] == '!' || runes[j] == '?') {
			j++
		}
		for j < len(runes) && isClosing(runes[j]) {
			j++
		}

		if j < len(runes) && !unicode.IsSpace(runes[j]) {
			i = j - 1
			continue
		}
		if r == '.' && j-i == 1 && !endsSentence(runes, start, i, j) {
			i = j - 1
			continue
		}

		if s := strings.TrimSpace(string(runes[start:j])); s != "" {
			parts = append(parts, s)
		}
		start = j
		i = j - 1
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		return append(parts, s), true
	}
	return parts, false
}

// endsSentence decides whether the period at dot closes a sentence. next is
// the index after the period and any closing punctuation.
func endsSentence(runes []rune, start, dot, next int) bool {
	wordStart := dot
	for wordStart > start && !unicode.IsSpace(runes[wordStart-1]) {
		wordStart--
	}
	word := strings.TrimLeftFunc(string(runes[wordStart:dot]), func(r rune) bool {
		return isOpening(r)
	})

	switch {
	case word == "":
		return true
	case isListMarker(word):
		return false
	case isInitialism(word):
		return false
	}
	lower := strings.ToLower(word)
	if _, ok := abbreviations[lower]; ok {
		return false
	}

	r, following := nextWord(runes, next)
	if _, ok := corporateSuffixes[lower]; ok {
		// "Acme Pte. Ltd." and "Acme Corp. (Singapore)" continue the name
		if _, chained := corporateSuffixes[strings.ToLower(following)]; chained {
			return false
		}
		return !(unicode.IsLower(r) || r == '(' || r == '&')
	}

	// lower case continuation means the period was not terminal
	return !unicode.IsLower(r)
}

// nextWord returns the first non-space rune at or after i and the word it
// starts without trailing punctuation. r is 0 at the end of runes.
func nextWord(runes []rune, i int) (r rune, word string) {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	if i == len(runes) {
		return 0, ""
	}
	end := i
	for end < len(runes) && !unicode.IsSpace(runes[end]) {
		end++
	}
	return runes[i], strings.TrimRightFunc(string(runes[i:end]), unicode.IsPunct)
}

// isListMarker matches list markers like "1." or "12.". Longer numbers such
// as years still end a sentence.
func isListMarker(word string) bool {
	if word == "" || len(word) > 2 {
		return false
	}
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isInitialism matches "J", "U.S" or "e.g": single letters separated by periods.
func isInitialism(word string) bool {
	for segment := range strings.SplitSeq(word, ".") {
		if utf8.RuneCountInString(segment) != 1 {
			return false
		}
		r, _ := utf8.DecodeRuneInString(segment)
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func isClosing(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’':
		return true
	}
	return false
}

func isOpening(r rune) bool {
	switch r {
	case '"', '\'', '(', '[', '{', '“', '‘':
		return true
	}
	return false
}
