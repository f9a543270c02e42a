package ai

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEncoding is the tiktoken encoding used for prompt budgeting.
const TokenEncoding = "o200k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoder() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding(TokenEncoding)
		if err == nil {
			enc = e
		}
	})
	return enc
}

// CountTokens returns the number of tokens in text. When the encoding
// cannot be loaded it falls back to roughly four characters per token.
func CountTokens(text string) int {
	if e := encoder(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}

// TruncateTokens cuts text to at most maxTokens tokens. maxTokens <= 0
// disables truncation.
func TruncateTokens(text string, maxTokens int) string {
	if maxTokens <= 0 || text == "" {
		return text
	}
	if e := encoder(); e != nil {
		tokens := e.Encode(text, nil, nil)
		if len(tokens) <= maxTokens {
			return text
		}
		return e.Decode(tokens[:maxTokens])
	}

	runes := []rune(text)
	if len(runes) <= maxTokens*4 {
		return text
	}
	return string(runes[:maxTokens*4])
}
