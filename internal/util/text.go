package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reUnicodeEscape = regexp.MustCompile(`\\u([0-9a-fA-F]{4})`)
	reControlEscape = regexp.MustCompile(`\\[nrt]`)
	reWhitespace    = regexp.MustCompile(`\s+`)
)

// SanitizeText drops invalid UTF-8 and NUL bytes.
func SanitizeText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// CollapseWhitespace replaces every whitespace run with a single space and trims.
func CollapseWhitespace(value string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(value, " "))
}

// CleanContext decodes literal escape sequences left in model output and
// collapses whitespace.
func CleanContext(value string) string {
	value = SanitizeText(value)
	value = reUnicodeEscape.ReplaceAllStringFunc(value, func(m string) string {
		code, err := strconv.ParseUint(m[2:], 16, 32)
		if err != nil {
			return m
		}
		return string(rune(code))
	})
	value = reControlEscape.ReplaceAllString(value, " ")
	return CollapseWhitespace(value)
}
