package chat

import (
	"strings"
	"unicode/utf8"
)

// TruncateText safely truncates a UTF-8 string to maxLen runes, preserving character integrity
func TruncateText(input string, maxLen int) string {
	if input == "" || maxLen <= 0 {
		return ""
	}

	if utf8.RuneCountInString(input) <= maxLen {
		return input
	}

	var b strings.Builder
	count := 0

	for _, r := range input {
		if count >= maxLen {
			break
		}
		b.WriteRune(r)
		count++
	}

	return b.String()
}

// TitleFor derives a conversation title from its first message: the first
// TitleMaxRunes runes, or FallbackTitle when the message is blank.
func TitleFor(message string) string {
	title := TruncateText(strings.TrimSpace(message), TitleMaxRunes)
	if title == "" {
		return FallbackTitle
	}
	return title
}
