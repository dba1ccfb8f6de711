package format

import (
	"html"
	"unicode/utf8"
)

// TruncatedMarker is appended to messages cut at the size limit.
const TruncatedMarker = "\n\n... (сообщение обрезано)"

// Escape makes user-provided text safe inside Telegram HTML parse mode.
func Escape(s string) string {
	return html.EscapeString(s)
}

// Bold wraps escaped text in <b>.
func Bold(s string) string {
	return "<b>" + Escape(s) + "</b>"
}

// Runes cuts s to at most n runes.
func Runes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// Limit bounds text to limit runes including marker. Text that fits is returned unchanged.
func Limit(text string, limit int, marker string) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	keep := limit - utf8.RuneCountInString(marker)
	if keep < 0 {
		return Runes(marker, limit)
	}
	return Runes(text, keep) + marker
}
