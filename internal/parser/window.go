package parser

import (
	"strings"
	"unicode/utf8"
)

// runesBefore returns the byte offset n runes before i (clamped at 0).
func runesBefore(s string, i, n int) int {
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return i
}

// runesAfter returns the byte offset n runes after i (clamped at len(s)).
func runesAfter(s string, i, n int) int {
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

// windowContains reports whether the lower-cased text spanning `before`
// runes ahead of start through `after` runes past end contains word.
func windowContains(s string, start, end, before, after int, word string) bool {
	lo := runesBefore(s, start, before)
	hi := runesAfter(s, end, after)
	return strings.Contains(strings.ToLower(s[lo:hi]), word)
}
