package utils

import (
	"strings"
)

// MatchAddress reports whether address contains text, ignoring case.
// An empty text matches nothing.
func MatchAddress(text, address string) bool {
	if text == "" {
		return false
	}
	return strings.Contains(FoldAddress(address), FoldAddress(text))
}

// FoldAddress returns the case-folded form used for matching
func FoldAddress(s string) string {
	return strings.ToLower(s)
}
