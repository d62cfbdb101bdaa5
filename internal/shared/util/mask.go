package util

import "strings"

// MaskRole hides most of a role name for public listings.
// "" -> "***", "A" -> "*", "AB" -> "A*", "Backend" -> "B*****d".
func MaskRole(role string) string {
	r := []rune(strings.TrimSpace(role))
	switch len(r) {
	case 0:
		return "***"
	case 1:
		return "*"
	case 2:
		return string(r[0]) + "*"
	}
	return string(r[0]) + strings.Repeat("*", len(r)-2) + string(r[len(r)-1])
}
