package util

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameBytes bounds the stored resume name so object keys stay short.
const MaxFileNameBytes = 128

// ErrInvalidFileName is returned for empty or traversal-looking upload names.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName turns an uploaded resume name into a single safe key
// segment. Separators and control characters become underscores, and long
// names are cut from the front so the extension survives.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if strings.Trim(s, "_") == "" {
		return "", ErrInvalidFileName
	}
	for len(s) > MaxFileNameBytes {
		_, size := utf8.DecodeRuneInString(s)
		s = s[size:]
	}
	return s, nil
}
