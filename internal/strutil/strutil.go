package strutil

import (
	"strings"
	"unicode/utf8"
)

// TruncateUTF8 returns the longest prefix of s that is at most maxBytes
// bytes and does not split a multi-byte UTF-8 character.
func TruncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}

// TruncateRunes cuts s to at most maxRunes characters, appending an
// ellipsis when anything was removed.
func TruncateRunes(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// SplitUTF8 splits s into chunks of at most maxBytes bytes each, preferring
// to break at newlines, then spaces, and never inside a multi-byte
// character. An empty input yields no chunks.
func SplitUTF8(s string, maxBytes int) []string {
	if maxBytes <= 0 || s == "" {
		return nil
	}
	var out []string
	for len(s) > maxBytes {
		chunk := TruncateUTF8(s, maxBytes)
		if i := strings.LastIndexByte(chunk, '\n'); i > maxBytes/2 {
			chunk = chunk[:i+1]
		} else if i := strings.LastIndexByte(chunk, ' '); i > maxBytes/2 {
			chunk = chunk[:i+1]
		}
		out = append(out, strings.TrimRight(chunk, " \n"))
		s = s[len(chunk):]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
