package utils

import (
	"strconv"
	"unicode/utf8"
)

// StrOrEmpty renders a nullable string as a table cell.
func StrOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// IntOrEmpty renders a nullable int as a table cell.
func IntOrEmpty(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

// Truncate keeps at most n characters, replacing the last one with "…" when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "…"
}
