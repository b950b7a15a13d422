package types

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Capitalize upper-cases the first letter of s and lower-cases the rest:
// "abc insurer" becomes "Abc insurer", "SUKOON" becomes "Sukoon".
func Capitalize(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToTitle(first)) + cases.Lower(language.Und).String(s[size:])
}
