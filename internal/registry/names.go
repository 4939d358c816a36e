package registry

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName converts name to NFC and collapses runs of whitespace, so
// names typed with combining accents compare equal to precomposed ones.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}

// DisplayName title-cases names that arrive entirely in upper case, as
// regulator feeds usually publish them. Mixed-case names are left alone.
func DisplayName(name string) string {
	name = NormalizeName(name)
	if !isShouting(name) {
		return name
	}
	return cases.Title(language.Spanish).String(name)
}

func isShouting(s string) bool {
	letters := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.IsLower(r) {
			return false
		}
		letters++
	}
	return letters > 1
}
