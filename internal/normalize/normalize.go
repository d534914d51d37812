// Package normalize provides text normalization used when matching musicians
// and validating contact data.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinPhoneDigits is the minimum number of digits of a reachable phone number
// (area code plus subscriber number).
const MinPhoneDigits = 10

// PhoneDigits strips every non-digit rune from phone.
func PhoneDigits(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HasValidPhone reports whether phone carries at least MinPhoneDigits digits.
func HasValidPhone(phone string) bool {
	return len(PhoneDigits(phone)) >= MinPhoneDigits
}

// NameKey folds a person name into a comparison key: accents removed, lower
// case, inner whitespace collapsed.
func NameKey(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
