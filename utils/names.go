package utils

import (
	"strings"
	"unicode"

	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
	"golang.org/x/text/unicode/norm"
)

// NameKey folds a display name for comparison: "  Nguyễn  Văn A " and
// "nguyen van a" produce the same key.
func NameKey(name string) string {
	folded := unidecode.Unidecode(norm.NFC.String(name))
	folded = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// NormalizePhone keeps digits and a leading plus sign.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LooksLikePhone reports whether a free-text name is really a phone number.
func LooksLikePhone(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 8 && digits <= 15
}

// ArchiveKey builds the object key of a completed match snapshot.
func ArchiveKey(clubName, day, matchCode string) string {
	club := slug.Make(clubName)
	if club == "" {
		club = "club"
	}
	return "matches/" + club + "/" + day + "/" + matchCode + ".json"
}
