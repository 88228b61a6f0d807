package email

import (
	"strings"
	"unicode"
)

// DeriveNameFromEmail guesses first and last name from an email's local part.
// Used when a registration arrives without a full name so participant records
// still carry a displayable name.
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "Participant", ""
	}

	first := capitalize(parts[0])
	last := ""
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

// FullNameFromEmail joins the derived first and last name.
func FullNameFromEmail(email string) string {
	first, last := DeriveNameFromEmail(email)
	if last == "" {
		return first
	}
	return first + " " + last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
