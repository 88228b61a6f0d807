// Package slug derives URL-safe registration link tokens from program names.
//
// A slug is <name>-<suffix>-<token>: the slugified name, an optional slugified
// disambiguator, and a short random token. The token makes accidental
// collision negligible but not impossible; the storage layer's unique
// constraint is the real guarantee, and callers regenerate on conflict.
package slug

import (
	"crypto/rand"
	"strings"
)

const (
	tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	tokenLength   = 6
)

// Slugify lowercases s, collapses runs of non-alphanumerics into single
// hyphens, and strips leading/trailing hyphens.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // swallow leading separators
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// New derives a registration slug from a program name and an optional
// disambiguating suffix, appending a fresh random token.
func New(name, suffix string) string {
	parts := make([]string, 0, 3)
	if s := Slugify(name); s != "" {
		parts = append(parts, s)
	}
	if s := Slugify(suffix); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, token())
	return strings.Join(parts, "-")
}

func token() string {
	buf := make([]byte, tokenLength)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(buf)
}
