package token

import (
	"regexp"
	"strings"
)

// Kind identifies the producer that resolves a placeholder.
type Kind string

const (
	KindComponent Kind = "component"
	KindModule    Kind = "module"
	KindModules   Kind = "modules"
	KindHead      Kind = "head"

	// KindPlaceholder is used when a registration does not name a kind.
	// It never has a producer and always resolves to an empty fragment.
	KindPlaceholder Kind = "placeholder"
)

// Normalize lower-cases a kind and drops every character outside [a-z0-9],
// so a kind never contains the '_' that separates it from the name in a
// token. A kind left empty becomes KindPlaceholder.
func Normalize(kind Kind) Kind {
	k := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return -1
	}, string(kind))
	if k == "" {
		return KindPlaceholder
	}
	return Kind(k)
}

// NormalizeName lower-cases and trims a producer or position name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Encode returns the placeholder token for (kind, name).
func Encode(kind Kind, name string) string {
	k := strings.ToUpper(string(Normalize(kind)))
	n := strings.ToUpper(NormalizeName(name))

	var b strings.Builder
	b.Grow(len(k) + len(n) + 3)
	b.WriteByte('{')
	b.WriteString(k)
	b.WriteByte('_')
	b.WriteString(n)
	b.WriteByte('}')
	return b.String()
}

var pattern = regexp.MustCompile(`\{[A-Z0-9]+_[A-Z0-9_.\-]*\}`)

// Scan returns the distinct token-shaped markers in text, in order of first
// appearance. Resolution does not depend on it; it exists to detect leftovers.
func Scan(text string) []string {
	matches := pattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
