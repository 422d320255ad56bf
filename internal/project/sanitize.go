package project

import "strings"

// MaxNameLength caps canonical names so a project directory name stays below
// the usual 255-byte NAME_MAX.
const MaxNameLength = 200

// Sanitize maps arbitrary input to a canonical project name: every rune outside
// [A-Za-z0-9] becomes '-', letters are lowercased, and the result is cut at
// MaxNameLength bytes. Invalid UTF-8 bytes map to one '-' each.
//
// The output only contains [a-z0-9-], so Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(min(len(s), MaxNameLength))
	for _, r := range s {
		if b.Len() >= MaxNameLength {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// ValidName reports whether name is canonical and usable as an identifier:
// non-empty, unchanged by Sanitize, and holding at least one letter or digit.
// A name made only of hyphens came from input with no usable characters and is
// too ambiguous to create a project under.
func ValidName(name string) bool {
	if name == "" || Sanitize(name) != name {
		return false
	}
	return strings.Trim(name, "-") != ""
}
