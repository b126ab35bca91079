package categorize

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// ResolveName returns the registry spelling of name. Case, spacing and a
// single doubled or dropped repeated letter ("Shoping", "Food & Dinning")
// resolve to the known name. Anything else, including real words one edit
// away such as "Shipping", is returned trimmed and otherwise unchanged.
func ResolveName(name string, known []string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	key := foldName(name)
	squeezed := squeeze(key)

	for _, k := range known {
		if foldName(k) == key {
			return k
		}
	}
	for _, k := range known {
		kk := foldName(k)
		if squeeze(kk) == squeezed && levenshtein.ComputeDistance(key, kk) == 1 {
			return k
		}
	}
	return name
}

// foldName lower-cases s and collapses runs of whitespace.
func foldName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// squeeze collapses runs of the same rune: "shopping" becomes "shoping".
func squeeze(s string) string {
	var b strings.Builder
	var prev rune = -1
	for _, r := range s {
		if r != prev {
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}
