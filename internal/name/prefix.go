package name

import "regexp"

var prefixRe = regexp.MustCompile(`(?i)^(The|A|An)\s+(\S.*)$`)

// SplitPrefix separates a leading article ("The"/"A"/"An") from a display
// name. Only the base participates in key computation, so "The Artist"
// and "Artist" resolve to the same entity. The prefix keeps the casing
// it arrived with.
func SplitPrefix(raw string) (prefix, base string) {
	s := Clean(raw)
	if m := prefixRe.FindStringSubmatch(s); m != nil {
		return m[1], m[2]
	}
	return "", s
}
