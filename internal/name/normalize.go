// Package name folds display names into the canonical comparison keys
// used for artist and album identity.
package name

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// stripMarks decomposes to NFD, removes combining marks (so ü -> u,
// å -> a), and recomposes.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// asciiFold maps letters that are not combining-mark decompositions and
// so survive stripMarks untouched.
var asciiFold = strings.NewReplacer(
	"æ", "ae",
	"ǣ", "ae",
	"ø", "o",
	"œ", "oe",
	"ß", "ss",
	"đ", "d",
	"ð", "d",
	"þ", "th",
	"ł", "l",
	"ħ", "h",
	"ı", "i",
	"ĸ", "k",
	"ŋ", "n",
	"ŧ", "t",
)

// Normalize folds a raw display name to its canonical comparison key:
// trimmed, NUL-stripped, whitespace-collapsed, diacritic-folded,
// casefolded. Two names with equal keys are the same entity.
func Normalize(raw string) string {
	s := Clean(raw)
	s = strings.ToLower(s)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	return asciiFold.Replace(s)
}

// Clean trims a raw tag value, strips embedded NUL bytes and collapses
// internal whitespace runs to single spaces. Display names are stored
// cleaned but otherwise verbatim.
func Clean(raw string) string {
	s := strings.ReplaceAll(raw, "\x00", "")
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}
