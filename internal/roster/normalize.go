package roster

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Clean trims a raw ingredient name, collapses inner whitespace to single
// spaces, and puts it in NFC. It is the form that gets displayed and stored.
func Clean(raw string) string {
	return norm.NFC.String(strings.Join(strings.Fields(raw), " "))
}

// Normalize returns the key two names must share to count as the same
// ingredient: the cleaned name, case folded.
func Normalize(raw string) string {
	// A Caser is stateful, so each call gets its own.
	return cases.Fold().String(Clean(raw))
}
