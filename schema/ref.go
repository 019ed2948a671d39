package schema

import "strings"

// DefsPrefix is the JSON pointer prefix of definitions in a root schema.
const DefsPrefix = "#/$defs/"

var (
	refEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
	refUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// EscapeRef escapes a type id for use as a JSON pointer token.
func EscapeRef(r string) string {
	return refEscaper.Replace(r)
}

// UnescapeRef reverses EscapeRef.
func UnescapeRef(e string) string {
	return refUnescaper.Replace(e)
}

// Ref returns the $ref value pointing at the definition of typeName.
func Ref(typeName string) string {
	return DefsPrefix + EscapeRef(typeName)
}

// DefName returns the type id a $ref produced by Ref points at, and false
// if ref does not point into $defs.
func DefName(ref string) (string, bool) {
	if !strings.HasPrefix(ref, DefsPrefix) {
		return "", false
	}
	return UnescapeRef(ref[len(DefsPrefix):]), true
}
