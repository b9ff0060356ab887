package cypher

import (
	"strings"
	"unicode"
)

// QuoteName returns name unchanged when it is a plain identifier and wraps it
// in backticks otherwise, doubling any embedded backtick. Names already in
// backticks are returned as is.
func QuoteName(name string) string {
	if IsIdentifier(name) || isBackticked(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// IsIdentifier reports whether name can appear unquoted as a label,
// relationship type or property key.
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

func isBackticked(name string) bool {
	if len(name) < 3 || name[0] != '`' || name[len(name)-1] != '`' {
		return false
	}
	inner := name[1 : len(name)-1]
	return !strings.Contains(strings.ReplaceAll(inner, "``", ""), "`")
}
