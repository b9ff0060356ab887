package cypher

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Literal.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Literal is a typed value ready to be embedded in query text.
// The zero value is null.
type Literal struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// Null returns the null literal.
func Null() Literal { return Literal{} }

// Int returns an integer literal.
func Int(v int64) Literal { return Literal{kind: KindInteger, i: v} }

// Float returns a float literal. NaN and infinities have no literal form and
// are encoded as strings.
func Float(v float64) Literal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Str(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return Literal{kind: KindFloat, f: v}
}

// Str returns a string literal holding s unescaped.
func Str(s string) Literal { return Literal{kind: KindString, s: s} }

// Kind reports which variant l holds.
func (l Literal) Kind() Kind { return l.kind }

// IntValue returns the integer value; only meaningful for KindInteger.
func (l Literal) IntValue() int64 { return l.i }

// FloatValue returns the float value; only meaningful for KindFloat.
func (l Literal) FloatValue() float64 { return l.f }

// StringValue returns the unescaped text; only meaningful for KindString.
func (l Literal) StringValue() string { return l.s }

// String renders the literal as query text.
func (l Literal) String() string {
	switch l.kind {
	case KindInteger:
		return strconv.FormatInt(l.i, 10)
	case KindFloat:
		return formatFloat(l.f)
	case KindString:
		return Quote(l.s)
	default:
		return "null"
	}
}

// floatPattern accepts plain decimal notation with an optional exponent.
// The integer part must not carry redundant leading zeros.
var floatPattern = regexp.MustCompile(`^-?(?:(?:0|[1-9][0-9]*)(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

// Encode converts a cell into a literal. It never fails.
func Encode(cell string) Literal {
	if cell == "" {
		return Null()
	}
	if isCanonicalInteger(cell) {
		if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return Int(v)
		}
		return Str(cell)
	}
	if strings.ContainsAny(cell, ".eE") && floatPattern.MatchString(cell) {
		v, err := strconv.ParseFloat(cell, 64)
		if err == nil && !math.IsInf(v, 0) {
			return Float(v)
		}
	}
	return Str(cell)
}

// EncodeID converts an identity cell. Non-empty ids are always strings.
func EncodeID(cell string) Literal {
	if cell == "" {
		return Null()
	}
	return Str(cell)
}

func isCanonicalInteger(s string) bool {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return len(digits) == 1 || digits[0] != '0'
}

// formatFloat renders the shortest round-trip form. The result always has a
// fraction or an exponent so it reads back as a float, and the exponent has
// no '+' sign.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	s = strings.Replace(s, "e+", "e", 1)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

var stringEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Quote wraps s in single quotes. Backslashes are doubled and single quotes
// are backslash-escaped; no other byte is altered.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	stringEscaper.WriteString(&b, s) //nolint:errcheck
	b.WriteByte('\'')
	return b.String()
}

// Unquote reverses Quote. It reports false when q is not a well-formed
// single-quoted literal.
func Unquote(q string) (string, bool) {
	if len(q) < 2 || q[0] != '\'' || q[len(q)-1] != '\'' {
		return "", false
	}
	body := q[1 : len(q)-1]
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch c {
		case '\\':
			if i+1 >= len(body) {
				return "", false
			}
			i++
			if body[i] != '\\' && body[i] != '\'' {
				return "", false
			}
			b.WriteByte(body[i])
		case '\'':
			return "", false
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), true
}
