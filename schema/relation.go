package schema

import (
	"fmt"
	"strings"
)

var directionTokens = []Direction{DirForward, DirBackward, DirForwardFuzzy, DirBackwardFuzzy}

// LooksLikeRelation reports whether a raw field value begins with one of
// the four relation arrows, distinguishing relation fields from scalar
// field-type expressions while parsing a type body.
func LooksLikeRelation(s string) bool {
	s = strings.TrimSpace(s)
	for _, d := range directionTokens {
		if strings.HasPrefix(s, string(d)) {
			return true
		}
	}
	return false
}

// ParseRelation parses: direction ws TypeName ('.' fieldName ('[]')?)?
func ParseRelation(fieldName, s string) (Relation, error) {
	s = strings.TrimSpace(s)
	var dir Direction
	for _, d := range directionTokens {
		if strings.HasPrefix(s, string(d)) {
			dir = d
			break
		}
	}
	if dir == "" {
		return Relation{}, fmt.Errorf("schema: %q is not a relation expression", s)
	}
	rest := strings.TrimSpace(s[len(dir):])
	if rest == "" {
		return Relation{}, fmt.Errorf("schema: relation %q missing target type", s)
	}

	targetType := rest
	namedField := ""
	many := false
	if idx := strings.IndexByte(rest, '.'); idx >= 0 {
		targetType = rest[:idx]
		namedField = rest[idx+1:]
		if strings.HasSuffix(namedField, "[]") {
			many = true
			namedField = strings.TrimSuffix(namedField, "[]")
		}
	}
	targetType = strings.TrimSpace(targetType)
	namedField = strings.TrimSpace(namedField)
	if targetType == "" {
		return Relation{}, fmt.Errorf("schema: relation %q missing target type", s)
	}

	return Relation{
		FieldName:  fieldName,
		Direction:  dir,
		TargetType: targetType,
		NamedField: namedField,
		Many:       many,
	}, nil
}

// DefaultReverseName derives a reverse relation name from a predicate using
// the naive "add s" pluralization rule (§9 Open Questions: richer
// English-aware pluralization is out of scope unless an explicit reverse
// field is supplied).
func DefaultReverseName(predicate string) string {
	if strings.HasSuffix(predicate, "s") {
		return predicate
	}
	return predicate + "s"
}
