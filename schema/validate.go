package schema

import (
	"fmt"
	"strings"
)

// ValidationError is one named validation failure (§4.B's error codes).
type ValidationError struct {
	Code    string
	Type    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	loc := e.Type
	if e.Field != "" {
		loc += "." + e.Field
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, loc, e.Message)
}

const (
	CodeEmptySchema        = "EMPTY_SCHEMA"
	CodeInvalidTypeName    = "INVALID_TYPE_NAME"
	CodeEmptyType          = "EMPTY_TYPE"
	CodeInvalidFieldType   = "INVALID_FIELD_TYPE"
	CodeMissingTargetType  = "MISSING_TARGET_TYPE"
	CodeMissingReverseField = "MISSING_REVERSE_FIELD"
	CodeReservedFieldName  = "RESERVED_FIELD_NAME"
)

// reservedFieldAllowList lists $-prefixed field names callers may declare
// explicitly (system columns are implicit and never appear here; this set
// is for forward-compatible system extensions).
var reservedFieldAllowList = map[string]bool{}

// Validate checks a parsed Graph against the named rules in §4.B and
// returns every violation found (not just the first), so callers can
// surface a complete error report.
func Validate(g *Graph) []*ValidationError {
	var errs []*ValidationError

	if len(g.Types) == 0 {
		errs = append(errs, &ValidationError{Code: CodeEmptySchema, Message: "schema declares no types"})
		return errs
	}

	for _, name := range g.TypeOrder {
		t := g.Types[name]

		if !isValidTypeName(name) {
			errs = append(errs, &ValidationError{Code: CodeInvalidTypeName, Type: name,
				Message: "type name must start with an uppercase ASCII letter"})
		}

		if len(t.Fields) == 0 && len(t.Relations) == 0 && !t.Abstract {
			errs = append(errs, &ValidationError{Code: CodeEmptyType, Type: name,
				Message: "type declares no fields or relations"})
		}

		for _, fname := range t.FieldOrder {
			if strings.HasPrefix(fname, "$") && !reservedFieldAllowList[fname] {
				errs = append(errs, &ValidationError{Code: CodeReservedFieldName, Type: name, Field: fname,
					Message: "$-prefixed field names are reserved for system columns"})
			}
			ft := t.Fields[fname]
			if !baseTypes[ft.Base] {
				errs = append(errs, &ValidationError{Code: CodeInvalidFieldType, Type: name, Field: fname,
					Message: fmt.Sprintf("unknown base type %q", ft.Base)})
			}
		}

		for _, rname := range t.RelOrder {
			rel := t.Relations[rname]
			if strings.HasPrefix(rname, "$") && !reservedFieldAllowList[rname] {
				errs = append(errs, &ValidationError{Code: CodeReservedFieldName, Type: name, Field: rname,
					Message: "$-prefixed field names are reserved for system columns"})
			}
			target, ok := g.Types[rel.TargetType]
			if !ok {
				errs = append(errs, &ValidationError{Code: CodeMissingTargetType, Type: name, Field: rname,
					Message: fmt.Sprintf("relation targets unknown type %q", rel.TargetType)})
				continue
			}
			if rel.Direction.Forward() {
				// Forward relations must name the reverse field on the target.
				if rel.NamedField == "" {
					errs = append(errs, &ValidationError{Code: CodeMissingReverseField, Type: name, Field: rname,
						Message: fmt.Sprintf("forward relation must name the reverse field on %q", rel.TargetType)})
				}
				_ = target
			} else {
				// Backward relations must name the field on the source (this type).
				if rel.NamedField == "" {
					errs = append(errs, &ValidationError{Code: CodeMissingReverseField, Type: name, Field: rname,
						Message: "backward relation must name the field on the source type"})
				}
			}
		}
	}

	return errs
}

func isValidTypeName(name string) bool {
	if name == "" {
		return false
	}
	c := name[0]
	return c >= 'A' && c <= 'Z'
}
