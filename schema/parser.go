package schema

import (
	"fmt"
	"strings"
)

// ParseSchema parses a schema source document containing one or more type
// declarations:
//
//	[abstract] Type Name [extends Parent] {
//	    field: type-expr
//	    relation: -> Target.reverseField[]
//	}
//
// It returns the raw, unvalidated Graph; call Validate separately so
// callers can decide whether to treat validation errors as fatal.
func ParseSchema(src string) (*Graph, error) {
	g := NewGraph()
	toks := tokenizeSchema(src)
	i := 0
	for i < len(toks) {
		abstract := false
		if toks[i] == "abstract" {
			abstract = true
			i++
		}
		if i >= len(toks) || toks[i] != "Type" {
			return nil, fmt.Errorf("schema: expected 'Type' keyword at token %d (%v)", i, safeTok(toks, i))
		}
		i++
		if i >= len(toks) {
			return nil, fmt.Errorf("schema: expected type name")
		}
		name := toks[i]
		i++
		t := newTypeNode(name)
		t.Abstract = abstract

		if i < len(toks) && toks[i] == "extends" {
			i++
			if i >= len(toks) {
				return nil, fmt.Errorf("schema: expected parent type name after 'extends'")
			}
			t.Extends = toks[i]
			i++
		}

		if i >= len(toks) || toks[i] != "{" {
			return nil, fmt.Errorf("schema: expected '{' to open type %q body", name)
		}
		i++

		for i < len(toks) && toks[i] != "}" {
			fieldName := toks[i]
			i++
			if i >= len(toks) || toks[i] != ":" {
				return nil, fmt.Errorf("schema: expected ':' after field name %q", fieldName)
			}
			i++
			if i >= len(toks) {
				return nil, fmt.Errorf("schema: expected type expression for field %q", fieldName)
			}
			expr := toks[i]
			i++
			if LooksLikeRelation(expr) {
				rel, err := ParseRelation(fieldName, expr)
				if err != nil {
					return nil, err
				}
				t.addRelation(fieldName, rel)
			} else {
				ft, err := ParseFieldType(normalizeFieldExpr(expr))
				if err != nil {
					return nil, fmt.Errorf("schema: field %q: %w", fieldName, err)
				}
				t.addField(fieldName, ft)
			}
		}
		if i >= len(toks) {
			return nil, fmt.Errorf("schema: unterminated type body for %q", name)
		}
		i++ // consume '}'

		g.addType(t)
	}
	return g, nil
}

// normalizeFieldExpr strips insignificant whitespace around the header
// portion of a field-type expression (base/params/modifiers), while
// preserving the default literal's text verbatim after '=' — matching the
// grammar, which has no whitespace in base/params/modifiers but allows an
// arbitrary literal (including internal spaces, for quoted strings) as a
// default.
func normalizeFieldExpr(expr string) string {
	eq := strings.IndexByte(expr, '=')
	if eq < 0 {
		return strings.Join(strings.Fields(expr), "")
	}
	header := strings.Join(strings.Fields(expr[:eq]), "")
	def := strings.TrimLeft(expr[eq+1:], " \t")
	return header + "=" + def
}

func safeTok(toks []string, i int) string {
	if i < len(toks) {
		return toks[i]
	}
	return "<eof>"
}

// tokenizeSchema splits schema source into tokens: identifiers, braces,
// colons, and whole field-type/relation expressions (read to end of line).
func tokenizeSchema(src string) []string {
	var toks []string
	lines := strings.Split(src, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		// A line is either a structural line (contains only identifiers,
		// braces, 'extends', 'abstract', 'Type') or a "name: expr" field
		// declaration. We detect the first ':' outside of the structural
		// keywords to split field name from its expression.
		if line == "{" || line == "}" {
			toks = append(toks, line)
			continue
		}
		if idx := strings.IndexByte(line, ':'); idx >= 0 && !isStructuralLine(line) {
			name := strings.TrimSpace(line[:idx])
			expr := strings.TrimSpace(strings.TrimSuffix(line[idx+1:], ";"))
			toks = append(toks, name, ":", expr)
			continue
		}
		// Structural line: split on whitespace and braces.
		toks = append(toks, splitStructural(line)...)
	}
	return toks
}

func isStructuralLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "abstract", "Type":
		return true
	}
	return false
}

func splitStructural(line string) []string {
	line = strings.ReplaceAll(line, "{", " { ")
	line = strings.ReplaceAll(line, "}", " } ")
	return strings.Fields(line)
}
