// Package schema parses and validates ParqueDB's field-type DSL (§4.B):
// base types with parametric args, array/index/required/default modifiers,
// and a small relation grammar for directed, possibly-fuzzy edges between
// types. The parsed result is a Graph of TypeNodes and labeled edges.
package schema

import "fmt"

// IndexKind enumerates the index modifiers a field can carry.
type IndexKind string

const (
	IndexNone   IndexKind = ""
	IndexBTree  IndexKind = "btree"
	IndexUnique IndexKind = "unique"
	IndexFTS    IndexKind = "fts"
	IndexVector IndexKind = "vec"
	IndexHash   IndexKind = "hash"
)

// baseTypes is the fixed set of field-type base names recognized by the
// grammar (§4.B).
var baseTypes = map[string]bool{
	"string": true, "int": true, "float": true, "double": true, "number": true,
	"boolean": true, "date": true, "datetime": true, "timestamp": true,
	"uuid": true, "email": true, "url": true, "text": true, "markdown": true,
	"json": true, "binary": true, "decimal": true, "varchar": true,
	"char": true, "vector": true, "enum": true,
}

// FieldType is the parsed form of one field-type string, e.g.
// `decimal(10,2)#!`.
type FieldType struct {
	Base       string
	Params     []string
	Array      bool
	Index      IndexKind
	Required   bool
	HasDefault bool
	// Default preserves the raw literal text, including quotes, exactly
	// as written (§4.B: "Default modifier preserves the raw text").
	Default string
}

func (ft FieldType) String() string {
	s := ft.Base
	if len(ft.Params) > 0 {
		s += "("
		for i, p := range ft.Params {
			if i > 0 {
				s += ","
			}
			s += p
		}
		s += ")"
	}
	if ft.Array {
		s += "[]"
	}
	switch ft.Index {
	case IndexUnique:
		s += "##"
	case IndexBTree:
		s += "#"
	case IndexFTS:
		s += "#fts"
	case IndexVector:
		s += "#vec"
	case IndexHash:
		s += "#hash"
	}
	if ft.Required {
		s += "!"
	}
	if ft.HasDefault {
		s += "=" + ft.Default
	}
	return s
}

// Direction is one of the four relation arrows in §4.B.
type Direction string

const (
	DirForward      Direction = "->"
	DirBackward     Direction = "<-"
	DirForwardFuzzy Direction = "~>"
	DirBackwardFuzzy Direction = "<~"
)

// Fuzzy reports whether the direction denotes a fuzzy-matched relation.
func (d Direction) Fuzzy() bool { return d == DirForwardFuzzy || d == DirBackwardFuzzy }

// Forward reports whether the relation points away from the declaring type.
func (d Direction) Forward() bool { return d == DirForward || d == DirForwardFuzzy }

// Relation is the parsed form of a relation field, e.g. `-> User.posts[]`.
type Relation struct {
	FieldName  string // the field this relation is declared under
	Direction  Direction
	TargetType string
	// NamedField is the field named after '.', which must be the reverse
	// field on the target (forward relations) or the field on the source
	// (backward relations).
	NamedField string
	Many       bool
}

// TypeNode is a parsed schema type: a name, optional inheritance parent,
// declared fields, relations, and index set.
type TypeNode struct {
	Name         string
	URI          string
	NamespaceURI string
	Abstract     bool
	Extends      string // parent type name, "" if none
	Fields       map[string]FieldType
	FieldOrder   []string
	Relations    map[string]Relation
	RelOrder     []string
}

func newTypeNode(name string) *TypeNode {
	return &TypeNode{
		Name:      name,
		Fields:    map[string]FieldType{},
		Relations: map[string]Relation{},
	}
}

func (t *TypeNode) addField(name string, ft FieldType) {
	if _, exists := t.Fields[name]; !exists {
		t.FieldOrder = append(t.FieldOrder, name)
	}
	t.Fields[name] = ft
}

func (t *TypeNode) addRelation(name string, r Relation) {
	if _, exists := t.Relations[name]; !exists {
		t.RelOrder = append(t.RelOrder, name)
	}
	t.Relations[name] = r
}

// ShredFields returns the names of fields eligible for top-level Parquet
// columns: every declared scalar field (relations are stored separately as
// edges, not shredded columns).
func (t *TypeNode) ShredFields() []string {
	return append([]string(nil), t.FieldOrder...)
}

// Graph is a fully parsed and (optionally) validated schema: a set of
// named types plus their relation edges.
type Graph struct {
	Types      map[string]*TypeNode
	TypeOrder  []string
}

// NewGraph returns an empty schema graph.
func NewGraph() *Graph {
	return &Graph{Types: map[string]*TypeNode{}}
}

func (g *Graph) addType(t *TypeNode) {
	if _, exists := g.Types[t.Name]; !exists {
		g.TypeOrder = append(g.TypeOrder, t.Name)
	}
	g.Types[t.Name] = t
}

// Resolve walks a type's $extends chain and returns the effective field
// set: the type's own fields override an ancestor's field of the same
// name, and resolution stops at the first type with no Extends (§9 Design
// Notes: inheritance is structural, not virtual-dispatch).
func (g *Graph) Resolve(typeName string) (map[string]FieldType, error) {
	seen := map[string]bool{}
	chain := []*TypeNode{}
	cur := typeName
	for cur != "" {
		if seen[cur] {
			return nil, fmt.Errorf("schema: cyclic $extends chain at %q", cur)
		}
		seen[cur] = true
		t, ok := g.Types[cur]
		if !ok {
			return nil, fmt.Errorf("schema: unknown type %q in extends chain", cur)
		}
		chain = append(chain, t)
		cur = t.Extends
	}
	out := map[string]FieldType{}
	for i := len(chain) - 1; i >= 0; i-- {
		for name, ft := range chain[i].Fields {
			out[name] = ft
		}
	}
	return out, nil
}
