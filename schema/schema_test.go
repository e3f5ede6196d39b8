package schema

import "testing"

func TestParseFieldTypeModifiers(t *testing.T) {
	cases := map[string]FieldType{
		"string!":        {Base: "string", Required: true},
		"int?":           {Base: "int"},
		"string[]":       {Base: "string", Array: true},
		"decimal(10,2)#": {Base: "decimal", Params: []string{"10", "2"}, Index: IndexBTree},
		"varchar(255)":   {Base: "varchar", Params: []string{"255"}},
	}
	for in, want := range cases {
		got, err := ParseFieldType(in)
		if err != nil {
			t.Fatalf("ParseFieldType(%q): %v", in, err)
		}
		if got.Base != want.Base || got.Required != want.Required || got.Array != want.Array || got.Index != want.Index {
			t.Fatalf("ParseFieldType(%q) = %+v, want %+v", in, got, want)
		}
	}
}

func TestParseFieldTypeDefaultPreservesRawText(t *testing.T) {
	ft, err := ParseFieldType(`string="hello, world"`)
	if err != nil {
		t.Fatal(err)
	}
	if !ft.HasDefault || ft.Default != `"hello, world"` {
		t.Fatalf("expected default to preserve quotes, got %q", ft.Default)
	}
}

func TestUniqueVsBTreeIndex(t *testing.T) {
	single, err := ParseFieldType("string#")
	if err != nil {
		t.Fatal(err)
	}
	if single.Index != IndexBTree {
		t.Fatalf("expected bare # to be btree, got %v", single.Index)
	}
	double, err := ParseFieldType("string##")
	if err != nil {
		t.Fatal(err)
	}
	if double.Index != IndexUnique {
		t.Fatalf("expected ## to be unique, got %v", double.Index)
	}
}

func TestParseRelationForward(t *testing.T) {
	rel, err := ParseRelation("author", "-> User.posts[]")
	if err != nil {
		t.Fatal(err)
	}
	if rel.Direction != DirForward || rel.TargetType != "User" || rel.NamedField != "posts" || !rel.Many {
		t.Fatalf("unexpected relation: %+v", rel)
	}
}

func TestParseRelationFuzzyBackward(t *testing.T) {
	rel, err := ParseRelation("duplicateOf", "<~ Post.duplicates")
	if err != nil {
		t.Fatal(err)
	}
	if !rel.Direction.Fuzzy() || rel.Direction.Forward() {
		t.Fatalf("expected fuzzy backward relation, got %+v", rel)
	}
}

const samplePostsSchema = `
Type User {
  name: string!
  email: email!
  posts: <- Post.author[]
}

Type Post {
  title: string!
  body: text?
  views: int = 0
  author: -> User.posts
}
`

func TestParseSchemaAndValidate(t *testing.T) {
	g, err := ParseSchema(samplePostsSchema)
	if err != nil {
		t.Fatalf("ParseSchema: %v", err)
	}
	if len(g.Types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(g.Types))
	}
	errs := Validate(g)
	if len(errs) != 0 {
		t.Fatalf("unexpected validation errors: %v", errs)
	}

	post := g.Types["Post"]
	ft := post.Fields["views"]
	if ft.Base != "int" || !ft.HasDefault || ft.Default != "0" {
		t.Fatalf("unexpected views field: %+v", ft)
	}
	rel := post.Relations["author"]
	if rel.TargetType != "User" || rel.NamedField != "posts" {
		t.Fatalf("unexpected author relation: %+v", rel)
	}
}

func TestValidateNamedErrorCodes(t *testing.T) {
	if errs := Validate(NewGraph()); len(errs) != 1 || errs[0].Code != CodeEmptySchema {
		t.Fatalf("expected EMPTY_SCHEMA, got %v", errs)
	}

	bad, err := ParseSchema("Type lowercase {\n  x: string!\n}\n")
	if err != nil {
		t.Fatal(err)
	}
	errs := Validate(bad)
	found := false
	for _, e := range errs {
		if e.Code == CodeInvalidTypeName {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected INVALID_TYPE_NAME, got %v", errs)
	}

	dollar, err := ParseSchema("Type Post {\n  $internal: string!\n}\n")
	if err != nil {
		t.Fatal(err)
	}
	errs = Validate(dollar)
	found = false
	for _, e := range errs {
		if e.Code == CodeReservedFieldName {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected RESERVED_FIELD_NAME, got %v", errs)
	}

	missingTarget, err := ParseSchema("Type Post {\n  author: -> Ghost.posts\n}\n")
	if err != nil {
		t.Fatal(err)
	}
	errs = Validate(missingTarget)
	found = false
	for _, e := range errs {
		if e.Code == CodeMissingTargetType {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected MISSING_TARGET_TYPE, got %v", errs)
	}
}

func TestResolveExtends(t *testing.T) {
	src := `
Type Content {
  title: string!
}

Type Article extends Content {
  body: markdown!
}
`
	g, err := ParseSchema(src)
	if err != nil {
		t.Fatal(err)
	}
	fields, err := g.Resolve("Article")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fields["title"]; !ok {
		t.Fatal("expected inherited field 'title'")
	}
	if _, ok := fields["body"]; !ok {
		t.Fatal("expected own field 'body'")
	}
}

func TestMapFieldType(t *testing.T) {
	m := MapFieldType(FieldType{Base: "decimal", Params: []string{"10", "2"}})
	if m.LogicalType != PTDecimal || m.Precision != 10 || m.Scale != 2 {
		t.Fatalf("unexpected decimal mapping: %+v", m)
	}
	def := MapFieldType(FieldType{Base: "decimal"})
	if def.Precision != 18 || def.Scale != 2 {
		t.Fatalf("expected default (18,2), got %+v", def)
	}
	if MapFieldType(FieldType{Base: "int"}).LogicalType != PTInt64 {
		t.Fatal("int should map to INT64")
	}
	if MapFieldType(FieldType{Base: "datetime"}).LogicalType != PTTimestampMillis {
		t.Fatal("datetime should map to TIMESTAMP_MILLIS")
	}
	arr := MapFieldType(FieldType{Base: "string", Array: true})
	if !arr.Repeated {
		t.Fatal("array field should be Repeated")
	}
}

func TestInferFromSamples(t *testing.T) {
	samples := []map[string]any{
		{"id": "1", "age": int64(30)},
		{"id": "2", "age": 25.5},
	}
	inferred := InferFromSamples(samples)
	if inferred["id"].Base != "string" {
		t.Fatalf("expected id to infer string, got %v", inferred["id"].Base)
	}
	if inferred["age"].Base != "number" {
		t.Fatalf("expected age to widen to number, got %v", inferred["age"].Base)
	}
	if !inferred["id"].Required {
		t.Fatal("id present in all samples should be required")
	}
}
