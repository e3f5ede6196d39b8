package schema

// InferFromSamples derives a field-type map by scanning sample documents
// (maps produced from decoded JSON), widening the inferred type whenever
// two samples disagree (§4.B: "validate, infer from sample documents").
// Fields absent from some samples are inferred as optional; fields whose
// observed values conflict in kind fall back to "json" (opaque).
func InferFromSamples(samples []map[string]any) map[string]FieldType {
	type observation struct {
		base      string
		seenCount int
		total     int
		conflict  bool
	}
	obs := map[string]*observation{}

	for i, sample := range samples {
		for k := range sample {
			if _, ok := obs[k]; !ok {
				// Count the i earlier samples, which lacked this field.
				obs[k] = &observation{total: i}
			}
		}
		for k, o := range obs {
			v, present := sample[k]
			o.total++
			if !present {
				continue
			}
			o.seenCount++
			kind := inferKind(v)
			switch {
			case o.base == "":
				o.base = kind
			case o.base == kind:
				// consistent
			case widens(o.base, kind) != "":
				o.base = widens(o.base, kind)
			default:
				o.conflict = true
			}
		}
	}

	out := map[string]FieldType{}
	for k, o := range obs {
		base := o.base
		if o.conflict || base == "" {
			base = "json"
		}
		out[k] = FieldType{
			Base:     base,
			Required: o.seenCount == o.total && o.total > 0,
		}
	}
	return out
}

func inferKind(v any) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case int, int32, int64:
		return "int"
	case float32, float64:
		return "number"
	case string:
		return "string"
	case map[string]any:
		return "json"
	case []any:
		return "json"
	case nil:
		return ""
	default:
		return "json"
	}
}

// widens returns the common base type two observed kinds can both be
// represented by (e.g. int + number -> number), or "" if they are
// incompatible and must fall back to json.
func widens(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if a == b {
		return a
	}
	numeric := map[string]bool{"int": true, "number": true}
	if numeric[a] && numeric[b] {
		return "number"
	}
	return ""
}
