package schema

// Filtered is the result of a context filter. Schema carries the merged
// field set; for multi-context requests ByContext retains the individual
// per-context reductions.
type Filtered struct {
	Schema    *Schema
	ByContext map[Context]*Schema
}

// Filter reduces a schema to the fields and actions visible in the
// requested contexts. It is a pure function of its inputs: no I/O, and the
// source schema is never mutated.
//
// No contexts: the full schema is returned unchanged (internal use only;
// it may expose fields without an explicit showIn).
// One context: fields whose showIn contains the token, actions likewise.
// Several contexts: the union of the single-context results in request
// order. Every reduction shares the source document's field definitions,
// so a name seen in more than one context is always the same definition
// and the first occurrence decides the merge order.
func Filter(s *Schema, contexts []Context) (*Filtered, error) {
	if len(contexts) == 0 {
		return &Filtered{Schema: s}, nil
	}
	if len(contexts) == 1 {
		return &Filtered{Schema: filterOne(s, contexts[0])}, nil
	}

	by := make(map[Context]*Schema, len(contexts))
	merged := metaOf(s)
	for _, c := range contexts {
		one, ok := by[c]
		if !ok {
			one = filterOne(s, c)
			by[c] = one
		}
		one.Fields.Each(func(name string, def *Field) {
			if _, ok := merged.Fields.Get(name); !ok {
				merged.Fields.Set(name, def)
			}
		})
		for _, a := range one.Actions {
			if _, ok := merged.ActionByKey(a.Key); !ok {
				merged.Actions = append(merged.Actions, a)
			}
		}
	}
	return &Filtered{Schema: merged, ByContext: by}, nil
}

// filterOne computes the reduction for a single context token.
func filterOne(s *Schema, c Context) *Schema {
	out := metaOf(s)
	if c == ContextMeta {
		// Metadata only. Fields stays an empty, non-nil map so callers can
		// tell "meta view" apart from "schema defines no fields".
		return out
	}
	s.Fields.Each(func(name string, def *Field) {
		if def.ShownIn(c) {
			out.Fields.Set(name, def)
		}
	})
	for _, a := range s.Actions {
		if a.ShownIn(c) {
			out.Actions = append(out.Actions, a)
		}
	}
	return out
}

// metaOf copies the schema metadata with an empty field/action set.
func metaOf(s *Schema) *Schema {
	return &Schema{
		Model:         s.Model,
		Table:         s.Table,
		PrimaryKey:    s.PrimaryKey,
		Connection:    s.Connection,
		Timestamps:    s.Timestamps,
		SoftDelete:    s.SoftDelete,
		Title:         s.Title,
		Fields:        NewFields(),
		Relationships: s.Relationships,
		Details:       s.Details,
		Permissions:   s.Permissions,
	}
}
