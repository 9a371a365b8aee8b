package schema

import (
	"regexp"

	"github.com/faciam-dev/gadmin/internal/errs"
)

var (
	modelRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Validate checks the structural invariants of a schema document. Every
// violation is a ConfigError naming the offending key so authoring bugs are
// caught at load time instead of degrading into wrong queries.
func Validate(s *Schema) error {
	if s.Model == "" {
		return errs.Configf("", "missing required key %q", "model")
	}
	if !modelRe.MatchString(s.Model) {
		return errs.Configf(s.Model, "model %q is not a valid identifier", s.Model)
	}
	if s.Table == "" {
		return errs.Configf(s.Model, "missing required key %q", "table")
	}
	if !identRe.MatchString(s.Table) {
		return errs.Configf(s.Model, "table %q is not a valid identifier", s.Table)
	}
	if s.PrimaryKey != "" && !identRe.MatchString(s.PrimaryKey) {
		return errs.Configf(s.Model, "primaryKey %q is not a valid identifier", s.PrimaryKey)
	}
	if s.Fields.Len() == 0 {
		return errs.Configf(s.Model, "schema has no fields")
	}
	var ferr error
	s.Fields.Each(func(name string, def *Field) {
		if ferr != nil {
			return
		}
		if !identRe.MatchString(name) {
			ferr = errs.Configf(s.Model, "field %q is not a valid identifier", name)
			return
		}
		if !def.Type.known() {
			ferr = errs.Configf(s.Model, "field %q has unknown type %q", name, def.Type)
			return
		}
		switch def.FilterType {
		case "", "eq", "like", "in", "range":
		default:
			ferr = errs.Configf(s.Model, "field %q has unknown filter_type %q", name, def.FilterType)
		}
	})
	if ferr != nil {
		return ferr
	}
	for i := range s.Relationships {
		if err := validateRelationship(s.Model, &s.Relationships[i]); err != nil {
			return err
		}
	}
	for i := range s.Details {
		d := &s.Details[i]
		if d.Model == "" {
			return errs.Configf(s.Model, "detail %d: missing required key %q", i, "model")
		}
		if !identRe.MatchString(d.Key(s.Model)) {
			return errs.Configf(s.Model, "detail %q: foreignKey %q is not a valid identifier", d.Model, d.Key(s.Model))
		}
	}
	seen := make(map[string]bool, len(s.Actions))
	for i := range s.Actions {
		a := &s.Actions[i]
		if a.Key == "" {
			return errs.Configf(s.Model, "action %d: missing required key %q", i, "key")
		}
		if seen[a.Key] {
			return errs.Configf(s.Model, "duplicate action key %q", a.Key)
		}
		seen[a.Key] = true
		switch a.Type {
		case ActionFieldUpdate:
			fld := a.TargetField()
			if fld == "" {
				return errs.Configf(s.Model, "action %q: missing required key %q and no field inferable from key", a.Key, "field")
			}
			if _, ok := s.Fields.Get(fld); !ok {
				return errs.Configf(s.Model, "action %q: field %q not defined in schema", a.Key, fld)
			}
		case ActionAPICall:
			if a.URL == "" {
				return errs.Configf(s.Model, "action %q: missing required key %q", a.Key, "url")
			}
		case ActionRoute, ActionModal:
		default:
			return errs.Configf(s.Model, "action %q: unknown type %q", a.Key, a.Type)
		}
	}
	return nil
}

// Validate enforces key completeness per relationship type. An incomplete
// many_to_many or through definition must fail here rather than degrade
// into an unconstrained join at query time.
func (r *Relationship) Validate(model string) error {
	return validateRelationship(model, r)
}

func validateRelationship(model string, r *Relationship) error {
	req := func(key, val string) error {
		if val == "" {
			return errs.Configf(model, "relationship %q: missing required key %q", r.Name, key)
		}
		if !identRe.MatchString(val) {
			return errs.Configf(model, "relationship %q: %s %q is not a valid identifier", r.Name, key, val)
		}
		return nil
	}
	if r.Name == "" {
		return errs.Configf(model, "relationship: missing required key %q", "name")
	}
	if r.Model == "" {
		return errs.Configf(model, "relationship %q: missing required key %q", r.Name, "model")
	}
	switch r.Type {
	case RelationForeignKey:
		return req("foreignKey", r.ForeignKey)
	case RelationManyToMany:
		for _, kv := range [][2]string{
			{"pivotTable", r.PivotTable},
			{"foreignKey", r.ForeignKey},
			{"relatedKey", r.RelatedKey},
		} {
			if err := req(kv[0], kv[1]); err != nil {
				return err
			}
		}
		return nil
	case RelationManyToManyThrough:
		for _, kv := range [][2]string{
			{"through", r.Through},
			{"firstPivotTable", r.FirstPivotTable},
			{"firstForeignKey", r.FirstForeignKey},
			{"firstRelatedKey", r.FirstRelatedKey},
			{"secondPivotTable", r.SecondPivotTable},
			{"secondForeignKey", r.SecondForeignKey},
			{"secondRelatedKey", r.SecondRelatedKey},
		} {
			if err := req(kv[0], kv[1]); err != nil {
				return err
			}
		}
		return nil
	default:
		return errs.Configf(model, "relationship %q: unknown type %q", r.Name, r.Type)
	}
}
