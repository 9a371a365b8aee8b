package engine

import (
	"context"
	"fmt"

	"github.com/faciam-dev/gadmin/internal/errs"
	"github.com/faciam-dev/gadmin/internal/schema"
)

// SchemaLoader resolves model names to schemas. The resolver needs it for
// the related entity of a relationship, and nothing more (through hops are
// expressed purely over their pivot tables).
type SchemaLoader interface {
	Load(ctx context.Context, model, connection string) (*schema.Schema, error)
}

// Resolver turns relationship definitions into executable QuerySpecs.
type Resolver struct {
	Schemas SchemaLoader
}

// Resolve builds the QuerySpec selecting the rows related to parentID
// through the named relationship of parent, along with the related model's
// schema. Resolution order: an explicit relationship entry wins; otherwise
// a details descriptor with a matching model name is treated as the plain
// foreign-key one-to-many fallback.
func (r *Resolver) Resolve(ctx context.Context, parent *schema.Schema, name string, parentID any) (*QuerySpec, *schema.Schema, error) {
	if rel, ok := parent.Relationship(name); ok {
		if err := rel.Validate(parent.Model); err != nil {
			return nil, nil, err
		}
		related, err := r.Schemas.Load(ctx, rel.Model, parent.Connection)
		if err != nil {
			return nil, nil, err
		}
		spec, err := specFor(rel, related, parentID)
		if err != nil {
			return nil, nil, err
		}
		return spec, related, nil
	}
	if d, ok := parent.DetailFor(name); ok {
		related, err := r.Schemas.Load(ctx, d.Model, parent.Connection)
		if err != nil {
			return nil, nil, err
		}
		spec := &QuerySpec{
			Table:      related.Table,
			PrimaryKey: related.PK(),
			Where:      fmt.Sprintf("%s = :parent_id", d.Key(parent.Model)),
			Params:     map[string]any{"parent_id": parentID},
		}
		return spec, related, nil
	}
	return nil, nil, errs.NotFound("relationship", name)
}

// specFor builds the constraint for an explicit relationship definition.
//
// Pivot chains are expressed as IN-subqueries over the related table's
// primary key rather than joins: membership semantics make the result
// distinct per related row by construction, which is exactly the dedup a
// through-relationship needs when several through paths reach the same row.
// Plain foreign-key fetches stay undeduplicated; they cannot duplicate.
func specFor(rel *schema.Relationship, related *schema.Schema, parentID any) (*QuerySpec, error) {
	pk := related.PK()
	switch rel.Type {
	case schema.RelationForeignKey:
		return &QuerySpec{
			Table:      related.Table,
			PrimaryKey: pk,
			Where:      fmt.Sprintf("%s = :parent_id", rel.ForeignKey),
			Params:     map[string]any{"parent_id": parentID},
		}, nil
	case schema.RelationManyToMany:
		return &QuerySpec{
			Table:      related.Table,
			PrimaryKey: pk,
			Where: fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s = :parent_id)",
				pk, rel.RelatedKey, rel.PivotTable, rel.ForeignKey),
			Params: map[string]any{"parent_id": parentID},
		}, nil
	case schema.RelationManyToManyThrough:
		return &QuerySpec{
			Table:      related.Table,
			PrimaryKey: pk,
			Where: fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s IN (SELECT %s FROM %s WHERE %s = :parent_id))",
				pk,
				rel.SecondRelatedKey, rel.SecondPivotTable, rel.SecondForeignKey,
				rel.FirstRelatedKey, rel.FirstPivotTable, rel.FirstForeignKey),
			Params: map[string]any{"parent_id": parentID},
		}, nil
	default:
		return nil, errs.Configf(related.Model, "relationship %q: unknown type %q", rel.Name, rel.Type)
	}
}
