package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/faciam-dev/goquent/orm/query"

	"github.com/faciam-dev/gadmin/internal/errs"
	"github.com/faciam-dev/gadmin/internal/metrics"
	"github.com/faciam-dev/gadmin/internal/schema"
	"github.com/faciam-dev/gadmin/internal/storage"
)

const (
	// DefaultPageSize applies when the caller sends none.
	DefaultPageSize = 25
	// MaxPageSize bounds response size; larger requests are clamped, not
	// rejected, and the response reports the clamped value.
	MaxPageSize = 1000
)

// Sort is one ordering term.
type Sort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// Params are the caller-supplied tabular query parameters. Page is 1-based.
type Params struct {
	Page     int
	PageSize int
	Sorts    []Sort
	Filters  map[string]any
	Search   string
}

// Result is one page of rows plus pagination metadata. Total counts every
// row matching the constraints, ignoring limit/offset.
type Result struct {
	Rows     []map[string]any `json:"rows"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
}

// Engine is the generic paginated/sortable/filterable/searchable data
// provider. Sortable, filterable and searchable whitelists are derived from
// the (context-filtered) schema it is handed.
type Engine struct {
	Conns *storage.Registry
}

// Query runs the tabular query described by params over the row source in
// spec (or the schema's own table when spec is nil).
func (e *Engine) Query(ctx context.Context, s *schema.Schema, spec *QuerySpec, p Params) (*Result, error) {
	if spec == nil {
		spec = TableSpec(s.Table, s.PK())
	}
	conn, err := e.Conns.Get(s.Connection)
	if err != nil {
		return nil, err
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	count := query.New(conn.DB, spec.Table, conn.Dialect).WithContext(ctx)
	if err := applyConstraints(count, s, spec, p); err != nil {
		return nil, err
	}
	total, err := count.Count("*")
	if err != nil {
		return nil, errs.Storage("count "+s.Model, err)
	}

	q := query.New(conn.DB, spec.Table, conn.Dialect).WithContext(ctx)
	if cols := selectColumns(s, spec); len(cols) > 0 {
		q.Select(cols...)
	}
	if err := applyConstraints(q, s, spec, p); err != nil {
		return nil, err
	}
	if err := applySorts(q, s, p.Sorts); err != nil {
		return nil, err
	}
	q.Limit(size).Offset((page - 1) * size)

	sqlStr, args, err := q.Build()
	if err != nil {
		return nil, errs.Storage("build "+s.Model, err)
	}
	rows, err := conn.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errs.Storage("query "+s.Model, err)
	}
	defer rows.Close()
	recs, err := storage.ScanRows(rows)
	if err != nil {
		return nil, errs.Storage("scan "+s.Model, err)
	}

	metrics.Queries.WithLabelValues(s.Model).Inc()
	return &Result{Rows: recs, Total: int(total), Page: page, PageSize: size}, nil
}

// selectColumns returns the projection: the primary key plus every field of
// the filtered schema. An empty field set (meta view or schemaless source)
// leaves the builder's default projection in place.
func selectColumns(s *schema.Schema, spec *QuerySpec) []string {
	if s.Fields.Len() == 0 {
		return nil
	}
	cols := make([]string, 0, s.Fields.Len()+1)
	if _, ok := s.Fields.Get(spec.PrimaryKey); !ok {
		cols = append(cols, spec.PrimaryKey)
	}
	cols = append(cols, s.Fields.Names()...)
	return cols
}

// applyConstraints adds the relationship constraint, soft-delete scope,
// per-field filters and the free-text search clause. It is applied to both
// the rows query and the count query so the two always agree.
func applyConstraints(q *query.Query, s *schema.Schema, spec *QuerySpec, p Params) error {
	if spec.Where != "" {
		q.WhereRaw(spec.Where, spec.Params)
	}
	if s.SoftDelete {
		q.WhereRaw("deleted_at IS NULL", nil)
	}
	if err := applyFilters(q, s, p.Filters); err != nil {
		return err
	}
	applySearch(q, s, p.Search)
	return nil
}

// applyFilters AND-s one comparison per filter entry. Keys that name no
// schema field at all are ignored (forward-compatible client noise); keys
// that exist but are not marked filterable are a ValidationError; silently
// dropping a filter the caller believes is active would return wrong data.
func applyFilters(q *query.Query, s *schema.Schema, filters map[string]any) error {
	for name, val := range filters {
		def, ok := s.Fields.Get(name)
		if !ok {
			continue
		}
		if !def.Filterable {
			return errs.Validationf(name, "field is not filterable")
		}
		switch def.FilterType {
		case "like":
			q.WhereRaw(fmt.Sprintf("LOWER(%s) LIKE :flt_%s", name, name),
				map[string]any{"flt_" + name: "%" + strings.ToLower(fmt.Sprint(val)) + "%"})
		case "in":
			vals, ok := val.([]any)
			if !ok {
				q.Where(name, val)
				continue
			}
			q.WhereIn(name, vals)
		case "range":
			bounds, ok := val.(map[string]any)
			if !ok {
				return errs.Validationf(name, "range filter expects {min, max}")
			}
			if min, ok := bounds["min"]; ok && min != nil {
				q.Where(name, ">=", min)
			}
			if max, ok := bounds["max"]; ok && max != nil {
				q.Where(name, "<=", max)
			}
		default:
			q.Where(name, val)
		}
	}
	return nil
}

// applySearch builds the single OR-group over the schema's searchable
// fields. Textual fields match case-insensitively with LIKE; non-textual
// searchable fields degrade to exact match. A schema with no searchable
// fields makes search a no-op, never an error.
func applySearch(q *query.Query, s *schema.Schema, term string) {
	if term == "" {
		return
	}
	var clauses []string
	params := map[string]any{}
	i := 0
	s.Fields.Each(func(name string, def *schema.Field) {
		if !def.Searchable {
			return
		}
		p := fmt.Sprintf("srch_%d", i)
		i++
		if def.Type.Textual() {
			clauses = append(clauses, fmt.Sprintf("LOWER(%s) LIKE :%s", name, p))
			params[p] = "%" + strings.ToLower(term) + "%"
		} else {
			clauses = append(clauses, fmt.Sprintf("%s = :%s", name, p))
			params[p] = term
		}
	})
	if len(clauses) == 0 {
		return
	}
	q.WhereRaw("("+strings.Join(clauses, " OR ")+")", params)
}

// applySorts validates directions and the sortable whitelist. Unknown field
// names are ignored; known-but-unsortable fields are a ValidationError.
func applySorts(q *query.Query, s *schema.Schema, sorts []Sort) error {
	for _, so := range sorts {
		def, ok := s.Fields.Get(so.Field)
		if !ok {
			continue
		}
		if !def.Sortable {
			return errs.Validationf(so.Field, "field is not sortable")
		}
		dir := strings.ToLower(so.Direction)
		if dir == "" {
			dir = "asc"
		}
		if dir != "asc" && dir != "desc" {
			return errs.Validationf(so.Field, "invalid sort direction %q", so.Direction)
		}
		q.OrderBy(so.Field, dir)
	}
	return nil
}
