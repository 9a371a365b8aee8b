package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/faciam-dev/goquent/orm/query"

	"github.com/faciam-dev/gadmin/internal/auditlog"
	"github.com/faciam-dev/gadmin/internal/errs"
	"github.com/faciam-dev/gadmin/internal/schema"
	"github.com/faciam-dev/gadmin/internal/storage"
)

// Records provides the single-record CRUD operations the admin layer
// exposes alongside the tabular engine.
type Records struct {
	Conns *storage.Registry
	Audit *auditlog.Recorder
}

// Get fetches one record by primary key.
func (r *Records) Get(ctx context.Context, s *schema.Schema, id any) (map[string]any, error) {
	conn, err := r.Conns.Get(s.Connection)
	if err != nil {
		return nil, err
	}
	q := query.New(conn.DB, s.Table, conn.Dialect).
		Where(s.PK(), id).
		WithContext(ctx)
	if s.SoftDelete {
		q.WhereRaw("deleted_at IS NULL", nil)
	}
	if cols := selectColumns(s, TableSpec(s.Table, s.PK())); len(cols) > 0 {
		q.Select(cols...)
	}
	sqlStr, args, err := q.Build()
	if err != nil {
		return nil, errs.Storage("build "+s.Model, err)
	}
	rows, err := conn.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errs.Storage("get "+s.Model, err)
	}
	defer rows.Close()
	recs, err := storage.ScanRows(rows)
	if err != nil {
		return nil, errs.Storage("scan "+s.Model, err)
	}
	if len(recs) == 0 {
		return nil, errs.NotFound("record", fmt.Sprint(id))
	}
	return recs[0], nil
}

// Create inserts a new record after validating the input against the
// schema: unknown keys, readonly and computed fields are rejected, required
// fields must be present unless they declare a default, and every value is
// coerced to its declared type.
func (r *Records) Create(ctx context.Context, s *schema.Schema, input map[string]any) (int64, error) {
	data, err := buildWriteData(s, input, true)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	if s.Timestamps {
		data["created_at"] = now
		data["updated_at"] = now
	}
	conn, err := r.Conns.Get(s.Connection)
	if err != nil {
		return 0, err
	}
	id, err := query.New(conn.DB, s.Table, conn.Dialect).WithContext(ctx).InsertGetId(data)
	if err != nil {
		return 0, errs.Storage("insert "+s.Model, err)
	}
	r.Audit.Write(ctx, actorFrom(ctx), s.Model, strconv.FormatInt(id, 10), "create", nil, data)
	return id, nil
}

// Update writes the given fields of one record. Missing fields are left
// untouched.
func (r *Records) Update(ctx context.Context, s *schema.Schema, id any, input map[string]any) error {
	old, err := r.Get(ctx, s, id)
	if err != nil {
		return err
	}
	data, err := buildWriteData(s, input, false)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errs.Validationf("", "no writable fields in payload")
	}
	if s.Timestamps {
		data["updated_at"] = time.Now().UTC()
	}
	conn, err := r.Conns.Get(s.Connection)
	if err != nil {
		return err
	}
	q := query.New(conn.DB, s.Table, conn.Dialect).
		Where(s.PK(), id).
		WithContext(ctx)
	if _, err := q.Update(data); err != nil {
		return errs.Storage("update "+s.Model, err)
	}
	r.Audit.Write(ctx, actorFrom(ctx), s.Model, fmt.Sprint(id), "update", old, data)
	return nil
}

// Delete removes one record. Schemas with softDelete set keep the row and
// stamp deleted_at instead.
func (r *Records) Delete(ctx context.Context, s *schema.Schema, id any) error {
	if _, err := r.Get(ctx, s, id); err != nil {
		return err
	}
	conn, err := r.Conns.Get(s.Connection)
	if err != nil {
		return err
	}
	q := query.New(conn.DB, s.Table, conn.Dialect).
		Where(s.PK(), id).
		WithContext(ctx)
	if s.SoftDelete {
		data := map[string]any{"deleted_at": time.Now().UTC()}
		if s.Timestamps {
			data["updated_at"] = time.Now().UTC()
		}
		if _, err := q.Update(data); err != nil {
			return errs.Storage("soft delete "+s.Model, err)
		}
	} else if _, err := q.Delete(); err != nil {
		return errs.Storage("delete "+s.Model, err)
	}
	r.Audit.Write(ctx, actorFrom(ctx), s.Model, fmt.Sprint(id), "delete", nil, nil)
	return nil
}

// buildWriteData validates and coerces input for an insert or update.
func buildWriteData(s *schema.Schema, input map[string]any, creating bool) (map[string]any, error) {
	data := make(map[string]any, len(input))
	for name, val := range input {
		def, ok := s.Fields.Get(name)
		if !ok {
			return nil, errs.Validationf(name, "unknown field")
		}
		if def.Readonly || def.Computed {
			return nil, errs.Validationf(name, "field is not writable")
		}
		cv, err := coerce(def, val)
		if err != nil {
			return nil, err
		}
		data[name] = cv
	}
	if !creating {
		return data, nil
	}
	var verr error
	s.Fields.Each(func(name string, def *schema.Field) {
		if verr != nil {
			return
		}
		if _, ok := data[name]; ok {
			return
		}
		if def.Default != nil {
			cv, err := coerce(def, def.Default)
			if err != nil {
				verr = err
				return
			}
			data[name] = cv
			return
		}
		if def.Required && !def.Computed {
			verr = errs.Validationf(name, "field is required")
		}
	})
	if verr != nil {
		return nil, verr
	}
	return data, nil
}

// coerce converts a JSON-decoded value to the field's storage type.
func coerce(def *schema.Field, v any) (any, error) {
	if v == nil {
		if def.Required {
			return nil, errs.Validationf(def.Name, "field is required")
		}
		return nil, nil
	}
	switch def.Type.Storage() {
	case schema.TypeInteger:
		switch t := v.(type) {
		case int64:
			return t, nil
		case int:
			return int64(t), nil
		case float64:
			return int64(t), nil
		case json.Number:
			if n, err := t.Int64(); err == nil {
				return n, nil
			}
		case string:
			if n, err := strconv.ParseInt(t, 10, 64); err == nil {
				return n, nil
			}
		}
	case schema.TypeFloat, schema.TypeDecimal:
		switch t := v.(type) {
		case float64:
			return t, nil
		case int64:
			return float64(t), nil
		case int:
			return float64(t), nil
		case json.Number:
			if f, err := t.Float64(); err == nil {
				return f, nil
			}
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return f, nil
			}
		}
	case schema.TypeBoolean:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			if b, err := strconv.ParseBool(t); err == nil {
				return b, nil
			}
		case float64:
			return t != 0, nil
		}
	case schema.TypeString, schema.TypeText:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case schema.TypeDate, schema.TypeDatetime:
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
				if ts, err := time.Parse(layout, t); err == nil {
					return ts, nil
				}
			}
			return nil, errs.Validationf(def.Name, "cannot parse %q as %s", t, def.Type)
		}
	case schema.TypeJSON:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, errs.Validationf(def.Name, "invalid json value")
		}
		return string(b), nil
	}
	return nil, errs.Validationf(def.Name, "cannot coerce %T to %s", v, def.Type)
}
