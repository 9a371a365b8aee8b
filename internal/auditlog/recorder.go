// Package auditlog records executed actions and record mutations.
package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"

	"github.com/faciam-dev/gadmin/internal/logger"
	"github.com/faciam-dev/gadmin/internal/storage"
)

// Entry is one audit log row.
type Entry struct {
	ID        int64     `json:"id" db:"id"`
	Actor     string    `json:"actor" db:"actor"`
	Model     string    `json:"model" db:"model"`
	RecordID  string    `json:"recordId" db:"record_id"`
	Action    string    `json:"action" db:"action"`
	OldValue  string    `json:"oldValue,omitempty" db:"old_value"`
	NewValue  string    `json:"newValue,omitempty" db:"new_value"`
	AppliedAt time.Time `json:"appliedAt" db:"applied_at"`
}

// Recorder writes audit entries. A nil Recorder (or one without a DB) is a
// no-op so call sites don't need to branch.
type Recorder struct {
	DB          *sql.DB
	Dialect     ormdriver.Dialect
	TablePrefix string
}

func (r *Recorder) table() string { return r.TablePrefix + "action_logs" }

// Write records one mutation. Audit failures are logged, not propagated:
// an audit outage must not block the mutation it describes.
func (r *Recorder) Write(ctx context.Context, actor, model, recordID, action string, oldVal, newVal any) {
	if r == nil || r.DB == nil {
		return
	}
	old, _ := json.Marshal(oldVal)
	val, _ := json.Marshal(newVal)
	data := map[string]any{
		"actor":      actor,
		"model":      model,
		"record_id":  recordID,
		"action":     action,
		"old_value":  string(old),
		"new_value":  string(val),
		"applied_at": time.Now().UTC(),
	}
	if _, err := query.New(r.DB, r.table(), r.Dialect).WithContext(ctx).InsertGetId(data); err != nil {
		logger.L.Error("write audit log", "model", model, "action", action, "err", err)
	}
}

// Recent returns the newest entries, newest first.
func (r *Recorder) Recent(ctx context.Context, model string, limit int) ([]Entry, error) {
	if r == nil || r.DB == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := query.New(r.DB, r.table(), r.Dialect).
		Select("id", "actor", "model", "record_id", "action", "old_value", "new_value", "applied_at").
		WithContext(ctx)
	if model != "" {
		q.Where("model", model)
	}
	q.OrderBy("applied_at", "desc").OrderBy("id", "desc").Limit(limit)

	sqlStr, args, err := q.Build()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recs, err := storage.ScanRows(rows)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(recs))
	for _, m := range recs {
		e := Entry{
			Actor:    str(m["actor"]),
			Model:    str(m["model"]),
			RecordID: str(m["record_id"]),
			Action:   str(m["action"]),
			OldValue: str(m["old_value"]),
			NewValue: str(m["new_value"]),
		}
		switch id := m["id"].(type) {
		case int64:
			e.ID = id
		}
		if t, ok := m["applied_at"].(time.Time); ok {
			e.AppliedAt = t
		}
		out = append(out, e)
	}
	return out, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
