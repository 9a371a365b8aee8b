package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/faciam-dev/goquent/orm/query"
	"github.com/go-resty/resty/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/faciam-dev/gadmin/internal/auditlog"
	"github.com/faciam-dev/gadmin/internal/errs"
	"github.com/faciam-dev/gadmin/internal/metrics"
	"github.com/faciam-dev/gadmin/internal/schema"
	"github.com/faciam-dev/gadmin/internal/storage"
)

// Authorizer answers whether the current caller may run an operation
// guarded by a permission token. Opaque to the engine.
type Authorizer interface {
	Can(ctx context.Context, permission string) bool
}

// ActionResult reports a completed action execution.
type ActionResult struct {
	OK       bool   `json:"ok"`
	Field    string `json:"field,omitempty"`
	NewValue any    `json:"newValue,omitempty"`
	Route    string `json:"route,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ActionExecutor runs schema-declared actions against single records.
type ActionExecutor struct {
	Conns *storage.Registry
	Auth  Authorizer
	HTTP  *resty.Client
	Audit *auditlog.Recorder
}

// Execute resolves the action by key, authorizes it, computes the new value
// and persists it (for field updates) or delegates (for api_call actions).
// Toggling twice restores the original value; executing a value-type action
// twice is idempotent.
func (x *ActionExecutor) Execute(ctx context.Context, s *schema.Schema, recordID any, key string, payload map[string]any) (*ActionResult, error) {
	act, ok := s.ActionByKey(key)
	if !ok {
		return nil, errs.NotFound("action", key)
	}
	if act.Permission != "" && x.Auth != nil && !x.Auth.Can(ctx, act.Permission) {
		metrics.Actions.WithLabelValues(s.Model, key, "forbidden").Inc()
		return nil, &errs.ForbiddenError{Permission: act.Permission}
	}

	var res *ActionResult
	var err error
	switch act.Type {
	case schema.ActionFieldUpdate:
		res, err = x.updateField(ctx, s, act, recordID, payload)
	case schema.ActionAPICall:
		res, err = x.callAPI(ctx, s, act, recordID, payload)
	case schema.ActionRoute, schema.ActionModal:
		res = &ActionResult{OK: true, Route: act.URL, Message: act.SuccessMessage}
	default:
		err = errs.Configf(s.Model, "action %q: unknown type %q", key, act.Type)
	}
	if err != nil {
		metrics.Actions.WithLabelValues(s.Model, key, "error").Inc()
		return nil, err
	}
	metrics.Actions.WithLabelValues(s.Model, key, "ok").Inc()
	return res, nil
}

func (x *ActionExecutor) updateField(ctx context.Context, s *schema.Schema, act *schema.Action, recordID any, payload map[string]any) (*ActionResult, error) {
	field := act.TargetField()
	def, ok := s.Fields.Get(field)
	if !ok {
		return nil, errs.Configf(s.Model, "action %q: field %q not defined in schema", act.Key, field)
	}

	conn, err := x.Conns.Get(s.Connection)
	if err != nil {
		return nil, err
	}
	current, found, err := x.readField(ctx, conn, s, field, recordID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errs.NotFound("record", fmt.Sprint(recordID))
	}

	var newVal any
	reportVal := true
	switch {
	case act.Toggle:
		// Missing or NULL counts as false, so the first toggle of a fresh
		// record always enables.
		newVal = !truthy(current)
	case act.Value != nil:
		newVal = act.Value
	case string(def.Type) == "password":
		raw, _ := payload["password"].(string)
		if raw == "" {
			return nil, errs.Validationf("password", "payload.password is required")
		}
		hash, herr := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		if herr != nil {
			return nil, herr
		}
		newVal = string(hash)
		reportVal = false
	default:
		return nil, errs.Configf(s.Model, "action %q declares neither toggle nor value", act.Key)
	}

	data := map[string]any{field: newVal}
	if s.Timestamps {
		data["updated_at"] = time.Now().UTC()
	}
	q := query.New(conn.DB, s.Table, conn.Dialect).
		Where(s.PK(), recordID).
		WithContext(ctx)
	if _, err := q.Update(data); err != nil {
		return nil, errs.Storage("update "+s.Model, err)
	}

	x.Audit.Write(ctx, actorFrom(ctx), s.Model, fmt.Sprint(recordID), act.Key, audited(current, reportVal), audited(newVal, reportVal))

	res := &ActionResult{OK: true, Field: field, Message: act.SuccessMessage}
	if reportVal {
		res.NewValue = newVal
	}
	return res, nil
}

// readField fetches the current value of one column for recordID.
func (x *ActionExecutor) readField(ctx context.Context, conn *storage.Conn, s *schema.Schema, field string, recordID any) (any, bool, error) {
	q := query.New(conn.DB, s.Table, conn.Dialect).
		Select(field).
		Where(s.PK(), recordID).
		WithContext(ctx)
	sqlStr, args, err := q.Build()
	if err != nil {
		return nil, false, errs.Storage("build "+s.Model, err)
	}
	rows, err := conn.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, false, errs.Storage("read "+s.Model, err)
	}
	defer rows.Close()
	recs, err := storage.ScanRows(rows)
	if err != nil {
		return nil, false, errs.Storage("scan "+s.Model, err)
	}
	if len(recs) == 0 {
		return nil, false, nil
	}
	return recs[0][field], true, nil
}

func (x *ActionExecutor) callAPI(ctx context.Context, s *schema.Schema, act *schema.Action, recordID any, payload map[string]any) (*ActionResult, error) {
	client := x.HTTP
	if client == nil {
		client = resty.New()
	}
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"model":    s.Model,
			"recordId": recordID,
			"action":   act.Key,
			"payload":  payload,
		}).
		Post(act.URL)
	if err != nil {
		return nil, errs.Storage("api_call "+act.Key, err)
	}
	if resp.IsError() {
		return nil, errs.Storage("api_call "+act.Key, fmt.Errorf("endpoint returned %s", resp.Status()))
	}
	x.Audit.Write(ctx, actorFrom(ctx), s.Model, fmt.Sprint(recordID), act.Key, nil, nil)
	return &ActionResult{OK: true, Message: act.SuccessMessage}, nil
}

// truthy interprets a stored scalar as a boolean. NULL is false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(t) {
		case "", "0", "false", "f", "no":
			return false
		}
		return true
	default:
		return true
	}
}

func audited(v any, report bool) any {
	if !report {
		return "[redacted]"
	}
	return v
}

type actorKey struct{}

// WithActor stores the acting user in the context for audit attribution.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	v, _ := ctx.Value(actorKey{}).(string)
	return v
}
