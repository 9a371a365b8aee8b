package handler

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/gadmin/internal/auditlog"
	"github.com/faciam-dev/gadmin/internal/engine"
	sm "github.com/faciam-dev/gadmin/internal/server/middleware"
)

type actionInput struct {
	Model      string `path:"model"`
	ID         string `path:"id"`
	Action     string `path:"action"`
	Connection string `query:"connection"`
	Body       map[string]any
}

type actionOutput struct {
	Body engine.ActionResult
}

type auditParams struct {
	Model string `query:"model"`
	Limit int    `query:"limit"`
}

type auditOutput struct {
	Body struct {
		Entries []auditlog.Entry `json:"entries"`
	}
}

// RegisterActions wires action execution and the audit log read endpoint.
func RegisterActions(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "executeAction",
		Method:      http.MethodPost,
		Path:        "/v1/data/{model}/{id}/actions/{action}",
		Summary:     "Execute a schema-declared action on one record",
		Tags:        []string{"Actions"},
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, h.executeAction)
	huma.Register(api, huma.Operation{
		OperationID: "listAuditLogs",
		Method:      http.MethodGet,
		Path:        "/v1/audit-logs",
		Summary:     "List recent action audit logs",
		Tags:        []string{"Actions"},
	}, h.listAuditLogs)
}

func (h *Handler) executeAction(ctx context.Context, in *actionInput) (*actionOutput, error) {
	s, err := h.Store.Load(ctx, in.Model, in.Connection)
	if err != nil {
		return nil, mapErr(err)
	}
	ctx = engine.WithActor(ctx, sm.UserFromContext(ctx))
	res, err := h.Actions.Execute(ctx, s, recordID(in.ID), in.Action, in.Body)
	if err != nil {
		return nil, mapErr(err)
	}
	if h.T != nil && res.Message != "" {
		res.Message = h.T.Resolve(res.Message)
	}
	return &actionOutput{Body: *res}, nil
}

func (h *Handler) listAuditLogs(ctx context.Context, in *auditParams) (*auditOutput, error) {
	entries, err := h.Audit.Recent(ctx, in.Model, in.Limit)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &auditOutput{}
	out.Body.Entries = entries
	return out, nil
}
