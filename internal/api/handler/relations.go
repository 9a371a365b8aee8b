package handler

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/gadmin/internal/schema"
)

type relationParams struct {
	Model      string `path:"model"`
	ID         string `path:"id"`
	Relation   string `path:"relation"`
	Connection string `query:"connection"`
	Page       int    `query:"page"`
	PageSize   int    `query:"pageSize"`
	Sort       string `query:"sort"`
	Filters    string `query:"filters"`
	Search     string `query:"search"`
}

// RegisterRelations wires nested relationship browsing.
func RegisterRelations(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "listRelated",
		Method:      http.MethodGet,
		Path:        "/v1/data/{model}/{id}/relations/{relation}",
		Summary:     "List rows related to one record",
		Tags:        []string{"Data"},
	}, h.listRelated)
}

func (h *Handler) listRelated(ctx context.Context, in *relationParams) (*listOutput, error) {
	parent, err := h.Store.Load(ctx, in.Model, in.Connection)
	if err != nil {
		return nil, mapErr(err)
	}
	spec, related, err := h.Resolver.Resolve(ctx, parent, in.Relation, recordID(in.ID))
	if err != nil {
		return nil, mapErr(err)
	}
	f, err := schema.Filter(related, []schema.Context{schema.ContextList})
	if err != nil {
		return nil, mapErr(err)
	}
	p, err := queryParams(in.Page, in.PageSize, in.Sort, in.Filters, in.Search)
	if err != nil {
		return nil, err
	}
	res, err := h.Engine.Query(ctx, f.Schema, spec, p)
	if err != nil {
		return nil, mapErr(err)
	}
	return &listOutput{Body: *res}, nil
}
