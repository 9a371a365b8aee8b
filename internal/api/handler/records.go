package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/gadmin/internal/engine"
	"github.com/faciam-dev/gadmin/internal/schema"
)

type listParams struct {
	Model      string `path:"model"`
	Connection string `query:"connection"`
	Page       int    `query:"page" doc:"1-based page number"`
	PageSize   int    `query:"pageSize"`
	Sort       string `query:"sort" doc:"Comma-separated field:direction terms"`
	Filters    string `query:"filters" doc:"JSON object of field to value"`
	Search     string `query:"search"`
}

type listOutput struct {
	Body engine.Result
}

type getParams struct {
	Model      string `path:"model"`
	ID         string `path:"id"`
	Connection string `query:"connection"`
}

type recordOutput struct {
	Body map[string]any
}

type createInput struct {
	Model      string `path:"model"`
	Connection string `query:"connection"`
	Body       map[string]any
}

type createOutput struct {
	Body struct {
		ID int64 `json:"id"`
	}
}

type updateInput struct {
	Model      string `path:"model"`
	ID         string `path:"id"`
	Connection string `query:"connection"`
	Body       map[string]any
}

type okOutput struct {
	Body struct {
		OK bool `json:"ok"`
	}
}

// RegisterRecords wires the generic CRUD and list operations.
func RegisterRecords(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "listRecords",
		Method:      http.MethodGet,
		Path:        "/v1/data/{model}",
		Summary:     "List records",
		Tags:        []string{"Data"},
	}, h.list)
	huma.Register(api, huma.Operation{
		OperationID: "getRecord",
		Method:      http.MethodGet,
		Path:        "/v1/data/{model}/{id}",
		Summary:     "Get one record",
		Tags:        []string{"Data"},
	}, h.get)
	huma.Register(api, huma.Operation{
		OperationID:   "createRecord",
		Method:        http.MethodPost,
		Path:          "/v1/data/{model}",
		Summary:       "Create a record",
		Tags:          []string{"Data"},
		DefaultStatus: http.StatusCreated,
	}, h.create)
	huma.Register(api, huma.Operation{
		OperationID: "updateRecord",
		Method:      http.MethodPut,
		Path:        "/v1/data/{model}/{id}",
		Summary:     "Update a record",
		Tags:        []string{"Data"},
	}, h.update)
	huma.Register(api, huma.Operation{
		OperationID:   "deleteRecord",
		Method:        http.MethodDelete,
		Path:          "/v1/data/{model}/{id}",
		Summary:       "Delete a record",
		Tags:          []string{"Data"},
		DefaultStatus: http.StatusNoContent,
	}, h.delete)
}

// loadFiltered loads the model's schema and reduces it to one context.
func (h *Handler) loadFiltered(ctx context.Context, model, connection string, c schema.Context) (*schema.Schema, error) {
	s, err := h.Store.Load(ctx, model, connection)
	if err != nil {
		return nil, err
	}
	f, err := schema.Filter(s, []schema.Context{c})
	if err != nil {
		return nil, err
	}
	return f.Schema, nil
}

func (h *Handler) list(ctx context.Context, in *listParams) (*listOutput, error) {
	s, err := h.loadFiltered(ctx, in.Model, in.Connection, schema.ContextList)
	if err != nil {
		return nil, mapErr(err)
	}
	p, err := queryParams(in.Page, in.PageSize, in.Sort, in.Filters, in.Search)
	if err != nil {
		return nil, err
	}
	res, err := h.Engine.Query(ctx, s, nil, p)
	if err != nil {
		return nil, mapErr(err)
	}
	return &listOutput{Body: *res}, nil
}

func (h *Handler) get(ctx context.Context, in *getParams) (*recordOutput, error) {
	s, err := h.loadFiltered(ctx, in.Model, in.Connection, schema.ContextDetail)
	if err != nil {
		return nil, mapErr(err)
	}
	rec, err := h.Records.Get(ctx, s, recordID(in.ID))
	if err != nil {
		return nil, mapErr(err)
	}
	return &recordOutput{Body: rec}, nil
}

func (h *Handler) create(ctx context.Context, in *createInput) (*createOutput, error) {
	s, err := h.loadFiltered(ctx, in.Model, in.Connection, schema.ContextForm)
	if err != nil {
		return nil, mapErr(err)
	}
	id, err := h.Records.Create(ctx, s, in.Body)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &createOutput{}
	out.Body.ID = id
	return out, nil
}

func (h *Handler) update(ctx context.Context, in *updateInput) (*okOutput, error) {
	s, err := h.loadFiltered(ctx, in.Model, in.Connection, schema.ContextForm)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := h.Records.Update(ctx, s, recordID(in.ID), in.Body); err != nil {
		return nil, mapErr(err)
	}
	out := &okOutput{}
	out.Body.OK = true
	return out, nil
}

type deleteParams struct {
	Model      string `path:"model"`
	ID         string `path:"id"`
	Connection string `query:"connection"`
}

func (h *Handler) delete(ctx context.Context, in *deleteParams) (*struct{}, error) {
	s, err := h.Store.Load(ctx, in.Model, in.Connection)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := h.Records.Delete(ctx, s, recordID(in.ID)); err != nil {
		return nil, mapErr(err)
	}
	return nil, nil
}

// recordID converts a path ID to an int64 when it is numeric, since most
// primary keys are integers and postgres will not compare text to them.
func recordID(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

// queryParams decodes the wire representation of tabular query parameters:
// sort is "field:direction" terms, filters is one JSON object.
func queryParams(page, pageSize int, sortExpr, filterExpr, search string) (engine.Params, error) {
	p := engine.Params{Page: page, PageSize: pageSize, Search: search}
	if sortExpr != "" {
		for _, term := range strings.Split(sortExpr, ",") {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			field, dir, _ := strings.Cut(term, ":")
			p.Sorts = append(p.Sorts, engine.Sort{Field: field, Direction: dir})
		}
	}
	if filterExpr != "" {
		if err := json.Unmarshal([]byte(filterExpr), &p.Filters); err != nil {
			return p, huma.Error422UnprocessableEntity("filters must be a JSON object")
		}
	}
	return p, nil
}
