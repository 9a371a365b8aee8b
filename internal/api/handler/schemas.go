package handler

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/gadmin/internal/schema"
)

type schemaParams struct {
	Model      string `path:"model"`
	Context    string `query:"context" doc:"Comma-separated contexts: list, form, detail, meta"`
	Connection string `query:"connection"`
}

type schemaBody struct {
	Schema    *schema.Schema                    `json:"schema"`
	ByContext map[schema.Context]*schema.Schema `json:"byContext,omitempty"`
}

type schemaOutput struct {
	Body schemaBody
}

type clearCacheParams struct {
	Model      string `path:"model"`
	Connection string `query:"connection"`
}

type clearCacheOutput struct {
	Body struct {
		Cleared bool `json:"cleared"`
	}
}

// RegisterSchemas wires the schema read and cache-clear operations.
func RegisterSchemas(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "getSchema",
		Method:      http.MethodGet,
		Path:        "/v1/schemas/{model}",
		Summary:     "Get a context-filtered schema",
		Tags:        []string{"Schema"},
	}, h.getSchema)
	huma.Register(api, huma.Operation{
		OperationID: "clearSchemaCache",
		Method:      http.MethodPost,
		Path:        "/v1/schemas/{model}/cache-clear",
		Summary:     "Drop cached schema documents",
		Tags:        []string{"Schema"},
	}, h.clearSchemaCache)
}

func (h *Handler) getSchema(ctx context.Context, in *schemaParams) (*schemaOutput, error) {
	contexts, err := schema.ParseContexts(in.Context)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	s, err := h.Store.Load(ctx, in.Model, in.Connection)
	if err != nil {
		return nil, mapErr(err)
	}
	f, err := schema.Filter(s, contexts)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &schemaOutput{}
	out.Body.Schema = h.translated(f.Schema)
	if len(contexts) > 1 {
		by := f.ByContext
		if h.T != nil {
			by = make(map[schema.Context]*schema.Schema, len(f.ByContext))
			for c, sub := range f.ByContext {
				by[c] = h.translated(sub)
			}
		}
		out.Body.ByContext = by
	}
	return out, nil
}

func (h *Handler) clearSchemaCache(_ context.Context, in *clearCacheParams) (*clearCacheOutput, error) {
	model := in.Model
	if model == "all" {
		model = ""
	}
	h.Store.Clear(model, in.Connection)
	out := &clearCacheOutput{}
	out.Body.Cleared = true
	return out, nil
}

// translated resolves i18n keys on a copy of the schema: the title, field
// labels, and action confirm/success messages. The cached document is never
// mutated.
func (h *Handler) translated(s *schema.Schema) *schema.Schema {
	if h.T == nil {
		return s
	}
	cp := *s
	cp.Title = h.T.Resolve(s.Title)
	cp.Fields = schema.NewFields()
	s.Fields.Each(func(name string, def *schema.Field) {
		fc := *def
		fc.Label = h.T.Resolve(fc.Label)
		cp.Fields.Set(name, &fc)
	})
	if len(s.Actions) > 0 {
		cp.Actions = make([]schema.Action, len(s.Actions))
		for i, a := range s.Actions {
			a.Confirm = h.T.Resolve(a.Confirm)
			a.SuccessMessage = h.T.Resolve(a.SuccessMessage)
			cp.Actions[i] = a
		}
	}
	return &cp
}
