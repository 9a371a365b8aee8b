// Package handler exposes the schema engine over huma operations.
package handler

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/gadmin/internal/auditlog"
	"github.com/faciam-dev/gadmin/internal/engine"
	"github.com/faciam-dev/gadmin/internal/errs"
	"github.com/faciam-dev/gadmin/internal/i18n"
	"github.com/faciam-dev/gadmin/internal/schema"
)

// Handler bundles the engine collaborators the API operations need.
type Handler struct {
	Store    *schema.Store
	Engine   *engine.Engine
	Resolver *engine.Resolver
	Records  *engine.Records
	Actions  *engine.ActionExecutor
	Audit    *auditlog.Recorder
	T        *i18n.Translator
}

// mapErr translates engine taxonomy errors into HTTP status errors. The
// engine itself never produces HTTP-specific structures.
func mapErr(err error) error {
	var nf *errs.NotFoundError
	if errors.As(err, &nf) {
		return huma.Error404NotFound(err.Error())
	}
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		return huma.Error422UnprocessableEntity(err.Error())
	}
	var fe *errs.ForbiddenError
	if errors.As(err, &fe) {
		return huma.Error403Forbidden(err.Error())
	}
	var ce *errs.ConfigError
	if errors.As(err, &ce) {
		return huma.Error500InternalServerError(err.Error())
	}
	var se *errs.StorageError
	if errors.As(err, &se) {
		return huma.Error502BadGateway(err.Error())
	}
	return err
}
