// Package errs defines the error taxonomy shared by the schema engine.
package errs

import "fmt"

// ConfigError reports a malformed schema document or an incomplete
// relationship definition. It is an authoring/deployment bug and is never
// recovered silently.
type ConfigError struct {
	Model string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("schema %s: %s", e.Model, e.Msg)
	}
	return e.Msg
}

// Configf builds a ConfigError for the given model.
func Configf(model, format string, args ...any) error {
	return &ConfigError{Model: model, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing model, relationship, action or record.
type NotFoundError struct {
	Kind string // "model", "relationship", "action", "record"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// NotFound builds a NotFoundError.
func NotFound(kind, name string) error {
	return &NotFoundError{Kind: kind, Name: name}
}

// ValidationError reports caller-supplied parameters that violate schema
// constraints (disallowed sort/filter fields, bad directions, bad payloads).
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	return e.Msg
}

// Validationf builds a ValidationError for the given field.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ForbiddenError reports an authorization denial for a permission token.
type ForbiddenError struct {
	Permission string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("permission %q denied", e.Permission)
}

// StorageError wraps a datastore failure. The engine never interprets it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError unless it already is one.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*StorageError); ok {
		return se
	}
	return &StorageError{Op: op, Err: err}
}
