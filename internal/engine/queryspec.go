// Package engine implements the schema-driven query, relationship and
// action machinery. It has no compile-time knowledge of any table: every
// decision is driven by a schema document.
package engine

// QuerySpec is an engine-neutral description of a row source: a target
// table plus an optional pre-bound constraint. The relationship resolver
// produces these and the query engine turns them into executable queries,
// so the same resolution logic serves both row fetches and counts.
//
// Where uses goquent named-parameter syntax (":name") with values in
// Params. Identifiers inside Where come from validated schema documents.
type QuerySpec struct {
	Table      string
	PrimaryKey string
	Where      string
	Params     map[string]any
}

// TableSpec is the QuerySpec for an unconstrained table.
func TableSpec(table, primaryKey string) *QuerySpec {
	return &QuerySpec{Table: table, PrimaryKey: primaryKey}
}
