package engine

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/faciam-dev/gadmin/internal/errs"
	"github.com/faciam-dev/gadmin/internal/schema"
	"github.com/faciam-dev/gadmin/internal/storage"
)

type fakeLoader map[string]*schema.Schema

func (f fakeLoader) Load(_ context.Context, model, _ string) (*schema.Schema, error) {
	s, ok := f[model]
	if !ok {
		return nil, errs.NotFound("schema", model)
	}
	return s, nil
}

func mustDecode(t *testing.T, doc string) *schema.Schema {
	t.Helper()
	s, err := schema.Decode([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return s
}

const usersDoc = `{
  "model": "users",
  "table": "app_users",
  "fields": {
    "id": {"type": "integer", "showIn": ["list"]},
    "name": {"type": "string", "showIn": ["list"]}
  },
  "relationships": [
    {"name": "roles", "type": "many_to_many", "model": "roles",
     "pivotTable": "user_roles", "foreignKey": "user_id", "relatedKey": "role_id"},
    {"name": "permissions", "type": "belongs_to_many_through", "model": "permissions", "through": "roles",
     "firstPivotTable": "user_roles", "firstForeignKey": "user_id", "firstRelatedKey": "role_id",
     "secondPivotTable": "role_permissions", "secondForeignKey": "role_id", "secondRelatedKey": "permission_id"},
    {"name": "posts", "model": "posts", "foreignKey": "author_id"}
  ],
  "details": [
    {"model": "orders", "label": "Orders"}
  ]
}`

func testLoader(t *testing.T) fakeLoader {
	t.Helper()
	return fakeLoader{
		"roles":       mustDecode(t, `{"model":"roles","table":"app_roles","fields":{"id":{"type":"integer"},"name":{"type":"string"}}}`),
		"permissions": mustDecode(t, `{"model":"permissions","table":"app_permissions","fields":{"id":{"type":"integer"}}}`),
		"posts":       mustDecode(t, `{"model":"posts","table":"app_posts","fields":{"id":{"type":"integer"}}}`),
		"orders":      mustDecode(t, `{"model":"orders","table":"app_orders","fields":{"id":{"type":"integer"}}}`),
	}
}

func TestResolveForeignKey(t *testing.T) {
	parent := mustDecode(t, usersDoc)
	r := &Resolver{Schemas: testLoader(t)}
	spec, related, err := r.Resolve(context.Background(), parent, "posts", int64(7))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if related.Model != "posts" || spec.Table != "app_posts" {
		t.Fatalf("wrong target: %s %s", related.Model, spec.Table)
	}
	if spec.Where != "author_id = :parent_id" {
		t.Fatalf("where = %q", spec.Where)
	}
	if spec.Params["parent_id"] != int64(7) {
		t.Fatalf("params = %v", spec.Params)
	}
}

func TestResolveManyToMany(t *testing.T) {
	parent := mustDecode(t, usersDoc)
	r := &Resolver{Schemas: testLoader(t)}
	spec, _, err := r.Resolve(context.Background(), parent, "roles", int64(7))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := "id IN (SELECT role_id FROM user_roles WHERE user_id = :parent_id)"
	if spec.Where != want {
		t.Fatalf("where = %q, want %q", spec.Where, want)
	}
}

func TestResolveThrough(t *testing.T) {
	parent := mustDecode(t, usersDoc)
	r := &Resolver{Schemas: testLoader(t)}
	spec, related, err := r.Resolve(context.Background(), parent, "permissions", int64(7))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if related.Model != "permissions" {
		t.Fatalf("related = %s", related.Model)
	}
	want := "id IN (SELECT permission_id FROM role_permissions WHERE role_id IN (SELECT role_id FROM user_roles WHERE user_id = :parent_id))"
	if spec.Where != want {
		t.Fatalf("where = %q, want %q", spec.Where, want)
	}
	// Membership semantics: the outer IN yields each permission at most
	// once no matter how many roles grant it.
	if strings.Contains(spec.Where, "JOIN") {
		t.Fatalf("through spec must not join: %q", spec.Where)
	}
}

// A permission granted by several of the user's roles must come back once.
func TestThroughRelatedRowAppearsOnce(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE app_permissions (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE user_roles (user_id INTEGER, role_id INTEGER)`,
		`CREATE TABLE role_permissions (role_id INTEGER, permission_id INTEGER)`,
		`INSERT INTO app_permissions (id, name) VALUES (1, 'users.disable')`,
		`INSERT INTO user_roles (user_id, role_id) VALUES (7, 10), (7, 11)`,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES (10, 1), (11, 1)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}

	parent := mustDecode(t, usersDoc)
	r := &Resolver{Schemas: testLoader(t)}
	spec, related, err := r.Resolve(context.Background(), parent, "permissions", int64(7))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	reg := storage.NewRegistry(nil)
	reg.Register(storage.DefaultConnection, db, "sqlite3")
	e := &Engine{Conns: reg}

	res, err := e.Query(context.Background(), related, spec, Params{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("total = %d, want 1", res.Total)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(res.Rows))
	}
	if id, ok := res.Rows[0]["id"].(int64); !ok || id != 1 {
		t.Fatalf("row = %#v", res.Rows[0])
	}
}

func TestResolveDetailFallback(t *testing.T) {
	parent := mustDecode(t, usersDoc)
	r := &Resolver{Schemas: testLoader(t)}
	spec, _, err := r.Resolve(context.Background(), parent, "orders", 3)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if spec.Where != "user_id = :parent_id" {
		t.Fatalf("where = %q", spec.Where)
	}
}

func TestResolveUnknown(t *testing.T) {
	parent := mustDecode(t, usersDoc)
	r := &Resolver{Schemas: testLoader(t)}
	_, _, err := r.Resolve(context.Background(), parent, "nope", 1)
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

func TestResolveIncompleteRelationship(t *testing.T) {
	parent := mustDecode(t, `{
      "model": "users", "table": "app_users",
      "fields": {"id": {"type": "integer"}},
      "relationships": [
        {"name": "roles", "type": "many_to_many", "model": "roles", "foreignKey": "user_id"}
      ]
    }`)
	r := &Resolver{Schemas: testLoader(t)}
	_, _, err := r.Resolve(context.Background(), parent, "roles", 1)
	var ce *errs.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("want ConfigError, got %v", err)
	}
}
