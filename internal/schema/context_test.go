package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const contextDoc = `{
  "model": "users",
  "table": "app_users",
  "title": "Users",
  "softDelete": true,
  "fields": {
    "id": {"type": "integer", "showIn": ["list", "detail"]},
    "email": {"type": "email", "showIn": ["list", "form", "detail"]},
    "password": {"type": "password", "showIn": ["form"]},
    "bio": {"type": "textarea", "showIn": ["detail"]},
    "internal_notes": {"type": "text"}
  },
  "actions": [
    {"key": "disable_user", "type": "field_update", "field": "email", "toggle": true, "showIn": ["list"]},
    {"key": "edit", "type": "route", "url": "/u/:id"}
  ],
  "permissions": {"list": "users.view"}
}`

func TestFilterNoContextsReturnsFull(t *testing.T) {
	s := decode(t, contextDoc)
	f, err := Filter(s, nil)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if f.Schema != s {
		t.Fatalf("full view must be the source schema")
	}
}

func TestFilterSingleContext(t *testing.T) {
	s := decode(t, contextDoc)
	f, err := Filter(s, []Context{ContextList})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if diff := cmp.Diff([]string{"id", "email"}, f.Schema.Fields.Names()); diff != "" {
		t.Fatalf("list fields (-want +got):\n%s", diff)
	}
	// internal_notes has no showIn: hidden in every filtered view.
	if _, ok := f.Schema.Fields.Get("internal_notes"); ok {
		t.Fatal("field without showIn leaked into list view")
	}
	// disable_user declares list; edit has no showIn and is always visible.
	if len(f.Schema.Actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(f.Schema.Actions))
	}
	// Source schema untouched.
	if s.Fields.Len() != 5 {
		t.Fatalf("source schema mutated: %d fields", s.Fields.Len())
	}
}

func TestFilterFormHidesListOnly(t *testing.T) {
	s := decode(t, contextDoc)
	f, err := Filter(s, []Context{ContextForm})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if diff := cmp.Diff([]string{"email", "password"}, f.Schema.Fields.Names()); diff != "" {
		t.Fatalf("form fields (-want +got):\n%s", diff)
	}
	if len(f.Schema.Actions) != 1 || f.Schema.Actions[0].Key != "edit" {
		t.Fatalf("form actions = %+v", f.Schema.Actions)
	}
}

func TestFilterMetaKeepsEmptyFields(t *testing.T) {
	s := decode(t, contextDoc)
	f, err := Filter(s, []Context{ContextMeta})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if f.Schema.Fields.Len() != 0 {
		t.Fatalf("meta view has %d fields", f.Schema.Fields.Len())
	}
	if f.Schema.Fields.Names() == nil {
		t.Fatal("meta view fields must be empty, not nil")
	}
	if f.Schema.Title != "Users" || !f.Schema.SoftDelete {
		t.Fatalf("metadata dropped: %+v", f.Schema)
	}
	if f.Schema.Permissions["list"] != "users.view" {
		t.Fatal("permissions dropped from meta view")
	}
}

func TestFilterUnionIsRequestOrdered(t *testing.T) {
	s := decode(t, contextDoc)
	f, err := Filter(s, []Context{ContextForm, ContextList})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	// form fields first, then list-only additions.
	if diff := cmp.Diff([]string{"email", "password", "id"}, f.Schema.Fields.Names()); diff != "" {
		t.Fatalf("union fields (-want +got):\n%s", diff)
	}
	if len(f.ByContext) != 2 {
		t.Fatalf("ByContext = %d entries", len(f.ByContext))
	}
	if diff := cmp.Diff([]string{"id", "email"}, f.ByContext[ContextList].Fields.Names()); diff != "" {
		t.Fatalf("per-context view (-want +got):\n%s", diff)
	}
	// union actions deduplicated by key
	if len(f.Schema.Actions) != 2 {
		t.Fatalf("union actions = %d", len(f.Schema.Actions))
	}
}

func TestFilterUnionIsSupersetOfParts(t *testing.T) {
	s := decode(t, contextDoc)
	f, err := Filter(s, []Context{ContextList, ContextForm, ContextDetail})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	for c, part := range f.ByContext {
		part.Fields.Each(func(name string, _ *Field) {
			if _, ok := f.Schema.Fields.Get(name); !ok {
				t.Errorf("union misses %s field %q", c, name)
			}
		})
	}
}

// A field visible in several requested contexts merges once and stays the
// source document's definition, so per-context views can never disagree.
func TestFilterUnionSharesSourceDefinitions(t *testing.T) {
	s := decode(t, contextDoc)
	f, err := Filter(s, []Context{ContextList, ContextForm})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	src, _ := s.Fields.Get("email")
	merged, ok := f.Schema.Fields.Get("email")
	if !ok || merged != src {
		t.Fatal("merged field is not the source definition")
	}
	seen := 0
	f.Schema.Fields.Each(func(name string, _ *Field) {
		if name == "email" {
			seen++
		}
	})
	if seen != 1 {
		t.Fatalf("email appears %d times in the union", seen)
	}
}
