package handler

import (
	"errors"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/faciam-dev/gadmin/internal/engine"
	"github.com/faciam-dev/gadmin/internal/errs"
	"github.com/faciam-dev/gadmin/internal/i18n"
	"github.com/faciam-dev/gadmin/internal/schema"
)

func TestRecordID(t *testing.T) {
	if got := recordID("42"); got != int64(42) {
		t.Fatalf("recordID(42) = %#v", got)
	}
	if got := recordID("a1b2"); got != "a1b2" {
		t.Fatalf("recordID(a1b2) = %#v", got)
	}
}

func TestQueryParams(t *testing.T) {
	p, err := queryParams(2, 50, "name:desc, id", `{"status": ["active"], "price": {"min": 5}}`, "gear")
	if err != nil {
		t.Fatalf("queryParams: %v", err)
	}
	wantSorts := []engine.Sort{{Field: "name", Direction: "desc"}, {Field: "id", Direction: ""}}
	if diff := cmp.Diff(wantSorts, p.Sorts); diff != "" {
		t.Fatalf("sorts (-want +got):\n%s", diff)
	}
	if p.Search != "gear" || p.Page != 2 || p.PageSize != 50 {
		t.Fatalf("params = %+v", p)
	}
	if _, ok := p.Filters["status"]; !ok {
		t.Fatalf("filters = %v", p.Filters)
	}

	if _, err := queryParams(1, 0, "", "{not json", ""); err == nil {
		t.Fatal("want error for malformed filters")
	}
}

func TestMapErr(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.NotFound("record", "9"), 404},
		{errs.Validationf("name", "field is not sortable"), 422},
		{&errs.ForbiddenError{Permission: "users.disable"}, 403},
		{errs.Configf("users", "bad schema"), 500},
		{errs.Storage("query users", errSentinel), 502},
	}
	for _, tc := range cases {
		got := mapErr(tc.err)
		se, ok := got.(huma.StatusError)
		if !ok {
			t.Fatalf("mapErr(%T) = %T, want StatusError", tc.err, got)
		}
		if se.GetStatus() != tc.want {
			t.Errorf("mapErr(%T) status = %d, want %d", tc.err, se.GetStatus(), tc.want)
		}
	}
}

func TestTranslatedResolvesSchemaKeys(t *testing.T) {
	s, err := schema.Decode([]byte(`{
	  "model": "users", "table": "app_users", "title": "ADMIN.USERS.TITLE",
	  "fields": {
	    "email": {"type": "string", "label": "ADMIN.USERS.EMAIL", "showIn": ["list"]},
	    "name": {"type": "string", "label": "Display name", "showIn": ["list"]}
	  },
	  "actions": [
	    {"key": "disable_user", "type": "field_update", "field": "flag_enabled", "toggle": true,
	     "confirm": "ADMIN.USERS.DISABLE_CONFIRM", "successMessage": "ADMIN.USERS.DISABLED"}
	  ]
	}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	h := &Handler{T: i18n.New(map[string]string{
		"ADMIN.USERS.TITLE":           "Users",
		"ADMIN.USERS.EMAIL":           "E-mail address",
		"ADMIN.USERS.DISABLE_CONFIRM": "Disable this user?",
		"ADMIN.USERS.DISABLED":        "User disabled",
	})}

	got := h.translated(s)
	if got.Title != "Users" {
		t.Fatalf("title = %q", got.Title)
	}
	email, _ := got.Fields.Get("email")
	if email.Label != "E-mail address" {
		t.Fatalf("email label = %q", email.Label)
	}
	name, _ := got.Fields.Get("name")
	if name.Label != "Display name" {
		t.Fatalf("plain label changed: %q", name.Label)
	}
	act, ok := got.ActionByKey("disable_user")
	if !ok || act.Confirm != "Disable this user?" || act.SuccessMessage != "User disabled" {
		t.Fatalf("action = %+v", act)
	}

	// The cached source document must stay untranslated.
	src, _ := s.Fields.Get("email")
	if s.Title != "ADMIN.USERS.TITLE" || src.Label != "ADMIN.USERS.EMAIL" {
		t.Fatalf("source mutated: %q %q", s.Title, src.Label)
	}
	if s.Actions[0].Confirm != "ADMIN.USERS.DISABLE_CONFIRM" {
		t.Fatalf("source action mutated: %q", s.Actions[0].Confirm)
	}
}

var errSentinel = errors.New("connection reset")
