package engine

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"

	"github.com/faciam-dev/gadmin/internal/errs"
	"github.com/faciam-dev/gadmin/internal/schema"
	"github.com/faciam-dev/gadmin/internal/storage"
)

const accountsDoc = `{
  "model": "accounts",
  "table": "app_accounts",
  "timestamps": true,
  "softDelete": true,
  "fields": {
    "id": {"type": "integer", "readonly": true, "showIn": ["list"]},
    "email": {"type": "email", "required": true, "showIn": ["form"]},
    "name": {"type": "string", "showIn": ["form"]},
    "flag_enabled": {"type": "toggle", "default": true, "showIn": ["list"]},
    "score": {"type": "integer", "showIn": ["form"]}
  }
}`

func testRecords(t *testing.T) (*Records, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	reg := storage.NewRegistry(nil)
	reg.Register(storage.DefaultConnection, db, "mysql")
	return &Records{Conns: reg}, mock, db
}

func expectGet(t *testing.T, mock sqlmock.Sqlmock, db *sql.DB, found bool) {
	t.Helper()
	sqlStr, _, err := query.New(db, "app_accounts", ormdriver.MySQLDialect{}).
		Where("id", int64(5)).
		WhereRaw("deleted_at IS NULL", nil).
		Select("id", "email", "name", "flag_enabled", "score").
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	rows := sqlmock.NewRows([]string{"id", "email", "name", "flag_enabled", "score"})
	if found {
		rows.AddRow(int64(5), []byte("a@b.c"), []byte("Ann"), true, int64(3))
	}
	mock.ExpectQuery(regexp.QuoteMeta(sqlStr)).WillReturnRows(rows)
}

func TestGetNormalizesBytes(t *testing.T) {
	r, mock, db := testRecords(t)
	s := mustDecode(t, accountsDoc)
	expectGet(t, mock, db, true)

	rec, err := r.Get(context.Background(), s, int64(5))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec["email"] != "a@b.c" {
		t.Fatalf("email = %#v", rec["email"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetMissingRecord(t *testing.T) {
	r, mock, db := testRecords(t)
	s := mustDecode(t, accountsDoc)
	expectGet(t, mock, db, false)

	_, err := r.Get(context.Background(), s, int64(5))
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

func TestCreateAppliesDefaultsAndTimestamps(t *testing.T) {
	r, mock, _ := testRecords(t)
	s := mustDecode(t, accountsDoc)

	mock.ExpectExec("INSERT INTO").
		WillReturnResult(sqlmock.NewResult(11, 1))

	id, err := r.Create(context.Background(), s, map[string]any{
		"email": "a@b.c",
		"score": "7",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != 11 {
		t.Fatalf("id = %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateRejections(t *testing.T) {
	r, _, _ := testRecords(t)
	s := mustDecode(t, accountsDoc)

	cases := []struct {
		name  string
		input map[string]any
	}{
		{"unknown field", map[string]any{"email": "a@b.c", "ghost": 1}},
		{"readonly field", map[string]any{"email": "a@b.c", "id": 9}},
		{"missing required", map[string]any{"name": "Ann"}},
		{"uncoercible value", map[string]any{"email": "a@b.c", "score": "many"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Create(context.Background(), s, tc.input)
			var ve *errs.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("want ValidationError, got %v", err)
			}
		})
	}
}

func TestUpdateRequiresWritableFields(t *testing.T) {
	r, mock, db := testRecords(t)
	s := mustDecode(t, accountsDoc)
	expectGet(t, mock, db, true)

	err := r.Update(context.Background(), s, int64(5), map[string]any{})
	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestUpdateWritesChangedFields(t *testing.T) {
	r, mock, db := testRecords(t)
	s := mustDecode(t, accountsDoc)
	expectGet(t, mock, db, true)

	mock.ExpectExec("UPDATE").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := r.Update(context.Background(), s, int64(5), map[string]any{"name": "Bea"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteSoftDeletes(t *testing.T) {
	r, mock, db := testRecords(t)
	s := mustDecode(t, accountsDoc)
	expectGet(t, mock, db, true)

	// softDelete schemas stamp deleted_at instead of removing the row
	mock.ExpectExec("UPDATE").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := r.Delete(context.Background(), s, int64(5)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteHardDeletes(t *testing.T) {
	r, mock, db := testRecords(t)
	s := mustDecode(t, `{"model":"tags","table":"app_tags","fields":{"id":{"type":"integer"},"name":{"type":"string"}}}`)

	sqlStr, _, err := query.New(db, "app_tags", ormdriver.MySQLDialect{}).
		Where("id", int64(5)).
		Select("id", "name").
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	mock.ExpectQuery(regexp.QuoteMeta(sqlStr)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(5), "x"))
	mock.ExpectExec("DELETE FROM").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := r.Delete(context.Background(), s, int64(5)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCoerce(t *testing.T) {
	intField := &schema.Field{Name: "n", Type: schema.TypeInteger}
	boolField := &schema.Field{Name: "b", Type: schema.FieldType("toggle")}
	cases := []struct {
		name string
		def  *schema.Field
		in   any
		want any
	}{
		{"float to int", intField, float64(7), int64(7)},
		{"string to int", intField, "42", int64(42)},
		{"string to bool", boolField, "true", true},
		{"float to bool", boolField, float64(0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := coerce(tc.def, tc.in)
			if err != nil {
				t.Fatalf("coerce: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %#v, want %#v", got, tc.want)
			}
		})
	}
}
