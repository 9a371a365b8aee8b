// Package schema defines the declarative documents that drive the dynamic
// admin engine: field definitions, relationships, detail grids and actions
// for one storage table, plus loading, validation and context filtering.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"
)

// Context names a visibility view of a schema.
type Context string

const (
	ContextList   Context = "list"
	ContextForm   Context = "form"
	ContextDetail Context = "detail"
	ContextMeta   Context = "meta"
)

// AllContexts lists every context in presentation order.
var AllContexts = []Context{ContextList, ContextForm, ContextDetail, ContextMeta}

// ParseContexts splits a comma-separated context expression into tokens.
// An empty expression yields nil (the full, unfiltered schema).
func ParseContexts(expr string) ([]Context, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	var out []Context
	for _, tok := range strings.Split(expr, ",") {
		tok = strings.TrimSpace(tok)
		switch Context(tok) {
		case ContextList, ContextForm, ContextDetail, ContextMeta:
			out = append(out, Context(tok))
		default:
			return nil, fmt.Errorf("unknown context %q", tok)
		}
	}
	return out, nil
}

// FieldType enumerates the storage-relevant field types. UI-only subtypes
// (email, url, password, select, textarea) are normalized onto these.
type FieldType string

const (
	TypeInteger  FieldType = "integer"
	TypeString   FieldType = "string"
	TypeText     FieldType = "text"
	TypeDecimal  FieldType = "decimal"
	TypeFloat    FieldType = "float"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeDatetime FieldType = "datetime"
	TypeJSON     FieldType = "json"
)

// uiSubtypes maps presentation-only type names to their storage type.
var uiSubtypes = map[string]FieldType{
	"email":    TypeString,
	"url":      TypeString,
	"password": TypeString,
	"select":   TypeString,
	"textarea": TypeText,
	"markdown": TypeText,
	"currency": TypeDecimal,
	"toggle":   TypeBoolean,
}

// Storage returns the storage-relevant type for t, resolving UI subtypes.
func (t FieldType) Storage() FieldType {
	if st, ok := uiSubtypes[string(t)]; ok {
		return st
	}
	return t
}

// Textual reports whether values of this type participate in LIKE search.
func (t FieldType) Textual() bool {
	switch t.Storage() {
	case TypeString, TypeText:
		return true
	}
	return false
}

func (t FieldType) known() bool {
	if _, ok := uiSubtypes[string(t)]; ok {
		return true
	}
	switch t {
	case TypeInteger, TypeString, TypeText, TypeDecimal, TypeFloat,
		TypeBoolean, TypeDate, TypeDatetime, TypeJSON:
		return true
	}
	return false
}

// Field describes one column of the owning schema.
type Field struct {
	Name       string         `json:"-"`
	Type       FieldType      `json:"type"`
	Label      string         `json:"label,omitempty"`
	Required   bool           `json:"required,omitempty"`
	Readonly   bool           `json:"readonly,omitempty"`
	Computed   bool           `json:"computed,omitempty"`
	Sortable   bool           `json:"sortable,omitempty"`
	Filterable bool           `json:"filterable,omitempty"`
	Searchable bool           `json:"searchable,omitempty"`
	FilterType string         `json:"filter_type,omitempty"` // eq (default), like, in, range
	ShowIn     []Context      `json:"showIn,omitempty"`
	Validation map[string]any `json:"validation,omitempty"`
	Default    any            `json:"default,omitempty"`
}

// ShownIn reports whether the field is visible in the given context.
// A field without an explicit showIn list is visible nowhere except the
// full (unfiltered) schema, so credential-style fields stay hidden unless
// the author opts them in.
func (f *Field) ShownIn(c Context) bool {
	for _, s := range f.ShowIn {
		if s == c {
			return true
		}
	}
	return false
}

// DisplayLabel returns the declared label, or one derived from the name.
func (f *Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	words := strcase.ToDelimited(f.Name, ' ')
	if words == "" {
		return f.Name
	}
	return strings.ToUpper(words[:1]) + words[1:]
}

// Fields is an insertion-ordered field map. Document order matters for the
// UI, so the JSON codec preserves key order instead of relying on Go maps.
type Fields struct {
	names  []string
	byName map[string]*Field
}

// NewFields builds a Fields collection from the given definitions in order.
func NewFields(defs ...*Field) Fields {
	f := Fields{byName: make(map[string]*Field, len(defs))}
	for _, d := range defs {
		f.Set(d.Name, d)
	}
	return f
}

// Set inserts or replaces a field definition.
func (f *Fields) Set(name string, def *Field) {
	if f.byName == nil {
		f.byName = make(map[string]*Field)
	}
	if _, ok := f.byName[name]; !ok {
		f.names = append(f.names, name)
	}
	def.Name = name
	f.byName[name] = def
}

// Get returns the field definition for name.
func (f *Fields) Get(name string) (*Field, bool) {
	d, ok := f.byName[name]
	return d, ok
}

// Names returns the field names in document order.
func (f *Fields) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Len returns the number of fields.
func (f *Fields) Len() int { return len(f.names) }

// Each calls fn for every field in document order.
func (f *Fields) Each(fn func(name string, def *Field)) {
	for _, n := range f.names {
		fn(n, f.byName[n])
	}
}

// MarshalJSON writes the fields as an object in document order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range f.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(f.byName[n])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keeping the key order it appears in.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields: expected object")
	}
	*f = Fields{byName: make(map[string]*Field)}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := kt.(string)
		var def Field
		if err := dec.Decode(&def); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		f.Set(name, &def)
	}
	_, err = dec.Token() // closing brace
	return err
}

// RelationType tags a relationship definition. The zero value is the plain
// foreign-key one-to-many fallback.
type RelationType string

const (
	RelationForeignKey        RelationType = ""
	RelationManyToMany        RelationType = "many_to_many"
	RelationManyToManyThrough RelationType = "belongs_to_many_through"
)

// Relationship describes how related rows are reached from a parent record.
type Relationship struct {
	Name  string       `json:"name"`
	Type  RelationType `json:"type,omitempty"`
	Model string       `json:"model"` // related schema name

	// foreign-key fallback
	ForeignKey string `json:"foreignKey,omitempty"`

	// many_to_many
	PivotTable string `json:"pivotTable,omitempty"`
	RelatedKey string `json:"relatedKey,omitempty"`

	// belongs_to_many_through
	Through          string `json:"through,omitempty"`
	FirstPivotTable  string `json:"firstPivotTable,omitempty"`
	FirstForeignKey  string `json:"firstForeignKey,omitempty"`
	FirstRelatedKey  string `json:"firstRelatedKey,omitempty"`
	SecondPivotTable string `json:"secondPivotTable,omitempty"`
	SecondForeignKey string `json:"secondForeignKey,omitempty"`
	SecondRelatedKey string `json:"secondRelatedKey,omitempty"`
}

// Detail describes a nested one-to-many collection shown on a detail view.
type Detail struct {
	Model      string `json:"model"`
	ForeignKey string `json:"foreignKey,omitempty"`
	Label      string `json:"label,omitempty"`
}

// Key returns the foreign key column, deriving "<parent singular>_id" from
// the parent model name when the document omits it.
func (d *Detail) Key(parentModel string) string {
	if d.ForeignKey != "" {
		return d.ForeignKey
	}
	return inflection.Singular(parentModel) + "_id"
}

// ActionType tags a schema-declared action.
type ActionType string

const (
	ActionFieldUpdate ActionType = "field_update"
	ActionRoute       ActionType = "route"
	ActionAPICall     ActionType = "api_call"
	ActionModal       ActionType = "modal"
)

// Action describes a permission-gated operation triggerable on one record.
type Action struct {
	Key            string     `json:"key"`
	Type           ActionType `json:"type"`
	Field          string     `json:"field,omitempty"`
	Toggle         bool       `json:"toggle,omitempty"`
	Value          any        `json:"value,omitempty"`
	Permission     string     `json:"permission,omitempty"`
	Confirm        string     `json:"confirm,omitempty"`
	SuccessMessage string     `json:"successMessage,omitempty"`
	URL            string     `json:"url,omitempty"`
	ShowIn         []Context  `json:"showIn,omitempty"`
}

// verbFields maps leading action-key verbs onto the flag column they toggle.
var verbFields = map[string]string{
	"enable":     "flag_enabled",
	"disable":    "flag_enabled",
	"activate":   "flag_active",
	"deactivate": "flag_active",
	"publish":    "flag_published",
	"unpublish":  "flag_published",
	"lock":       "flag_locked",
	"unlock":     "flag_locked",
}

// TargetField returns the column a field_update action writes. When the
// document omits it, the column is inferred from the leading verb of the
// action key (disable_user -> flag_enabled).
func (a *Action) TargetField() string {
	if a.Field != "" {
		return a.Field
	}
	verb := a.Key
	if i := strings.IndexByte(verb, '_'); i > 0 {
		verb = verb[:i]
	}
	return verbFields[strings.ToLower(verb)]
}

// ShownIn reports whether the action is visible in the given context.
// An action without an explicit showIn list is always visible.
func (a *Action) ShownIn(c Context) bool {
	if len(a.ShowIn) == 0 {
		return true
	}
	for _, s := range a.ShowIn {
		if s == c {
			return true
		}
	}
	return false
}

// Schema is the declarative document describing one table.
type Schema struct {
	Model         string            `json:"model"`
	Table         string            `json:"table"`
	PrimaryKey    string            `json:"primaryKey,omitempty"`
	Connection    string            `json:"connection,omitempty"`
	Timestamps    bool              `json:"timestamps,omitempty"`
	SoftDelete    bool              `json:"softDelete,omitempty"`
	Title         string            `json:"title,omitempty"`
	Fields        Fields            `json:"fields"`
	Relationships []Relationship    `json:"relationships,omitempty"`
	Details       []Detail          `json:"details,omitempty"`
	Actions       []Action          `json:"actions,omitempty"`
	Permissions   map[string]string `json:"permissions,omitempty"`
}

// PK returns the primary key column, defaulting to "id".
func (s *Schema) PK() string {
	if s.PrimaryKey == "" {
		return "id"
	}
	return s.PrimaryKey
}

// Relationship returns the named relationship definition.
func (s *Schema) Relationship(name string) (*Relationship, bool) {
	for i := range s.Relationships {
		if s.Relationships[i].Name == name {
			return &s.Relationships[i], true
		}
	}
	return nil, false
}

// DetailFor returns the detail descriptor targeting the given model.
func (s *Schema) DetailFor(model string) (*Detail, bool) {
	for i := range s.Details {
		if s.Details[i].Model == model {
			return &s.Details[i], true
		}
	}
	return nil, false
}

// ActionByKey returns the action with the given key.
func (s *Schema) ActionByKey(key string) (*Action, bool) {
	for i := range s.Actions {
		if s.Actions[i].Key == key {
			return &s.Actions[i], true
		}
	}
	return nil, false
}

// Decode parses a schema document from JSON.
func Decode(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &s, nil
}
