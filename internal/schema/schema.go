package schema

import (
	"fmt"
	"strings"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
)

// Schema is a named, ordered collection of field descriptors with an optional
// child schema (nested documents indexed in the parent's block).
// A Schema is built once and is read-only afterwards.
type Schema struct {
	typ    string
	fields []*Field
	byName map[string]*Field
	child  *Schema
}

type Option func(s *Schema)

// WithChild attaches the child document schema.
func WithChild(child *Schema) Option {
	return func(s *Schema) { s.child = child }
}

func New(typ string, fields []*Field, opts ...Option) (*Schema, error) {
	if typ == "" {
		return nil, apperr.NewValidation("schema type is required")
	}

	s := &Schema{
		typ:    typ,
		fields: make([]*Field, 0, len(fields)),
		byName: make(map[string]*Field, len(fields)),
	}
	for _, f := range fields {
		if f == nil {
			return nil, apperr.NewValidation(fmt.Sprintf("schema %q: nil field", typ))
		}
		if _, dup := s.byName[f.Name()]; dup {
			return nil, apperr.NewValidation(fmt.Sprintf("schema %q: duplicate field %q", typ, f.Name()))
		}
		s.fields = append(s.fields, f)
		s.byName[f.Name()] = f
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.child != nil {
		if s.child.typ == typ {
			return nil, apperr.NewValidation(fmt.Sprintf("schema %q: child type must differ from parent", typ))
		}
		if s.child.child != nil {
			return nil, apperr.NewValidation(fmt.Sprintf("schema %q: only one level of nesting is supported", typ))
		}
	}
	if err := s.checkContextNames(); err != nil {
		return nil, err
	}

	return s, nil
}

// checkContextNames rejects a field named <anything>_<name> next to a
// contextualized field <name>: under context <anything> both would encode to
// the same physical name. Parent and child share one index, so both levels
// are checked together.
func (s *Schema) checkContextNames() error {
	all := s.fields
	if s.child != nil {
		all = append(append([]*Field(nil), s.fields...), s.child.fields...)
	}
	for _, c := range all {
		if !c.IsContextualized() {
			continue
		}
		for _, f := range all {
			if f != c && strings.HasSuffix(f.Name(), "_"+c.Name()) {
				return apperr.NewValidation(fmt.Sprintf(
					"schema %q: field %q is ambiguous with contextualized field %q", s.typ, f.Name(), c.Name()))
			}
		}
	}
	return nil
}

// MustNew panics on error; meant for static schema declarations.
func MustNew(typ string, fields []*Field, opts ...Option) *Schema {
	s, err := New(typ, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Type() string { return s.typ }

func (s *Schema) Child() *Schema { return s.child }

// Fields returns the descriptors in declaration order.
func (s *Schema) Fields() []*Field {
	out := make([]*Field, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

func (s *Schema) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// TextFields returns the full-text fields in declaration order.
func (s *Schema) TextFields() []*Field {
	var out []*Field
	for _, f := range s.fields {
		if f.IsFullText() {
			out = append(out, f)
		}
	}
	return out
}
