// Package document turns logical documents into the physical field maps the
// backends index, one entry per field variant produced by the field-name codec.
package document

import (
	"fmt"
	"math"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/fieldname"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/google/uuid"
)

// Document is a logical document: values keyed by logical field name.
type Document struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Values   map[string][]any `json:"values"`
	Children []Document       `json:"children,omitempty"`
}

// Encoded is a document ready for indexing.
type Encoded struct {
	ID       string
	Type     string
	ParentID string
	Fields   map[string][]any
	Children []Encoded
}

type Encoder struct {
	parent  *schema.Schema
	context string
}

func NewEncoder(parent *schema.Schema, context string) *Encoder {
	return &Encoder{parent: parent, context: context}
}

// Encode validates doc against the schema and emits every physical variant of
// every field. Children are encoded against the child schema and inherit the
// parent id. A missing id is generated.
func (e *Encoder) Encode(doc Document) (Encoded, error) {
	out, err := e.encode(doc, e.parent, "")
	if err != nil {
		return Encoded{}, err
	}
	if len(doc.Children) == 0 {
		return out, nil
	}

	child := e.parent.Child()
	if child == nil {
		return Encoded{}, apperr.NewValidation(fmt.Sprintf("schema %q does not declare child documents", e.parent.Type()))
	}
	for i, c := range doc.Children {
		if len(c.Children) > 0 {
			return Encoded{}, apperr.NewValidation(fmt.Sprintf("child document %d: only one level of nesting is supported", i))
		}
		enc, err := e.encode(c, child, out.ID)
		if err != nil {
			return Encoded{}, fmt.Errorf("child document %d: %w", i, err)
		}
		out.Children = append(out.Children, enc)
	}
	return out, nil
}

func (e *Encoder) encode(doc Document, s *schema.Schema, parentID string) (Encoded, error) {
	if doc.Type != "" && doc.Type != s.Type() {
		return Encoded{}, apperr.NewValidation(fmt.Sprintf("document type %q does not match schema %q", doc.Type, s.Type()))
	}
	for name := range doc.Values {
		if !s.Has(name) {
			return Encoded{}, apperr.UnknownField(name, s.Type())
		}
	}

	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}
	out := Encoded{
		ID:       id,
		Type:     s.Type(),
		ParentID: parentID,
		Fields:   make(map[string][]any),
	}

	for _, f := range s.Fields() {
		values := doc.Values[f.Name()]
		if len(values) == 0 {
			continue
		}
		if !f.IsMulti() && !f.IsComplex() && len(values) > 1 {
			return Encoded{}, fieldError(f, "single-valued field has %d values", len(values))
		}
		for _, uc := range schema.UseCases {
			name, ok := fieldname.Encode(f, uc, e.context)
			if !ok {
				continue
			}
			projected, err := project(f, uc, values)
			if err != nil {
				return Encoded{}, err
			}
			if len(projected) > 0 {
				out.Fields[name] = projected
			}
		}
	}
	return out, nil
}

func project(f *schema.Field, uc schema.UseCase, values []any) ([]any, error) {
	if !f.IsComplex() {
		out := make([]any, 0, len(values))
		for _, v := range values {
			cv, err := Coerce(f.Type(), v)
			if err != nil {
				return nil, fieldError(f, "%v", err)
			}
			out = append(out, cv)
		}
		return out, nil
	}

	p, ok := f.ProjectionFor(uc)
	if !ok {
		return nil, nil
	}
	var out []any
	for _, v := range values {
		for _, pv := range p.Fn(v) {
			cv, err := Coerce(p.Type, pv)
			if err != nil {
				return nil, fieldError(f, "%s projection: %v", uc, err)
			}
			out = append(out, cv)
		}
	}
	return out, nil
}

// Coerce checks v against the value domain t and converts it to the canonical
// Go type of that domain: int64 for Int and Long, float64 for Float and
// Double, UTC time.Time for dates. Numbers decoded from JSON are accepted for
// integer domains when they are integral.
func Coerce(t schema.ValueType, v any) (any, error) {
	switch t {
	case schema.Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case schema.Int, schema.Long:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case int64:
			return x, nil
		case float64:
			if x == math.Trunc(x) {
				return int64(x), nil
			}
		}
	case schema.Float, schema.Double:
		switch x := v.(type) {
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case float32:
			return float64(x), nil
		case float64:
			return x, nil
		}
	case schema.String:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case schema.Date, schema.ZonedDateTime:
		switch x := v.(type) {
		case time.Time:
			if t == schema.ZonedDateTime {
				return x, nil
			}
			return x.UTC(), nil
		case string:
			ts, err := time.Parse(time.RFC3339Nano, x)
			if err != nil {
				return nil, fmt.Errorf("invalid %s value %q: %w", t, x, err)
			}
			return Coerce(t, ts)
		}
	case schema.Binary:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	case schema.GeoPoint:
		switch x := v.(type) {
		case filter.GeoPoint:
			if err := x.Validate(); err != nil {
				return nil, err
			}
			return x, nil
		case string:
			return filter.ParseGeoPoint(x)
		}
	}
	return nil, fmt.Errorf("value %v (%T) is not a valid %s", v, v, t)
}

// Wire converts a coerced value to its JSON-friendly form: RFC3339 strings for
// dates and "lat,lon" for geo points.
func Wire(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case filter.GeoPoint:
		return x.String()
	default:
		return v
	}
}

// WireFields applies Wire to every value of an encoded field map.
func WireFields(fields map[string][]any) map[string]any {
	out := make(map[string]any, len(fields))
	for name, values := range fields {
		wire := make([]any, len(values))
		for i, v := range values {
			wire[i] = Wire(v)
		}
		out[name] = wire
	}
	return out
}

func fieldError(f *schema.Field, format string, args ...any) error {
	return &apperr.Error{
		Kind:    apperr.KindValidation,
		Message: fmt.Sprintf(format, args...),
		Field:   f.Name(),
	}
}
