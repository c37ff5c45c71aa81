// Package result maps the physical field names found in backend hits back to
// logical fields.
package result

import (
	"log/slog"

	"github.com/DjordjeVuckovic/facetq/internal/document"
	"github.com/DjordjeVuckovic/facetq/internal/fieldname"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
)

// Hit is one decoded search result.
type Hit struct {
	document.Document
	Score float64 `json:"score,omitempty"`
}

// Decoder is bound to one schema and search context.
type Decoder struct {
	schema  *schema.Schema
	context string
}

func NewDecoder(s *schema.Schema, context string) *Decoder {
	return &Decoder{schema: s, context: context}
}

// Document decodes raw physical fields. Names the schema does not produce are
// ignored. When a field comes back under several variants the stored one wins;
// complex fields are only read from their stored variant.
func (d *Decoder) Document(id string, raw map[string]any) document.Document {
	doc := document.Document{
		ID:     id,
		Type:   d.schema.Type(),
		Values: make(map[string][]any),
	}
	fromStored := map[string]bool{}

	for physical, v := range raw {
		r, ok := fieldname.Resolve(d.schema, physical, d.context)
		if !ok {
			slog.Debug("Ignoring result field", "field", physical, "schema", d.schema.Type())
			continue
		}
		f := r.Field
		stored := r.UseCase == schema.Stored
		if f.IsComplex() && !stored {
			continue
		}
		if fromStored[f.Name()] && !stored {
			continue
		}
		if _, seen := doc.Values[f.Name()]; seen && !stored {
			continue
		}

		values := d.values(f, r.UseCase, v)
		if len(values) == 0 {
			continue
		}
		doc.Values[f.Name()] = values
		fromStored[f.Name()] = stored
	}
	return doc
}

func (d *Decoder) values(f *schema.Field, uc schema.UseCase, v any) []any {
	t, ok := f.EffectiveType(uc)
	if !ok {
		return nil
	}

	var raw []any
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		raw = x
	default:
		raw = []any{x}
	}

	out := make([]any, 0, len(raw))
	for _, rv := range raw {
		cv, err := document.Coerce(t, rv)
		if err != nil {
			slog.Warn("Dropping undecodable value", "field", f.Name(), "type", t.String(), "error", err)
			continue
		}
		out = append(out, cv)
	}
	return out
}
