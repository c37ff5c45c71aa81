package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/document"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
)

// Mapper turns CSV records into documents of a schema. Cells are parsed
// according to the target field's value type.
type Mapper struct {
	mapping *DataMapping
	parent  *schema.Schema
}

func NewMapper(mapping *DataMapping, parent *schema.Schema) *Mapper {
	return &Mapper{mapping: mapping, parent: parent}
}

// Mapped is a document plus the id of its parent when the row is a child.
type Mapped struct {
	Document document.Document
	ParentID string
}

func (m *Mapper) Map(row Row) (Mapped, error) {
	var out Mapped
	if m.mapping.Parent != "" {
		out.ParentID = strings.TrimSpace(row.Record[m.mapping.Parent])
	}
	target := m.parent
	if out.ParentID != "" {
		target = m.parent.Child()
	}

	doc := document.Document{
		Type:   target.Type(),
		Values: map[string][]any{},
	}
	if m.mapping.ID != "" {
		doc.ID = strings.TrimSpace(row.Record[m.mapping.ID])
	}

	for _, fm := range m.mapping.FieldMappings {
		f, ok := target.Field(fm.target())
		if !ok {
			// the mapping covers both types; the field belongs to the other one
			continue
		}
		cell, present := row.Record[fm.Source]
		cell = strings.TrimSpace(cell)
		if !present || cell == "" {
			if fm.Required {
				return out, &MappingError{Line: row.Line, Message: fmt.Sprintf("missing required column %q", fm.Source)}
			}
			continue
		}

		parts := []string{cell}
		if fm.Separator != "" {
			parts = strings.Split(cell, fm.Separator)
		}
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			v, err := m.parse(f, p)
			if err != nil {
				return out, &MappingError{Line: row.Line, Message: fmt.Sprintf("column %q: %v", fm.Source, err)}
			}
			doc.Values[f.Name()] = append(doc.Values[f.Name()], v)
		}
	}
	out.Document = doc
	return out, nil
}

// parse converts a cell into a value document.Coerce accepts for f.
func (m *Mapper) parse(f *schema.Field, s string) (any, error) {
	switch f.Type() {
	case schema.Int, schema.Long:
		return strconv.ParseInt(s, 10, 64)
	case schema.Float, schema.Double:
		return strconv.ParseFloat(s, 64)
	case schema.Bool:
		return strconv.ParseBool(s)
	case schema.Date, schema.ZonedDateTime:
		if m.mapping.DateFormat != "" {
			return time.Parse(m.mapping.DateFormat, s)
		}
		return s, nil
	case schema.Binary:
		return []byte(s), nil
	default:
		return s, nil
	}
}
