package schema

import (
	"fmt"
	"io"
	"os"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"gopkg.in/yaml.v3"
)

// FieldSpec is the YAML form of a field descriptor.
// Complex fields need projection functions and cannot be declared in YAML.
type FieldSpec struct {
	Name           string  `yaml:"name" json:"name"`
	Type           string  `yaml:"type" json:"type"`
	Multi          bool    `yaml:"multi,omitempty" json:"multi,omitempty"`
	Facet          bool    `yaml:"facet,omitempty" json:"facet,omitempty"`
	Suggest        bool    `yaml:"suggest,omitempty" json:"suggest,omitempty"`
	FullText       bool    `yaml:"fulltext,omitempty" json:"fulltext,omitempty"`
	Sort           bool    `yaml:"sort,omitempty" json:"sort,omitempty"`
	Stored         bool    `yaml:"stored,omitempty" json:"stored,omitempty"`
	Contextualized bool    `yaml:"contextualized,omitempty" json:"contextualized,omitempty"`
	Boost          float64 `yaml:"boost,omitempty" json:"boost,omitempty"`
	Language       string  `yaml:"language,omitempty" json:"language,omitempty"`
}

// Spec is the YAML form of a document schema.
type Spec struct {
	Type   string      `yaml:"type" json:"type"`
	Fields []FieldSpec `yaml:"fields" json:"fields"`
	Child  *Spec       `yaml:"child,omitempty" json:"child,omitempty"`
}

type YAMLLoader struct {
	reader io.Reader
}

func NewYAMLLoader(reader io.Reader) *YAMLLoader {
	return &YAMLLoader{
		reader: reader,
	}
}

func (l *YAMLLoader) Load() (*Schema, error) {
	decoder := yaml.NewDecoder(l.reader)
	decoder.KnownFields(true)

	var spec Spec
	if err := decoder.Decode(&spec); err != nil {
		return nil, apperr.NewValidationWrap("invalid schema yaml", err)
	}
	return spec.Build()
}

// LoadFile reads a YAML schema from path.
func LoadFile(path string) (*Schema, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer file.Close()

	return NewYAMLLoader(file).Load()
}

// Build turns the spec into an immutable Schema.
func (s Spec) Build() (*Schema, error) {
	fields := make([]*Field, 0, len(s.Fields))
	for _, fs := range s.Fields {
		f, err := fs.build()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	var opts []Option
	if s.Child != nil {
		child, err := s.Child.Build()
		if err != nil {
			return nil, fmt.Errorf("child schema: %w", err)
		}
		opts = append(opts, WithChild(child))
	}
	return New(s.Type, fields, opts...)
}

func (fs FieldSpec) build() (*Field, error) {
	t, err := ParseValueType(fs.Type)
	if err != nil {
		return nil, apperr.NewValidationWrap(fmt.Sprintf("field %q", fs.Name), err)
	}
	if t == Complex {
		return nil, apperr.NewValidation(fmt.Sprintf("field %q: complex fields cannot be declared in yaml", fs.Name))
	}

	var opts []FieldOption
	flags := []struct {
		set bool
		opt FieldOption
	}{
		{fs.Multi, MultiValued()},
		{fs.Facet, Facetable()},
		{fs.Suggest, Suggestible()},
		{fs.FullText, FullText()},
		{fs.Sort, Sortable()},
		{fs.Stored, Storable()},
		{fs.Contextualized, Contextualized()},
	}
	for _, fl := range flags {
		if fl.set {
			opts = append(opts, fl.opt)
		}
	}
	if fs.Boost != 0 {
		opts = append(opts, WithBoost(fs.Boost))
	}
	if fs.Language != "" {
		opts = append(opts, WithLanguage(fs.Language))
	}
	return NewField(fs.Name, t, opts...)
}

// SpecOf describes s in its YAML form. Complex fields are listed with their
// type only.
func SpecOf(s *Schema) Spec {
	spec := Spec{Type: s.Type()}
	for _, f := range s.Fields() {
		spec.Fields = append(spec.Fields, FieldSpec{
			Name:           f.Name(),
			Type:           f.Type().String(),
			Multi:          f.IsMulti(),
			Facet:          f.IsFacet(),
			Suggest:        f.IsSuggest(),
			FullText:       f.IsFullText(),
			Sort:           f.IsSort(),
			Stored:         f.IsStored(),
			Contextualized: f.IsContextualized(),
			Boost:          f.Boost(),
			Language:       f.Language(),
		})
	}
	if child := s.Child(); child != nil {
		c := SpecOf(child)
		spec.Child = &c
	}
	return spec
}

// LoadYAML decodes a single YAML schema document.
func LoadYAML(r io.Reader) (*Schema, error) {
	return NewYAMLLoader(r).Load()
}
