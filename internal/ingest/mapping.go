package ingest

import (
	"fmt"
	"io"

	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"gopkg.in/yaml.v3"
)

// DataMapping maps the columns of a tabular dataset onto schema fields.
// Rows whose Parent column is set become children of the row with that id.
type DataMapping struct {
	Kind          string         `yaml:"kind"`
	Version       string         `yaml:"version"`
	Metadata      Metadata       `yaml:"metadata"`
	ID            string         `yaml:"id"`
	Parent        string         `yaml:"parent,omitempty"`
	FieldMappings []FieldMapping `yaml:"fieldMappings"`
	DateFormat    string         `yaml:"dateFormat,omitempty"`
}

type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

type FieldMapping struct {
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
	Required bool   `yaml:"required,omitempty"`
	// Separator splits a cell into the values of a multi-valued field.
	Separator string `yaml:"separator,omitempty"`
}

func (dm *DataMapping) Validate(sc *schema.Schema) error {
	if dm.Kind == "" {
		return fmt.Errorf("kind is required")
	}
	if dm.Version == "" {
		return fmt.Errorf("version is required")
	}
	if dm.Metadata.Name == "" {
		return fmt.Errorf("metadata.name is required")
	}
	if len(dm.FieldMappings) == 0 {
		return fmt.Errorf("at least one field mapping is required")
	}
	if dm.Parent != "" && sc.Child() == nil {
		return fmt.Errorf("parent column %q set but schema %s has no child type", dm.Parent, sc.Type())
	}
	for i, fm := range dm.FieldMappings {
		if fm.Source == "" {
			return fmt.Errorf("fieldMappings[%d] must have source defined", i)
		}
		target := fm.target()
		if !sc.Has(target) && (sc.Child() == nil || !sc.Child().Has(target)) {
			return fmt.Errorf("fieldMappings[%d]: unknown target field %q", i, target)
		}
	}
	return nil
}

func (fm FieldMapping) target() string {
	if fm.Target != "" {
		return fm.Target
	}
	return fm.Source
}

type MappingError struct {
	Line    int
	Message string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping error at line %d: %s", e.Line, e.Message)
}

// LoadMapping decodes a YAML mapping and, when sc is not nil, validates it.
func LoadMapping(r io.Reader, sc *schema.Schema) (*DataMapping, error) {
	var mapping DataMapping
	if err := yaml.NewDecoder(r).Decode(&mapping); err != nil {
		return nil, err
	}
	if sc != nil {
		if err := mapping.Validate(sc); err != nil {
			return nil, err
		}
	}
	return &mapping, nil
}
