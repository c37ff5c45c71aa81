// Package serialize turns filter and facet trees into backend-neutral queries,
// resolving logical fields to physical names against a parent and an optional
// child schema.
package serialize

import (
	"log/slog"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/fieldname"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
)

// Config is passed explicitly to every serializer; there is no global state.
type Config struct {
	// Context selects the per-context variant of contextualized fields.
	Context string
	// Strict turns unknown fields and unsupported use-cases into errors.
	// Otherwise the affected predicates and facets are dropped.
	Strict bool
	// IncludeScore asks the backend to return relevance scores.
	IncludeScore bool
	// Now resolves relative dates in facet buckets. Defaults to time.Now.
	Now func() time.Time
}

// Serializer is immutable and safe for concurrent use.
type Serializer struct {
	parent *schema.Schema
	child  *schema.Schema
	cfg    Config
}

// New builds a serializer. With a nil child schema filters are rendered
// structurally; with a child schema they are normalized and split into
// parent predicates and block-join fragments.
func New(parent, child *schema.Schema, cfg Config) (*Serializer, error) {
	if parent == nil {
		return nil, apperr.NewValidation("serializer: parent schema is required")
	}
	if child != nil && child.Type() == parent.Type() {
		return nil, apperr.NewValidation("serializer: child type must differ from parent type")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Serializer{parent: parent, child: child, cfg: cfg}, nil
}

// ForSchema uses the child schema declared on parent, if any.
func ForSchema(parent *schema.Schema, cfg Config) (*Serializer, error) {
	return New(parent, parent.Child(), cfg)
}

func (s *Serializer) Config() Config { return s.cfg }

// SortField orders results by a logical field.
type SortField struct {
	Field string
	Desc  bool
}

// Request is a complete logical search request.
type Request struct {
	Text   string
	Filter filter.Filter
	Facets []facet.Facet
	Sort   []SortField
}

// Query serializes a whole request.
func (s *Serializer) Query(req Request) (*query.Query, error) {
	q := &query.Query{
		ParentType:   s.parent.Type(),
		Context:      s.cfg.Context,
		IncludeScore: s.cfg.IncludeScore,
	}
	if s.child != nil {
		q.ChildType = s.child.Type()
	}

	if req.Text != "" {
		text, err := s.text(req.Text)
		if err != nil {
			return nil, err
		}
		q.Text = text
	}

	if req.Filter != nil {
		node, err := s.Filter(req.Filter)
		if err != nil {
			return nil, err
		}
		q.Filter = node
	}

	facets, err := s.Facets(req.Facets...)
	if err != nil {
		return nil, err
	}
	q.Facets = facets

	for _, sf := range req.Sort {
		sorted, ok, err := s.sort(sf)
		if err != nil {
			return nil, err
		}
		if ok {
			q.Sort = append(q.Sort, sorted)
		}
	}
	return q, nil
}

func (s *Serializer) text(text string) (*query.Text, error) {
	t := &query.Text{Query: text}
	for _, f := range s.parent.TextFields() {
		name, ok := fieldname.Encode(f, schema.Fulltext, s.cfg.Context)
		if !ok {
			continue
		}
		t.Fields = append(t.Fields, query.TextField{Name: name, Boost: f.Boost()})
	}
	if len(t.Fields) == 0 {
		if s.cfg.Strict {
			return nil, apperr.Unsupported("schema %q has no full-text fields", s.parent.Type())
		}
		slog.Debug("Dropping text query", "schema", s.parent.Type(), "reason", "no full-text fields")
		return nil, nil
	}
	return t, nil
}

func (s *Serializer) sort(sf SortField) (query.Sort, bool, error) {
	f, ok := s.parent.Field(sf.Field)
	if !ok {
		return query.Sort{}, false, s.unknown(sf.Field)
	}
	name, ok := fieldname.Encode(f, schema.Sort, s.cfg.Context)
	if !ok {
		return query.Sort{}, false, s.unsupported(sf.Field, schema.Sort)
	}
	return query.Sort{Field: name, Desc: sf.Desc}, true, nil
}

// unknown returns the strict-mode error for a missing field, or logs the drop.
func (s *Serializer) unknown(field string) error {
	if s.cfg.Strict {
		return apperr.UnknownField(field, s.schemaTypes())
	}
	slog.Debug("Dropping predicate", "field", field, "reason", "unknown field", "schema", s.schemaTypes())
	return nil
}

func (s *Serializer) unsupported(field string, uc schema.UseCase) error {
	if s.cfg.Strict {
		return apperr.UnsupportedUseCase(field, uc.String())
	}
	slog.Debug("Dropping predicate", "field", field, "reason", "unsupported use-case", "use_case", uc.String())
	return nil
}

func (s *Serializer) schemaTypes() string {
	if s.child == nil {
		return s.parent.Type()
	}
	return s.parent.Type() + "/" + s.child.Type()
}
