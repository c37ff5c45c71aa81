package schema

import (
	"fmt"
	"regexp"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
)

var validFieldNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Projection maps one logical value of a complex field to the values indexed
// for a single use-case.
type Projection struct {
	Type ValueType
	Fn   func(v any) []any
}

// Field is an immutable field descriptor. The value-type bucket is resolved once,
// at construction, and never recomputed at query time.
type Field struct {
	name        string
	valueType   ValueType
	bucket      Bucket
	cardinality Cardinality

	facet          bool
	suggest        bool
	fulltext       bool
	sort           bool
	stored         bool
	advancedFilter bool
	contextualized bool

	boost    float64
	language string

	projections map[UseCase]Projection
	buckets     map[UseCase]Bucket
}

type FieldOption func(f *Field)

// MultiValued marks the field multi-valued.
func MultiValued() FieldOption {
	return func(f *Field) { f.cardinality = Multi }
}

func Facetable() FieldOption {
	return func(f *Field) { f.facet = true }
}

func Suggestible() FieldOption {
	return func(f *Field) { f.suggest = true }
}

func FullText() FieldOption {
	return func(f *Field) { f.fulltext = true }
}

func Sortable() FieldOption {
	return func(f *Field) { f.sort = true }
}

// Storable marks the field updatable: its value is kept and returned with results.
func Storable() FieldOption {
	return func(f *Field) { f.stored = true }
}

func AdvancedFilter() FieldOption {
	return func(f *Field) { f.advancedFilter = true }
}

// Contextualized gives the field one variant per search context (tenant, locale, ...).
func Contextualized() FieldOption {
	return func(f *Field) { f.contextualized = true }
}

func WithBoost(boost float64) FieldOption {
	return func(f *Field) { f.boost = boost }
}

func WithLanguage(code string) FieldOption {
	return func(f *Field) { f.language = code }
}

// WithProjection declares how a complex field is indexed for one use-case.
// Declaring a projection enables the matching capability.
func WithProjection(uc UseCase, p Projection) FieldOption {
	return func(f *Field) {
		if f.projections == nil {
			f.projections = make(map[UseCase]Projection)
		}
		f.projections[uc] = p
		switch uc {
		case Facet:
			f.facet = true
		case Suggest:
			f.suggest = true
		case Fulltext:
			f.fulltext = true
		case Sort:
			f.sort = true
		case Filter:
			f.advancedFilter = true
		case Stored:
			f.stored = true
		}
	}
}

// NewField builds a field descriptor.
func NewField(name string, t ValueType, opts ...FieldOption) (*Field, error) {
	if !validFieldNameRe.MatchString(name) {
		return nil, apperr.NewValidation(fmt.Sprintf("invalid field name %q (must match %s)", name, validFieldNameRe))
	}
	if _, ok := valueTypeNames[t]; !ok {
		return nil, apperr.NewValidation(fmt.Sprintf("field %q: unknown value type", name))
	}

	f := &Field{
		name:      name,
		valueType: t,
		boost:     1.0,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.boost <= 0 {
		return nil, apperr.NewValidation(fmt.Sprintf("field %q: boost must be positive", name))
	}

	if t != Complex {
		if len(f.projections) > 0 {
			return nil, apperr.NewValidation(fmt.Sprintf("field %q: projections are only allowed on complex fields", name))
		}
		f.bucket = BucketOf(t)
		return f, nil
	}

	if len(f.projections) == 0 {
		return nil, apperr.NewValidation(fmt.Sprintf("complex field %q declares no projection", name))
	}
	f.buckets = make(map[UseCase]Bucket, len(f.projections))
	for uc, p := range f.projections {
		if p.Fn == nil {
			return nil, apperr.NewValidation(fmt.Sprintf("complex field %q: %s projection has no function", name, uc))
		}
		if p.Type == Complex || BucketOf(p.Type) == "" {
			return nil, apperr.NewValidation(fmt.Sprintf("complex field %q: %s projection must produce a simple type", name, uc))
		}
		f.buckets[uc] = BucketOf(p.Type)
	}
	return f, nil
}

// MustField is NewField for statically declared schemas; it panics on error.
func MustField(name string, t ValueType, opts ...FieldOption) *Field {
	f, err := NewField(name, t, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Field) Name() string             { return f.name }
func (f *Field) Type() ValueType          { return f.valueType }
func (f *Field) Cardinality() Cardinality { return f.cardinality }
func (f *Field) IsMulti() bool            { return f.cardinality == Multi }
func (f *Field) IsFacet() bool            { return f.facet }
func (f *Field) IsSuggest() bool          { return f.suggest }
func (f *Field) IsFullText() bool         { return f.fulltext }
func (f *Field) IsSort() bool             { return f.sort }
func (f *Field) IsStored() bool           { return f.stored }
func (f *Field) IsAdvancedFilter() bool   { return f.advancedFilter }
func (f *Field) IsContextualized() bool   { return f.contextualized }
func (f *Field) IsComplex() bool          { return f.valueType == Complex }
func (f *Field) Boost() float64           { return f.boost }
func (f *Field) Language() string         { return f.language }

// Projection returns the projection declared for uc on a complex field.
func (f *Field) Projection(uc UseCase) (Projection, bool) {
	p, ok := f.projections[uc]
	return p, ok
}

// ProjectionFor returns the projection used to index uc. Sorting on a complex field
// without a sort projection falls back to its stored projection.
func (f *Field) ProjectionFor(uc UseCase) (Projection, bool) {
	if p, ok := f.projections[uc]; ok {
		return p, true
	}
	if uc == Sort {
		return f.Projection(Stored)
	}
	return Projection{}, false
}

// EffectiveType is the value type indexed for uc: the declared type for simple
// fields, the projection's output type for complex ones.
func (f *Field) EffectiveType(uc UseCase) (ValueType, bool) {
	if !f.IsComplex() {
		return f.valueType, true
	}
	p, ok := f.ProjectionFor(uc)
	if !ok {
		return 0, false
	}
	return p.Type, true
}

// BucketFor returns the bucket token of the physical variant for uc.
// An empty bucket means the field has no representation for that use-case.
func (f *Field) BucketFor(uc UseCase) Bucket {
	if !f.IsComplex() {
		return f.bucket
	}
	if b, ok := f.buckets[uc]; ok {
		return b
	}
	if uc == Sort {
		return f.buckets[Stored]
	}
	return ""
}

func (f *Field) String() string {
	return fmt.Sprintf("%s(%s,%s)", f.name, f.valueType, f.cardinality)
}
