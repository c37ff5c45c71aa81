// Package facet holds the facet requests returned alongside search results.
package facet

import (
	"strings"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/scope"
)

type Kind int

const (
	KindTerm Kind = iota + 1
	KindType
	KindSubdocument
	KindNumericRange
	KindDateRange
	KindInterval
	KindPivot
	KindQuery
	KindStats
)

var kindNames = map[Kind]string{
	KindTerm:         "term",
	KindType:         "type",
	KindSubdocument:  "subdocument",
	KindNumericRange: "numeric_range",
	KindDateRange:    "date_range",
	KindInterval:     "interval",
	KindPivot:        "pivot",
	KindQuery:        "query",
	KindStats:        "stats",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Facet is implemented only by the types in this package.
type Facet interface {
	// Name is the request key the backend answers under.
	Name() string
	Kind() Kind
	Scope() scope.Scope
	// Tags are the pivot tags the facet participates in. On a Pivot they name
	// the tagged facets computed per pivot bucket.
	Tags() []string
	// Limit is the bucket limit, 0 for the backend default.
	Limit() int
	MinCount() int

	isFacet()
}

type common struct {
	name     string
	scope    scope.Scope
	tags     []string
	limit    int
	minCount int
}

func (c common) Name() string       { return c.name }
func (c common) Scope() scope.Scope { return c.scope }
func (c common) Tags() []string     { return append([]string(nil), c.tags...) }
func (c common) Limit() int         { return c.limit }
func (c common) MinCount() int      { return c.minCount }
func (common) isFacet()             {}

type Option func(c *common)

func WithScope(s scope.Scope) Option {
	return func(c *common) { c.scope = s }
}

func WithTags(tags ...string) Option {
	return func(c *common) { c.tags = append(c.tags, tags...) }
}

func WithLimit(n int) Option {
	return func(c *common) { c.limit = n }
}

func WithMinCount(n int) Option {
	return func(c *common) { c.minCount = n }
}

func newCommon(kind Kind, name string, opts []Option) (common, error) {
	c := common{name: strings.TrimSpace(name)}
	if c.name == "" {
		return common{}, apperr.InvalidFacet("%s facet: name is required", kind)
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.limit < 0 {
		return common{}, &apperr.Error{Kind: apperr.KindInvalidFacet, Message: "limit must not be negative", Field: c.name}
	}
	if c.minCount < 0 {
		return common{}, &apperr.Error{Kind: apperr.KindInvalidFacet, Message: "min count must not be negative", Field: c.name}
	}
	for _, t := range c.tags {
		if strings.TrimSpace(t) == "" || strings.ContainsAny(t, " ,{}") {
			return common{}, &apperr.Error{Kind: apperr.KindInvalidFacet, Message: "invalid tag " + t, Field: c.name}
		}
	}
	return c, nil
}

// Must panics if err is non-nil.
func Must[F Facet](f F, err error) F {
	if err != nil {
		panic(err)
	}
	return f
}

func invalid(name, format string, args ...any) error {
	e := apperr.InvalidFacet(format, args...)
	e.Field = name
	return e
}
