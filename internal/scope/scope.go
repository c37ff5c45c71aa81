package scope

import (
	"fmt"
	"strings"

	"github.com/DjordjeVuckovic/facetq/internal/schema"
)

// Scope is an explicit override selecting which use-case governs field-name
// resolution for a filter or facet. None means derive it from the field.
type Scope int

const (
	None Scope = iota
	Facet
	Suggest
	Filter
)

// Default is used when the field does not decide on its own.
const Default = schema.Facet

func (s Scope) String() string {
	switch s {
	case Facet:
		return "facet"
	case Suggest:
		return "suggest"
	case Filter:
		return "filter"
	default:
		return ""
	}
}

func Parse(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return None, nil
	case "facet":
		return Facet, nil
	case "suggest":
		return Suggest, nil
	case "filter":
		return Filter, nil
	default:
		return None, fmt.Errorf("unknown scope: %q", s)
	}
}

// UseCase maps an explicit scope onto its use-case.
func (s Scope) UseCase() (schema.UseCase, bool) {
	switch s {
	case Facet:
		return schema.Facet, true
	case Suggest:
		return schema.Suggest, true
	case Filter:
		return schema.Filter, true
	default:
		return 0, false
	}
}

// Resolve picks the use-case for a predicate on f.
// Explicit scope wins; otherwise facet-only fields resolve to Facet, suggest-only
// fields to Suggest, and everything else (including fields that are both) to Default.
func Resolve(explicit Scope, f *schema.Field) schema.UseCase {
	if uc, ok := explicit.UseCase(); ok {
		return uc
	}
	if f == nil {
		return Default
	}
	switch {
	case f.IsFacet() && !f.IsSuggest():
		return schema.Facet
	case f.IsSuggest() && !f.IsFacet():
		return schema.Suggest
	default:
		return Default
	}
}
