// Package fieldname derives physical field names from field descriptors and
// recovers logical names from physical ones.
//
// A physical name is the concatenation, in this order, of:
//
//	dynamic_ | single_ or multi_ | [stored_] | [facet_|suggest_|sort_|filter_] | bucket | [<context>_] | name
//
// e.g. dynamic_multi_stored_facet_string_en_color.
package fieldname

import (
	"strings"

	"github.com/DjordjeVuckovic/facetq/internal/schema"
)

const (
	Dynamic = "dynamic_"
	Single  = "single_"
	Multi   = "multi_"
	Stored  = "stored_"
)

var useCaseMarkers = map[schema.UseCase]string{
	schema.Facet:   "facet_",
	schema.Suggest: "suggest_",
	schema.Sort:    "sort_",
	schema.Filter:  "filter_",
}

// Supports reports whether f has a physical variant for uc.
func Supports(f *schema.Field, uc schema.UseCase) bool {
	switch uc {
	case schema.Fulltext:
		return f.IsFullText()
	case schema.Facet:
		return f.IsFacet()
	case schema.Suggest:
		return f.IsSuggest()
	case schema.Sort:
		return f.IsSort() || (f.IsComplex() && f.IsStored() && !f.IsMulti())
	case schema.Filter:
		return f.IsComplex() && f.IsAdvancedFilter()
	case schema.Stored:
		return f.IsStored()
	default:
		return false
	}
}

// Encode returns the physical name of f for uc in the given context.
// ok is false when f has no variant for uc; callers omit the field then.
func Encode(f *schema.Field, uc schema.UseCase, context string) (name string, ok bool) {
	if f == nil || !Supports(f, uc) {
		return "", false
	}
	bucket := f.BucketFor(uc)
	if bucket == "" {
		return "", false
	}
	if uc == schema.Suggest && bucket == schema.BucketString {
		bucket = schema.BucketAnalyzed
	}

	var b strings.Builder
	b.WriteString(Dynamic)
	if multiValued(f, uc) {
		b.WriteString(Multi)
	} else {
		b.WriteString(Single)
	}
	if f.IsStored() && uc != schema.Stored {
		b.WriteString(Stored)
	}
	b.WriteString(useCaseMarkers[uc])
	b.WriteString(string(bucket))
	if f.IsContextualized() && context != "" {
		b.WriteString(context)
		b.WriteByte('_')
	}
	b.WriteString(f.Name())
	return b.String(), true
}

// MustEncode panics when f has no variant for uc.
func MustEncode(f *schema.Field, uc schema.UseCase, context string) string {
	name, ok := Encode(f, uc, context)
	if !ok {
		panic("fieldname: " + f.Name() + " does not support " + uc.String())
	}
	return name
}

// Complex fields may fan one value out into many, so their indexed variants are multi-valued.
func multiValued(f *schema.Field, uc schema.UseCase) bool {
	if f.IsMulti() {
		return true
	}
	if !f.IsComplex() {
		return false
	}
	switch uc {
	case schema.Fulltext, schema.Facet, schema.Suggest, schema.Filter:
		return true
	}
	return false
}

// Names returns every physical name of f in the given context, keyed by use-case.
func Names(f *schema.Field, context string) map[schema.UseCase]string {
	out := make(map[schema.UseCase]string, len(schema.UseCases))
	for _, uc := range schema.UseCases {
		if name, ok := Encode(f, uc, context); ok {
			out[uc] = name
		}
	}
	return out
}
