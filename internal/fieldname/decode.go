package fieldname

import (
	"sort"
	"strings"

	"github.com/DjordjeVuckovic/facetq/internal/schema"
)

// Decoded is what can be read back from a physical name without a schema.
type Decoded struct {
	Name           string
	Multi          bool
	Stored         bool
	UseCase        schema.UseCase // 0 for the marker-less Fulltext and Stored variants
	Bucket         schema.Bucket
	Contextualized bool
}

var bucketsByLength = func() []schema.Bucket {
	out := append([]schema.Bucket(nil), schema.Buckets...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}()

var orderedUseCases = []schema.UseCase{schema.Suggest, schema.Facet, schema.Filter, schema.Sort}

// Decode strips the markers of a physical name. The context prefix is only
// stripped when context is non-empty and present. ok is false for names that
// were not produced by Encode.
func Decode(physical, context string) (Decoded, bool) {
	rest, ok := strings.CutPrefix(physical, Dynamic)
	if !ok {
		return Decoded{}, false
	}

	var d Decoded
	switch {
	case strings.HasPrefix(rest, Multi):
		d.Multi = true
		rest = rest[len(Multi):]
	case strings.HasPrefix(rest, Single):
		rest = rest[len(Single):]
	default:
		return Decoded{}, false
	}

	rest, d.Stored = strings.CutPrefix(rest, Stored)

	for _, uc := range orderedUseCases {
		if after, found := strings.CutPrefix(rest, useCaseMarkers[uc]); found {
			d.UseCase = uc
			rest = after
			break
		}
	}

	for _, b := range bucketsByLength {
		if after, found := strings.CutPrefix(rest, string(b)); found {
			d.Bucket = b
			rest = after
			break
		}
	}
	if d.Bucket == "" {
		return Decoded{}, false
	}

	if context != "" {
		if after, found := strings.CutPrefix(rest, context+"_"); found && after != "" {
			d.Contextualized = true
			rest = after
		}
	}
	if rest == "" {
		return Decoded{}, false
	}
	d.Name = rest
	return d, true
}

// Resolved is a physical name attached to its descriptor.
type Resolved struct {
	Field          *schema.Field
	UseCase        schema.UseCase
	Contextualized bool
}

// Resolve decodes physical against s. Unlike Decode it tells a context prefix
// apart from a field name that merely starts with the same text, and it
// confirms the match by re-encoding. ok is false for names s does not produce.
func Resolve(s *schema.Schema, physical, context string) (Resolved, bool) {
	candidates := []string{context}
	if context != "" {
		candidates = append(candidates, "")
	}

	for _, ctx := range candidates {
		d, ok := Decode(physical, ctx)
		if !ok {
			continue
		}
		f, ok := s.Field(d.Name)
		if !ok {
			continue
		}
		for _, uc := range useCasesOf(d, f) {
			if name, ok := Encode(f, uc, context); ok && name == physical {
				return Resolved{Field: f, UseCase: uc, Contextualized: d.Contextualized}, true
			}
		}
	}
	return Resolved{}, false
}

func useCasesOf(d Decoded, f *schema.Field) []schema.UseCase {
	if d.UseCase != 0 {
		return []schema.UseCase{d.UseCase}
	}
	// the Stored variant drops the stored marker, so a marker means Fulltext
	if d.Stored || !f.IsStored() {
		return []schema.UseCase{schema.Fulltext}
	}
	return []schema.UseCase{schema.Stored, schema.Fulltext}
}
