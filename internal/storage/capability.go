package storage

import (
	"slices"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/query"
)

// Capabilities describes what a backend can execute or render.
type Capabilities struct {
	Backend Type
	// BlockJoin allows has_child predicates and facets over child documents.
	BlockJoin   bool
	GeoDistance bool
	Text        bool
	Facets      []facet.Kind
	Percentiles bool
}

type CapabilityProvider interface {
	Capabilities() Capabilities
}

func (c Capabilities) SupportsFacet(k facet.Kind) bool {
	return slices.Contains(c.Facets, k)
}

// Check returns an Unsupported error naming the first construct of q the
// backend cannot handle.
func (c Capabilities) Check(q *query.Query) error {
	if q == nil {
		return nil
	}
	if q.Text != nil && !c.Text {
		return apperr.Unsupported("%s: full-text queries are not supported", c.Backend)
	}
	if err := c.checkNode(q.Filter); err != nil {
		return err
	}
	for _, f := range q.Facets {
		if !c.SupportsFacet(f.Kind) {
			return apperr.Unsupported("%s: %s facets are not supported", c.Backend, f.Kind)
		}
		if f.Child && !c.BlockJoin {
			return apperr.Unsupported("%s: facet %q aggregates child documents", c.Backend, f.Name)
		}
		if s, ok := f.Source.(facet.Stats); ok && len(s.Percentiles) > 0 && !c.Percentiles {
			return apperr.Unsupported("%s: percentiles are not supported", c.Backend)
		}
		if err := c.checkNode(f.Filter); err != nil {
			return err
		}
	}
	return nil
}

func (c Capabilities) checkNode(n query.Node) error {
	var err error
	query.Walk(n, func(n query.Node) bool {
		if err != nil {
			return false
		}
		switch n.(type) {
		case query.HasChild:
			if !c.BlockJoin {
				err = apperr.Unsupported("%s: child document predicates are not supported", c.Backend)
			}
		case query.GeoDistance:
			if !c.GeoDistance {
				err = apperr.Unsupported("%s: distance filters are not supported", c.Backend)
			}
		}
		return err == nil
	})
	return err
}
