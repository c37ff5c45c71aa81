package normalize

import (
	"github.com/DjordjeVuckovic/facetq/internal/filter"
)

type Side int

const (
	Parent Side = iota
	Child
)

func (s Side) String() string {
	if s == Child {
		return "child"
	}
	return "parent"
}

// Classifier decides the side of a leaf predicate.
type Classifier func(leaf filter.Filter) Side

// Branch is one conjunction of a normalized filter, split by side.
type Branch struct {
	Parent []filter.Filter
	Child  []filter.Filter
}

// HasChild reports whether the branch needs a block-join fragment.
func (b Branch) HasChild() bool { return len(b.Child) > 0 }

// Partition splits a normalized filter into OR-ed branches. Each branch keeps
// its parent-side literals apart from its child-side ones; a branch with only
// parent literals never gets a child fragment. ChildrenDocument always sits on
// the parent side.
func Partition(f filter.Filter, classify Classifier) []Branch {
	if f == nil {
		return nil
	}

	var conjunctions []filter.Filter
	if or, ok := f.(filter.Or); ok {
		conjunctions = or.Children()
	} else {
		conjunctions = []filter.Filter{f}
	}

	branches := make([]Branch, 0, len(conjunctions))
	for _, c := range conjunctions {
		var literals []filter.Filter
		if and, ok := c.(filter.And); ok {
			literals = and.Children()
		} else {
			literals = []filter.Filter{c}
		}

		var b Branch
		for _, lit := range literals {
			if sideOf(lit, classify) == Child {
				b.Child = append(b.Child, lit)
			} else {
				b.Parent = append(b.Parent, lit)
			}
		}
		branches = append(branches, b)
	}
	return branches
}

// sideOf puts a compound on the child side as soon as one of its leaves is.
func sideOf(f filter.Filter, classify Classifier) Side {
	side := Parent
	filter.Walk(f, func(n filter.Filter) bool {
		switch n.Kind() {
		case filter.KindAnd, filter.KindOr, filter.KindNot:
			return true
		case filter.KindChildrenDocument:
			return false
		}
		if classify(n) == Child {
			side = Child
			return false
		}
		return true
	})
	return side
}
