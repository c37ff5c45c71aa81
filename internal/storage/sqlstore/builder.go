package sqlstore

import (
	"strconv"
	"strings"
)

type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota
	PlaceholderDollar
)

// Builder collects positional arguments. With question-mark placeholders
// Arg must be called in the order the placeholders appear in the final text.
type Builder struct {
	Style PlaceholderStyle
	args  []any
}

func NewBuilder(style PlaceholderStyle) *Builder {
	return &Builder{Style: style}
}

func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	if b.Style == PlaceholderDollar {
		return "$" + strconv.Itoa(len(b.args))
	}
	return "?"
}

func (b *Builder) Args() []any { return b.args }

// likePattern escapes LIKE wildcards in s; patterns use '\' as escape character.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
