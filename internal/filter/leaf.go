package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/scope"
)

func requireField(kind Kind, field string) error {
	if strings.TrimSpace(field) == "" {
		return apperr.InvalidFilter("%s: field is required", kind)
	}
	return nil
}

func requireNumber(kind Kind, field string, v float64) error {
	if math.IsNaN(v) {
		return &apperr.Error{Kind: apperr.KindInvalidFilter, Message: fmt.Sprintf("%s: value is NaN", kind), Field: field}
	}
	return nil
}

// Term matches an exact string term.
type Term struct {
	scoped
	Field string
	Value string
}

func NewTerm(field, value string) (Filter, error) {
	if err := requireField(KindTerm, field); err != nil {
		return nil, err
	}
	return Term{Field: field, Value: value}, nil
}

func (t Term) Kind() Kind                     { return KindTerm }
func (t Term) FieldName() string              { return t.Field }
func (t Term) Clone() Filter                  { return t }
func (t Term) WithScope(s scope.Scope) Filter { t.scope = s; return t }
func (t Term) String() string                 { return t.Field + ":" + FormatValue(t.Value) }
func (t Term) Key() string {
	return fmt.Sprintf("term(%s,%q)%s", t.Field, t.Value, t.scopeKey())
}

// Prefix matches terms starting with Value.
type Prefix struct {
	scoped
	Field string
	Value string
}

func NewPrefix(field, prefix string) (Filter, error) {
	if err := requireField(KindPrefix, field); err != nil {
		return nil, err
	}
	if prefix == "" {
		return nil, &apperr.Error{Kind: apperr.KindInvalidFilter, Message: "prefix: prefix is required", Field: field}
	}
	return Prefix{Field: field, Value: prefix}, nil
}

func (p Prefix) Kind() Kind                     { return KindPrefix }
func (p Prefix) FieldName() string              { return p.Field }
func (p Prefix) Clone() Filter                  { return p }
func (p Prefix) WithScope(s scope.Scope) Filter { p.scope = s; return p }
func (p Prefix) String() string                 { return p.Field + ":" + p.Value + "*" }
func (p Prefix) Key() string {
	return fmt.Sprintf("prefix(%s,%q)%s", p.Field, p.Value, p.scopeKey())
}

// Terms matches any of Values on a described field.
type Terms struct {
	scoped
	Field  *schema.Field
	Values []any
}

func NewTerms(field *schema.Field, values ...any) (Filter, error) {
	if field == nil {
		return nil, apperr.InvalidFilter("terms: field descriptor is required")
	}
	if len(values) == 0 {
		return nil, &apperr.Error{Kind: apperr.KindInvalidFilter, Message: "terms: at least one value is required", Field: field.Name()}
	}
	for i, v := range values {
		if v == nil {
			return nil, &apperr.Error{Kind: apperr.KindInvalidFilter, Message: fmt.Sprintf("terms: value at position %d is nil", i), Field: field.Name()}
		}
	}
	return Terms{Field: field, Values: append([]any(nil), values...)}, nil
}

func (t Terms) Kind() Kind                     { return KindTerms }
func (t Terms) FieldName() string              { return t.Field.Name() }
func (t Terms) WithScope(s scope.Scope) Filter { t.scope = s; return t }

func (t Terms) Clone() Filter {
	t.Values = append([]any(nil), t.Values...)
	return t
}

func (t Terms) String() string {
	parts := make([]string, len(t.Values))
	for i, v := range t.Values {
		parts[i] = FormatValue(v)
	}
	return t.Field.Name() + ":(" + strings.Join(parts, " OR ") + ")"
}

func (t Terms) Key() string {
	parts := make([]string, len(t.Values))
	for i, v := range t.Values {
		parts[i] = valueKey(v)
	}
	return fmt.Sprintf("terms(%s,[%s])%s", t.Field.Name(), strings.Join(parts, ","), t.scopeKey())
}

// Equals matches a single typed value on a described field.
type Equals struct {
	scoped
	Field *schema.Field
	Value any
}

func NewEquals(field *schema.Field, value any) (Filter, error) {
	if field == nil {
		return nil, apperr.InvalidFilter("equals: field descriptor is required")
	}
	if value == nil {
		return nil, &apperr.Error{Kind: apperr.KindInvalidFilter, Message: "equals: value is required", Field: field.Name()}
	}
	return Equals{Field: field, Value: value}, nil
}

func (e Equals) Kind() Kind                     { return KindEquals }
func (e Equals) FieldName() string              { return e.Field.Name() }
func (e Equals) Clone() Filter                  { return e }
func (e Equals) WithScope(s scope.Scope) Filter { e.scope = s; return e }
func (e Equals) String() string                 { return e.Field.Name() + ":" + FormatValue(e.Value) }
func (e Equals) Key() string {
	return fmt.Sprintf("equals(%s,%s)%s", e.Field.Name(), valueKey(e.Value), e.scopeKey())
}

// Before matches dates up to and including Bound.
type Before struct {
	scoped
	Field string
	Bound DateBound
}

func NewBefore(field string, bound DateBound) (Filter, error) {
	if err := requireField(KindBefore, field); err != nil {
		return nil, err
	}
	if bound.IsZero() {
		return nil, &apperr.Error{Kind: apperr.KindInvalidFilter, Message: "before: bound is required", Field: field}
	}
	return Before{Field: field, Bound: bound}, nil
}

func (b Before) Kind() Kind                     { return KindBefore }
func (b Before) FieldName() string              { return b.Field }
func (b Before) Clone() Filter                  { return b }
func (b Before) WithScope(s scope.Scope) Filter { b.scope = s; return b }
func (b Before) String() string                 { return fmt.Sprintf("%s:[* TO %s]", b.Field, b.Bound) }
func (b Before) Key() string {
	return fmt.Sprintf("before(%s,%s)%s", b.Field, b.Bound, b.scopeKey())
}

// After matches dates from Bound on, inclusive.
type After struct {
	scoped
	Field string
	Bound DateBound
}

func NewAfter(field string, bound DateBound) (Filter, error) {
	if err := requireField(KindAfter, field); err != nil {
		return nil, err
	}
	if bound.IsZero() {
		return nil, &apperr.Error{Kind: apperr.KindInvalidFilter, Message: "after: bound is required", Field: field}
	}
	return After{Field: field, Bound: bound}, nil
}

func (a After) Kind() Kind                     { return KindAfter }
func (a After) FieldName() string              { return a.Field }
func (a After) Clone() Filter                  { return a }
func (a After) WithScope(s scope.Scope) Filter { a.scope = s; return a }
func (a After) String() string                 { return fmt.Sprintf("%s:[%s TO *]", a.Field, a.Bound) }
func (a After) Key() string {
	return fmt.Sprintf("after(%s,%s)%s", a.Field, a.Bound, a.scopeKey())
}

// BetweenDates matches dates within [Start, End].
type BetweenDates struct {
	scoped
	Field string
	Start DateBound
	End   DateBound
}

func NewBetweenDates(field string, start, end DateBound) (Filter, error) {
	if err := requireField(KindBetweenDates, field); err != nil {
		return nil, err
	}
	if start.IsZero() || end.IsZero() {
		return nil, &apperr.Error{Kind: apperr.KindInvalidFilter, Message: "between dates: start and end are required", Field: field}
	}
	if !start.IsMath() && !end.IsMath() && start.at.After(end.at) {
		return nil, &apperr.Error{Kind: apperr.KindInvalidFilter, Message: "between dates: start is after end", Field: field}
	}
	return BetweenDates{Field: field, Start: start, End: end}, nil
}

func (b BetweenDates) Kind() Kind                     { return KindBetweenDates }
func (b BetweenDates) FieldName() string              { return b.Field }
func (b BetweenDates) Clone() Filter                  { return b }
func (b BetweenDates) WithScope(s scope.Scope) Filter { b.scope = s; return b }
func (b BetweenDates) String() string {
	return fmt.Sprintf("%s:[%s TO %s]", b.Field, b.Start, b.End)
}
func (b BetweenDates) Key() string {
	return fmt.Sprintf("between_dates(%s,%s,%s)%s", b.Field, b.Start, b.End, b.scopeKey())
}

// GreaterThan matches numbers strictly greater than Value.
type GreaterThan struct {
	scoped
	Field string
	Value float64
}

func NewGreaterThan(field string, v float64) (Filter, error) {
	if err := requireField(KindGreaterThan, field); err != nil {
		return nil, err
	}
	if err := requireNumber(KindGreaterThan, field, v); err != nil {
		return nil, err
	}
	return GreaterThan{Field: field, Value: v}, nil
}

func (g GreaterThan) Kind() Kind                     { return KindGreaterThan }
func (g GreaterThan) FieldName() string              { return g.Field }
func (g GreaterThan) Clone() Filter                  { return g }
func (g GreaterThan) WithScope(s scope.Scope) Filter { g.scope = s; return g }
func (g GreaterThan) String() string {
	return fmt.Sprintf("%s:{%s TO *}", g.Field, formatNumber(g.Value))
}
func (g GreaterThan) Key() string {
	return fmt.Sprintf("gt(%s,%s)%s", g.Field, formatNumber(g.Value), g.scopeKey())
}

// LowerThan matches numbers strictly lower than Value.
type LowerThan struct {
	scoped
	Field string
	Value float64
}

func NewLowerThan(field string, v float64) (Filter, error) {
	if err := requireField(KindLowerThan, field); err != nil {
		return nil, err
	}
	if err := requireNumber(KindLowerThan, field, v); err != nil {
		return nil, err
	}
	return LowerThan{Field: field, Value: v}, nil
}

func (l LowerThan) Kind() Kind                     { return KindLowerThan }
func (l LowerThan) FieldName() string              { return l.Field }
func (l LowerThan) Clone() Filter                  { return l }
func (l LowerThan) WithScope(s scope.Scope) Filter { l.scope = s; return l }
func (l LowerThan) String() string {
	return fmt.Sprintf("%s:{* TO %s}", l.Field, formatNumber(l.Value))
}
func (l LowerThan) Key() string {
	return fmt.Sprintf("lt(%s,%s)%s", l.Field, formatNumber(l.Value), l.scopeKey())
}

// BetweenNumeric matches numbers within [Start, End].
type BetweenNumeric struct {
	scoped
	Field string
	Start float64
	End   float64
}

func NewBetweenNumeric(field string, start, end float64) (Filter, error) {
	if err := requireField(KindBetweenNumeric, field); err != nil {
		return nil, err
	}
	if err := requireNumber(KindBetweenNumeric, field, start); err != nil {
		return nil, err
	}
	if err := requireNumber(KindBetweenNumeric, field, end); err != nil {
		return nil, err
	}
	if start > end {
		return nil, &apperr.Error{Kind: apperr.KindInvalidFilter, Message: "between numeric: start is greater than end", Field: field}
	}
	return BetweenNumeric{Field: field, Start: start, End: end}, nil
}

func (b BetweenNumeric) Kind() Kind                     { return KindBetweenNumeric }
func (b BetweenNumeric) FieldName() string              { return b.Field }
func (b BetweenNumeric) Clone() Filter                  { return b }
func (b BetweenNumeric) WithScope(s scope.Scope) Filter { b.scope = s; return b }
func (b BetweenNumeric) String() string {
	return fmt.Sprintf("%s:[%s TO %s]", b.Field, formatNumber(b.Start), formatNumber(b.End))
}
func (b BetweenNumeric) Key() string {
	return fmt.Sprintf("between(%s,%s,%s)%s", b.Field, formatNumber(b.Start), formatNumber(b.End), b.scopeKey())
}

// WithinBBox matches locations inside the box spanned by TopLeft and BottomRight.
type WithinBBox struct {
	scoped
	Field       string
	TopLeft     GeoPoint
	BottomRight GeoPoint
}

func NewWithinBBox(field string, topLeft, bottomRight GeoPoint) (Filter, error) {
	if err := requireField(KindWithinBBox, field); err != nil {
		return nil, err
	}
	for _, p := range []GeoPoint{topLeft, bottomRight} {
		if err := p.Validate(); err != nil {
			return nil, &apperr.Error{Kind: apperr.KindInvalidFilter, Message: "within bbox", Field: field, Err: err}
		}
	}
	if topLeft.Lat < bottomRight.Lat {
		return nil, &apperr.Error{Kind: apperr.KindInvalidFilter, Message: "within bbox: top latitude is below bottom latitude", Field: field}
	}
	return WithinBBox{Field: field, TopLeft: topLeft, BottomRight: bottomRight}, nil
}

func (w WithinBBox) Kind() Kind                     { return KindWithinBBox }
func (w WithinBBox) FieldName() string              { return w.Field }
func (w WithinBBox) Clone() Filter                  { return w }
func (w WithinBBox) WithScope(s scope.Scope) Filter { w.scope = s; return w }
func (w WithinBBox) String() string {
	return fmt.Sprintf("%s:bbox(%s %s)", w.Field, w.TopLeft, w.BottomRight)
}
func (w WithinBBox) Key() string {
	return fmt.Sprintf("bbox(%s,%s,%s)%s", w.Field, w.TopLeft, w.BottomRight, w.scopeKey())
}

// WithinCircle matches locations within RadiusKm of Center.
type WithinCircle struct {
	scoped
	Field    string
	Center   GeoPoint
	RadiusKm float64
}

func NewWithinCircle(field string, center GeoPoint, radiusKm float64) (Filter, error) {
	if err := requireField(KindWithinCircle, field); err != nil {
		return nil, err
	}
	if err := center.Validate(); err != nil {
		return nil, &apperr.Error{Kind: apperr.KindInvalidFilter, Message: "within circle", Field: field, Err: err}
	}
	if math.IsNaN(radiusKm) || radiusKm <= 0 {
		return nil, &apperr.Error{Kind: apperr.KindInvalidFilter, Message: "within circle: radius must be positive", Field: field}
	}
	return WithinCircle{Field: field, Center: center, RadiusKm: radiusKm}, nil
}

func (w WithinCircle) Kind() Kind                     { return KindWithinCircle }
func (w WithinCircle) FieldName() string              { return w.Field }
func (w WithinCircle) Clone() Filter                  { return w }
func (w WithinCircle) WithScope(s scope.Scope) Filter { w.scope = s; return w }
func (w WithinCircle) String() string {
	return fmt.Sprintf("%s:circle(%s %skm)", w.Field, w.Center, formatNumber(w.RadiusKm))
}
func (w WithinCircle) Key() string {
	return fmt.Sprintf("circle(%s,%s,%s)%s", w.Field, w.Center, formatNumber(w.RadiusKm), w.scopeKey())
}

// Presence tells NotEmpty which representation of the field to probe.
type Presence int

const (
	PresenceGeneric Presence = iota
	PresenceText
	PresenceLocation
)

func (p Presence) String() string {
	switch p {
	case PresenceText:
		return "text"
	case PresenceLocation:
		return "location"
	default:
		return "generic"
	}
}

// NotEmpty matches documents holding at least one value for Field.
type NotEmpty struct {
	scoped
	Field    string
	Presence Presence
}

func NewNotEmpty(field string, p Presence) (Filter, error) {
	if err := requireField(KindNotEmpty, field); err != nil {
		return nil, err
	}
	return NotEmpty{Field: field, Presence: p}, nil
}

func (n NotEmpty) Kind() Kind                     { return KindNotEmpty }
func (n NotEmpty) FieldName() string              { return n.Field }
func (n NotEmpty) Clone() Filter                  { return n }
func (n NotEmpty) WithScope(s scope.Scope) Filter { n.scope = s; return n }
func (n NotEmpty) String() string                 { return "_exists_:" + n.Field }
func (n NotEmpty) Key() string {
	return fmt.Sprintf("not_empty(%s,%s)%s", n.Field, n.Presence, n.scopeKey())
}

// ChildrenDocument matches parents of ParentType that have at least one child,
// of ChildType when set. It always belongs to the parent side.
type ChildrenDocument struct {
	scoped
	ParentType string
	ChildType  string
}

func NewChildrenDocument(parentType, childType string) (Filter, error) {
	if strings.TrimSpace(parentType) == "" {
		return nil, apperr.InvalidFilter("children document: parent type is required")
	}
	return ChildrenDocument{ParentType: parentType, ChildType: childType}, nil
}

func (c ChildrenDocument) Kind() Kind                     { return KindChildrenDocument }
func (c ChildrenDocument) Clone() Filter                  { return c }
func (c ChildrenDocument) WithScope(s scope.Scope) Filter { c.scope = s; return c }
func (c ChildrenDocument) String() string {
	if c.ChildType == "" {
		return "_children_:" + c.ParentType
	}
	return "_children_:" + c.ParentType + "/" + c.ChildType
}
func (c ChildrenDocument) Key() string {
	return fmt.Sprintf("children(%s,%s)%s", c.ParentType, c.ChildType, c.scopeKey())
}
