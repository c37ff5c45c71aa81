// Package parser reads filter expressions into filter trees.
//
// Grammar, loosest binding first:
//
//	expr    = and { OR and }
//	and     = unary { [AND] unary }
//	unary   = NOT unary | primary
//	primary = "(" expr ")" | FIELD value
//	value   = WORD | PHRASE | range | "(" expr ")" | geo
//	range   = ("[" | "{") WORD TO WORD ("]" | "}")
//	geo     = bbox(lat,lon lat,lon) | circle(lat,lon <radius>km)
//
// Words are terms, name* is a prefix, >n and <n are open numeric bounds and *
// alone means the field has a value. _exists_:name and _children_:Parent/Child
// are reserved fields. Filter.String output parses back to an equal filter;
// scopes, field descriptors and NotEmpty presence kinds have no textual form.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/token"
)

const (
	existsField   = "_exists_"
	childrenField = "_children_"
)

type Parser struct {
	tokenizer *token.ExprTokenizer
}

func New() *Parser {
	return &Parser{tokenizer: token.NewExprTokenizer()}
}

// Parse is a shorthand for New().Parse.
func Parse(expression string) (filter.Filter, error) {
	return New().Parse(expression)
}

func (p *Parser) Parse(expression string) (filter.Filter, error) {
	tokens := p.tokenizer.Tokenize(expression)
	if err := p.tokenizer.Validate(tokens); err != nil {
		return nil, apperr.Parse("invalid filter expression", err)
	}

	s := &state{tokens: tokens}
	f, err := s.or()
	if err != nil {
		return nil, err
	}
	if tok := s.peek(); tok.Type != token.EOF {
		return nil, s.errorf(tok, "unexpected %s %q", tok.Type, tok.Value)
	}
	return f, nil
}

type state struct {
	tokens []token.Token
	pos    int
	// field is set inside a field group such as size:(M OR L).
	field string
}

func (s *state) peek() token.Token {
	if s.pos >= len(s.tokens) {
		return token.Token{Type: token.EOF}
	}
	return s.tokens[s.pos]
}

func (s *state) next() token.Token {
	tok := s.peek()
	if s.pos < len(s.tokens) {
		s.pos++
	}
	return tok
}

func (s *state) expect(t token.Type) (token.Token, error) {
	tok := s.next()
	if tok.Type != t {
		return tok, s.errorf(tok, "expected %s, got %s", t, tok.Type)
	}
	return tok, nil
}

func (s *state) errorf(tok token.Token, format string, args ...any) error {
	return apperr.Parse(fmt.Sprintf("%s at position %d", fmt.Sprintf(format, args...), tok.Pos), nil)
}

func (s *state) or() (filter.Filter, error) {
	first, err := s.and()
	if err != nil {
		return nil, err
	}
	children := []filter.Filter{first}
	for s.peek().Type == token.OR {
		s.next()
		f, err := s.and()
		if err != nil {
			return nil, err
		}
		children = append(children, f)
	}
	return filter.NewOr(children...)
}

func (s *state) and() (filter.Filter, error) {
	first, err := s.unary()
	if err != nil {
		return nil, err
	}
	children := []filter.Filter{first}
	for {
		switch s.peek().Type {
		case token.AND:
			s.next()
		case token.FIELD, token.WORD, token.PHRASE, token.LPAREN, token.NOT:
			// implicit AND
		default:
			return filter.NewAnd(children...)
		}
		f, err := s.unary()
		if err != nil {
			return nil, err
		}
		children = append(children, f)
	}
}

func (s *state) unary() (filter.Filter, error) {
	if s.peek().Type != token.NOT {
		return s.primary()
	}
	s.next()
	inner, err := s.unary()
	if err != nil {
		return nil, err
	}
	return filter.NewNot(inner)
}

func (s *state) primary() (filter.Filter, error) {
	tok := s.next()
	switch tok.Type {
	case token.LPAREN:
		return s.group()
	case token.FIELD:
		if s.field != "" {
			return nil, s.errorf(tok, "field %q inside the group of field %q", tok.Value, s.field)
		}
		return s.value(tok.Value)
	case token.WORD, token.PHRASE, token.LBRACKET:
		if s.field == "" {
			return nil, s.errorf(tok, "term %q has no field", tok.Value)
		}
		s.pos--
		return s.value(s.field)
	default:
		return nil, s.errorf(tok, "unexpected %s", tok.Type)
	}
}

func (s *state) group() (filter.Filter, error) {
	f, err := s.or()
	if err != nil {
		return nil, err
	}
	if _, err := s.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *state) value(field string) (filter.Filter, error) {
	tok := s.next()
	switch tok.Type {
	case token.PHRASE:
		return s.term(field, tok, true)
	case token.WORD:
		if s.peek().Type == token.LPAREN && (tok.Value == "bbox" || tok.Value == "circle") {
			return s.geo(field, tok)
		}
		return s.term(field, tok, false)
	case token.LBRACKET:
		return s.rangeOf(field, tok)
	case token.LPAREN:
		outer := s.field
		s.field = field
		f, err := s.group()
		s.field = outer
		return f, err
	default:
		return nil, s.errorf(tok, "field %q has no value", field)
	}
}

func (s *state) term(field string, tok token.Token, quoted bool) (filter.Filter, error) {
	v := tok.Value
	switch field {
	case existsField:
		return filter.NewNotEmpty(v, filter.PresenceGeneric)
	case childrenField:
		parent, child, _ := strings.Cut(v, "/")
		return filter.NewChildrenDocument(parent, child)
	}
	if quoted {
		return filter.NewTerm(field, v)
	}

	switch {
	case v == "*":
		return filter.NewNotEmpty(field, filter.PresenceGeneric)
	case strings.HasPrefix(v, ">"):
		n, err := s.number(tok, v[1:])
		if err != nil {
			return nil, err
		}
		return filter.NewGreaterThan(field, n)
	case strings.HasPrefix(v, "<"):
		n, err := s.number(tok, v[1:])
		if err != nil {
			return nil, err
		}
		return filter.NewLowerThan(field, n)
	case len(v) > 1 && strings.HasSuffix(v, "*"):
		return filter.NewPrefix(field, strings.TrimSuffix(v, "*"))
	default:
		return filter.NewTerm(field, v)
	}
}

func (s *state) number(tok token.Token, v string) (float64, error) {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, s.errorf(tok, "invalid number %q", v)
	}
	return n, nil
}

// rangeOf builds a numeric filter when both bounds are numbers or "*" and a
// date filter otherwise. Date ranges are inclusive; numeric ranges are either
// inclusive on both ends or exclusive on both ends.
func (s *state) rangeOf(field string, open token.Token) (filter.Filter, error) {
	lo := s.next()
	s.next() // TO, checked by Validate
	hi := s.next()
	closing := s.next()

	if lo.Value == "*" && hi.Value == "*" {
		return filter.NewNotEmpty(field, filter.PresenceGeneric)
	}
	if isNumberOrStar(lo.Value) && isNumberOrStar(hi.Value) {
		return s.numericRange(field, open, lo, hi, closing)
	}

	if !open.Inclusive() || !closing.Inclusive() {
		return nil, s.errorf(open, "date ranges on %q must be inclusive", field)
	}
	switch {
	case lo.Value == "*":
		b, err := s.dateBound(hi)
		if err != nil {
			return nil, err
		}
		return filter.NewBefore(field, b)
	case hi.Value == "*":
		b, err := s.dateBound(lo)
		if err != nil {
			return nil, err
		}
		return filter.NewAfter(field, b)
	default:
		start, err := s.dateBound(lo)
		if err != nil {
			return nil, err
		}
		end, err := s.dateBound(hi)
		if err != nil {
			return nil, err
		}
		return filter.NewBetweenDates(field, start, end)
	}
}

func (s *state) numericRange(field string, open, lo, hi, closing token.Token) (filter.Filter, error) {
	switch {
	case lo.Value == "*":
		if closing.Inclusive() {
			return nil, s.errorf(closing, "inclusive upper bound without lower bound on %q, use {* TO %s}", field, hi.Value)
		}
		n, _ := strconv.ParseFloat(hi.Value, 64)
		return filter.NewLowerThan(field, n)
	case hi.Value == "*":
		if open.Inclusive() {
			return nil, s.errorf(open, "inclusive lower bound without upper bound on %q, use {%s TO *}", field, lo.Value)
		}
		n, _ := strconv.ParseFloat(lo.Value, 64)
		return filter.NewGreaterThan(field, n)
	}

	start, _ := strconv.ParseFloat(lo.Value, 64)
	end, _ := strconv.ParseFloat(hi.Value, 64)
	switch {
	case open.Inclusive() && closing.Inclusive():
		return filter.NewBetweenNumeric(field, start, end)
	case !open.Inclusive() && !closing.Inclusive():
		gt, err := filter.NewGreaterThan(field, start)
		if err != nil {
			return nil, err
		}
		lt, err := filter.NewLowerThan(field, end)
		if err != nil {
			return nil, err
		}
		return filter.NewAnd(gt, lt)
	default:
		return nil, s.errorf(open, "half-open numeric range on %q is not supported", field)
	}
}

func (s *state) dateBound(tok token.Token) (filter.DateBound, error) {
	b, err := filter.ParseDateBound(tok.Value)
	if err != nil {
		return filter.DateBound{}, apperr.Parse(fmt.Sprintf("invalid date bound %q at position %d", tok.Value, tok.Pos), err)
	}
	return b, nil
}

func isNumberOrStar(v string) bool {
	if v == "*" {
		return true
	}
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

func (s *state) geo(field string, fn token.Token) (filter.Filter, error) {
	s.next() // (
	first, err := s.expect(token.WORD)
	if err != nil {
		return nil, err
	}
	second, err := s.expect(token.WORD)
	if err != nil {
		return nil, err
	}
	if _, err := s.expect(token.RPAREN); err != nil {
		return nil, err
	}

	a, err := filter.ParseGeoPoint(first.Value)
	if err != nil {
		return nil, apperr.Parse(fmt.Sprintf("%s at position %d", fn.Value, first.Pos), err)
	}
	if fn.Value == "circle" {
		radius, err := s.number(second, strings.TrimSuffix(second.Value, "km"))
		if err != nil {
			return nil, err
		}
		return filter.NewWithinCircle(field, a, radius)
	}
	b, err := filter.ParseGeoPoint(second.Value)
	if err != nil {
		return nil, apperr.Parse(fmt.Sprintf("%s at position %d", fn.Value, second.Pos), err)
	}
	return filter.NewWithinBBox(field, a, b)
}
