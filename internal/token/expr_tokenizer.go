package token

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ExprTokenizer splits filter expressions such as
// `color:red AND (size:M OR size:"L") AND price:[10 TO 20]`.
// A word of the form name:rest yields a FIELD token followed by the rest;
// inside range brackets words are taken whole so timestamps keep their colons.
type ExprTokenizer struct {
	input   []rune
	pos     int
	inRange bool
}

func NewExprTokenizer() *ExprTokenizer {
	return &ExprTokenizer{}
}

// Tokenize converts the input string into a slice of Tokens ending with EOF.
func (t *ExprTokenizer) Tokenize(input string) []Token {
	t.input = []rune(input)
	t.pos = 0
	t.inRange = false

	var tokens []Token
	t.skipWhitespace()

	for t.pos < len(t.input) {
		ch := t.input[t.pos]
		start := t.pos
		switch {
		case ch == '(':
			tokens = append(tokens, Token{Type: LPAREN, Value: "(", Pos: start})
			t.pos++
		case ch == ')':
			tokens = append(tokens, Token{Type: RPAREN, Value: ")", Pos: start})
			t.pos++
		case ch == '[' || ch == '{':
			tokens = append(tokens, Token{Type: LBRACKET, Value: string(ch), Pos: start})
			t.inRange = true
			t.pos++
		case ch == ']' || ch == '}':
			tokens = append(tokens, Token{Type: RBRACKET, Value: string(ch), Pos: start})
			t.inRange = false
			t.pos++
		case ch == '"':
			tokens = append(tokens, t.readQuoted())
		default:
			tokens = append(tokens, t.readWord()...)
		}
		t.skipWhitespace()
	}

	tokens = append(tokens, Token{Type: EOF, Pos: len(t.input)})
	return tokens
}

func (t *ExprTokenizer) skipWhitespace() {
	for t.pos < len(t.input) && unicode.IsSpace(t.input[t.pos]) {
		t.pos++
	}
}

func (t *ExprTokenizer) readWord() []Token {
	start := t.pos
	for t.pos < len(t.input) && isWordChar(t.input[t.pos]) {
		t.pos++
	}
	word := string(t.input[start:t.pos])

	if t.inRange {
		if word == "TO" {
			return []Token{{Type: TO, Value: word, Pos: start}}
		}
		return []Token{{Type: WORD, Value: word, Pos: start}}
	}

	if i := strings.IndexRune(word, ':'); i > 0 {
		field := Token{Type: FIELD, Value: word[:i], Pos: start}
		if rest := word[i+1:]; rest != "" {
			return []Token{field, {Type: WORD, Value: rest, Pos: start + len([]rune(word[:i+1]))}}
		}
		return []Token{field}
	}

	switch strings.ToUpper(word) {
	case "AND", "&&":
		return []Token{{Type: AND, Value: word, Pos: start}}
	case "OR", "||":
		return []Token{{Type: OR, Value: word, Pos: start}}
	case "NOT", "!":
		return []Token{{Type: NOT, Value: word, Pos: start}}
	default:
		return []Token{{Type: WORD, Value: word, Pos: start}}
	}
}

// readQuoted reads a Go-style quoted string; escapes are honored.
func (t *ExprTokenizer) readQuoted() Token {
	start := t.pos
	t.pos++ // skip opening quote
	for t.pos < len(t.input) && t.input[t.pos] != '"' {
		if t.input[t.pos] == '\\' {
			t.pos++
		}
		t.pos++
	}
	if t.pos >= len(t.input) {
		return Token{Type: ILLEGAL, Value: "unterminated quote", Pos: start}
	}
	t.pos++ // skip closing quote

	raw := string(t.input[start:t.pos])
	value, err := strconv.Unquote(raw)
	if err != nil {
		value = raw[1 : len(raw)-1]
	}
	return Token{Type: PHRASE, Value: value, Pos: start}
}

func isWordChar(ch rune) bool {
	if unicode.IsSpace(ch) {
		return false
	}
	return !strings.ContainsRune(`()[]{}"`, ch)
}

// Validate checks the token stream for structural errors: unbalanced groups,
// misplaced operators and malformed ranges.
func (t *ExprTokenizer) Validate(tokens []Token) error {
	for _, tok := range tokens {
		if tok.Type == ILLEGAL {
			return fmt.Errorf("%s at position %d", tok.Value, tok.Pos)
		}
	}

	depth := 0
	hasField := false

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Type == EOF {
			break
		}
		next := EOF
		if i+1 < len(tokens) {
			next = tokens[i+1].Type
		}

		switch tok.Type {
		case FIELD:
			hasField = true
			if next != WORD && next != PHRASE && next != LBRACKET && next != LPAREN {
				return fmt.Errorf("field %q at position %d has no value", tok.Value, tok.Pos)
			}
		case WORD, PHRASE:
		case LPAREN:
			depth++
			if next == RPAREN {
				return fmt.Errorf("empty parentheses at position %d", tok.Pos)
			}
		case RPAREN:
			depth--
			if depth < 0 {
				return fmt.Errorf("unexpected closing parenthesis at position %d", tok.Pos)
			}
		case LBRACKET:
			if i+4 >= len(tokens) ||
				tokens[i+1].Type != WORD || tokens[i+2].Type != TO ||
				tokens[i+3].Type != WORD || tokens[i+4].Type != RBRACKET {
				return fmt.Errorf("malformed range at position %d: expected [lower TO upper]", tok.Pos)
			}
			i += 4
		case RBRACKET:
			return fmt.Errorf("unexpected %s at position %d", tok.Value, tok.Pos)
		case TO:
			return fmt.Errorf("TO outside of a range at position %d", tok.Pos)
		case AND, OR:
			if i == 0 {
				return fmt.Errorf("expression cannot start with %s", tok.Value)
			}
			prev := tokens[i-1].Type
			if prev != WORD && prev != PHRASE && prev != RPAREN && prev != RBRACKET {
				return fmt.Errorf("unexpected %s operator at position %d", tok.Value, tok.Pos)
			}
			if !startsOperand(next) {
				return fmt.Errorf("%s at position %d must be followed by a term or group", tok.Value, tok.Pos)
			}
		case NOT:
			if !startsOperand(next) {
				return fmt.Errorf("NOT at position %d must be followed by a term or group", tok.Pos)
			}
		default:
			return fmt.Errorf("invalid token: %s", tok.Value)
		}
	}

	if depth != 0 {
		return fmt.Errorf("unbalanced parentheses: %d unclosed", depth)
	}
	if !hasField {
		return fmt.Errorf("expression must contain at least one field:value term")
	}
	return nil
}

func startsOperand(t Type) bool {
	switch t {
	case FIELD, WORD, PHRASE, LPAREN, NOT:
		return true
	}
	return false
}
