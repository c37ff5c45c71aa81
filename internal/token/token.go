package token

type Type int

const (
	EOF Type = iota
	ILLEGAL
	FIELD
	WORD
	PHRASE
	AND
	OR
	NOT
	TO
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
)

func (t Type) String() string {
	switch t {
	case EOF:
		return "EOF"
	case ILLEGAL:
		return "ILLEGAL"
	case FIELD:
		return "FIELD"
	case WORD:
		return "WORD"
	case PHRASE:
		return "PHRASE"
	case AND:
		return "AND"
	case OR:
		return "OR"
	case NOT:
		return "NOT"
	case TO:
		return "TO"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	case LBRACKET:
		return "LBRACKET"
	case RBRACKET:
		return "RBRACKET"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token with its type, literal value and rune offset.
// LBRACKET and RBRACKET carry "[" / "]" for inclusive bounds and "{" / "}" for exclusive ones.
type Token struct {
	Type  Type
	Value string
	Pos   int
}

// Inclusive reports whether a bracket token is an inclusive bound.
func (t Token) Inclusive() bool {
	return t.Value == "[" || t.Value == "]"
}
