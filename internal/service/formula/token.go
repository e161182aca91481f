// Package formula parses and evaluates the arithmetic formulas of calculated
// template fields. Only numbers, field references, + - * /, unary minus and
// parentheses are accepted.
package formula

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenIdent
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenLParen
	TokenRParen
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of formula"
	case TokenNumber:
		return "number"
	case TokenIdent:
		return "field reference"
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	}
	return "unknown"
}

type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}
