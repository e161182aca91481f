package formula

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Lexer struct {
	input string
	pos   int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans the whole input. It stops at the first unexpected character.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *Lexer) peekAt(offset int) rune {
	p := l.pos + offset
	if p >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[p:])
	return r
}

func (l *Lexer) advance() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	return r
}

func (l *Lexer) next() (Token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	start := l.pos
	r := l.peek()

	if isDigit(r) || (r == '.' && isDigit(l.peekAt(1))) {
		return l.scanNumber(), nil
	}
	if isIdentStart(r) {
		return l.scanIdent(), nil
	}
	if r == '{' {
		return l.scanBraced()
	}

	l.advance()
	switch r {
	case '+':
		return Token{Type: TokenPlus, Literal: "+", Pos: start}, nil
	case '-':
		return Token{Type: TokenMinus, Literal: "-", Pos: start}, nil
	case '*':
		return Token{Type: TokenStar, Literal: "*", Pos: start}, nil
	case '/':
		return Token{Type: TokenSlash, Literal: "/", Pos: start}, nil
	case '(':
		return Token{Type: TokenLParen, Literal: "(", Pos: start}, nil
	case ')':
		return Token{Type: TokenRParen, Literal: ")", Pos: start}, nil
	}

	return Token{}, &ParseError{Message: fmt.Sprintf("unexpected character %q", r), Pos: start}
}

func (l *Lexer) scanNumber() Token {
	start := l.pos
	seenDot := false
	for l.pos < len(l.input) {
		r := l.peek()
		if isDigit(r) {
			l.advance()
			continue
		}
		if r == '.' && !seenDot && isDigit(l.peekAt(1)) {
			seenDot = true
			l.advance()
			continue
		}
		break
	}
	return Token{Type: TokenNumber, Literal: l.input[start:l.pos], Pos: start}
}

// scanIdent reads a field id. Dots are allowed so nested ids like
// "boundaries.north" stay one reference.
func (l *Lexer) scanIdent() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.peek()) {
		l.advance()
	}
	return Token{Type: TokenIdent, Literal: l.input[start:l.pos], Pos: start}
}

// scanBraced reads a {field-id} reference, for ids that are not plain identifiers.
func (l *Lexer) scanBraced() (Token, error) {
	start := l.pos
	l.advance()
	from := l.pos
	for l.pos < len(l.input) {
		if l.peek() == '}' {
			lit := strings.TrimSpace(l.input[from:l.pos])
			l.advance()
			if lit == "" {
				return Token{}, &ParseError{Message: "empty field reference", Pos: start}
			}
			return Token{Type: TokenIdent, Literal: lit, Pos: start}, nil
		}
		l.advance()
	}
	return Token{}, &ParseError{Message: "unterminated field reference", Pos: start}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r) || r == '.'
}
