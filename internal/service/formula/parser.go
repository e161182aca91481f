package formula

import (
	"fmt"
	"strconv"
)

// Formula is a parsed calculation. Fields lists the distinct field ids it
// references, in order of first appearance.
type Formula struct {
	Source string
	Root   Expr
	Fields []string
}

// Parse turns a formula string into an evaluable tree.
func Parse(src string) (*Formula, error) {
	tokens, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens, seen: map[string]bool{}}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, &ParseError{Message: fmt.Sprintf("unexpected %s", describe(tok)), Pos: tok.Pos}
	}

	return &Formula{Source: src, Root: root, Fields: p.fields}, nil
}

func (f *Formula) Eval(lookup Lookup) (float64, error) {
	return f.Root.Eval(lookup)
}

type parser struct {
	tokens []Token
	pos    int
	fields []string
	seen   map[string]bool
}

func (p *parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.peek()
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

// expr := term (("+" | "-") term)*
func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.Type != TokenPlus && tok.Type != TokenMinus {
			return left, nil
		}
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: tok.Type, Left: left, Right: right}
	}
}

// term := unary (("*" | "/") unary)*
func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.Type != TokenStar && tok.Type != TokenSlash {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: tok.Type, Left: left, Right: right}
	}
}

// unary := ("-" | "+") unary | primary
func (p *parser) parseUnary() (Expr, error) {
	tok := p.peek()
	if tok.Type == TokenMinus || tok.Type == TokenPlus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: tok.Type, Operand: operand}, nil
	}
	return p.parsePrimary()
}

// primary := number | field | "(" expr ")"
func (p *parser) parsePrimary() (Expr, error) {
	tok := p.advance()
	switch tok.Type {
	case TokenNumber:
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("invalid number %q", tok.Literal), Pos: tok.Pos}
		}
		return &NumberLit{Value: v}, nil
	case TokenIdent:
		if !p.seen[tok.Literal] {
			p.seen[tok.Literal] = true
			p.fields = append(p.fields, tok.Literal)
		}
		return &FieldRef{FieldID: tok.Literal}, nil
	case TokenLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.advance(); closing.Type != TokenRParen {
			return nil, &ParseError{Message: fmt.Sprintf("expected ), got %s", describe(closing)), Pos: closing.Pos}
		}
		return inner, nil
	}
	return nil, &ParseError{Message: fmt.Sprintf("unexpected %s", describe(tok)), Pos: tok.Pos}
}

func describe(tok Token) string {
	if tok.Literal == "" {
		return tok.Type.String()
	}
	return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
}
