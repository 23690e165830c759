// Package parser builds an Expr/Stmt tree from a NoSpace token stream
// using a recursive-descent, precedence-climbing parser with local error
// recovery.
package parser

import (
	"github.com/buyoh/nospace20/diag"
	"github.com/buyoh/nospace20/lexer"
)

// Parser turns a token stream into a tree of Stmt, accumulating
// diagnostics rather than stopping at the first problem.
type Parser struct {
	tokens []lexer.Token
	pos    int
	diags  diag.Bag
}

// Parse runs the full program grammar over tokens and returns the
// top-level statements together with any diagnostics; the (partly
// Invalid) statements are still returned when diagnostics were raised.
func Parse(tokens []lexer.Token) ([]Stmt, []diag.Diagnostic) {
	p := &Parser{tokens: tokens}
	var stmts []Stmt
	for !p.atKind(lexer.EOF) {
		stmts = append(stmts, p.parseStatement())
	}
	if !p.diags.Empty() {
		return stmts, p.diags.Diagnostics()
	}
	return stmts, nil
}

func (p *Parser) cur() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) atKind(k lexer.Kind) bool {
	return p.cur().Kind == k
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if t.Kind != lexer.EOF {
		p.pos++
	}
	return t
}

// expect consumes the current token if it has kind k, else records a
// diagnostic at the offending token's offset (or 0 at end of input) and
// leaves the cursor where it is.
func (p *Parser) expect(k lexer.Kind, what string) (lexer.Token, bool) {
	if p.atKind(k) {
		return p.advance(), true
	}
	p.errorHere("expected %s", what)
	return lexer.Token{}, false
}

func (p *Parser) errorHere(format string, args ...any) int {
	offset := p.cur().Offset
	if p.atKind(lexer.EOF) {
		offset = 0
	}
	p.diags.Add(offset, format, args...)
	return p.diags.Len() - 1
}

// synchronize skips tokens until it has consumed a statement-ending `;`
// or `}`, or reaches end of input — the parser's panic-mode recovery
// point, so that one bad statement does not cascade into unrelated
// diagnostics for the rest of the file.
func (p *Parser) synchronize() {
	for !p.atKind(lexer.EOF) {
		t := p.advance()
		if t.Kind == lexer.Semicolon || t.Kind == lexer.RBrace {
			return
		}
	}
}

// ---- statements ----

func (p *Parser) parseStatement() Stmt {
	switch p.cur().Kind {
	case lexer.KwLet:
		return p.parseVarDecl()
	case lexer.KwFunc:
		return p.parseFuncDecl()
	case lexer.KwReturn:
		return p.parseReturn()
	case lexer.KwBreak:
		offset := p.advance().Offset
		p.expect(lexer.Semicolon, "';' after 'break'")
		return &Break{Offset: offset}
	case lexer.KwContinue:
		offset := p.advance().Offset
		p.expect(lexer.Semicolon, "';' after 'continue'")
		return &Continue{Offset: offset}
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseVarDecl() Stmt {
	offset := p.advance().Offset // 'let'
	if _, ok := p.expect(lexer.Colon, "':' after 'let'"); !ok {
		idx := p.diags.Len() - 1
		p.synchronize()
		return &InvalidStmt{Offset: offset, DiagIdx: idx}
	}
	name, ok := p.expect(lexer.Ident, "identifier after 'let:'")
	if !ok {
		idx := p.diags.Len() - 1
		p.synchronize()
		return &InvalidStmt{Offset: offset, DiagIdx: idx}
	}
	p.expect(lexer.Semicolon, "';' after variable declaration")
	return &VarDecl{Offset: offset, Name: name.Text}
}

func (p *Parser) parseFuncDecl() Stmt {
	offset := p.advance().Offset // 'func'
	if _, ok := p.expect(lexer.Colon, "':' after 'func'"); !ok {
		idx := p.diags.Len() - 1
		p.synchronize()
		return &InvalidStmt{Offset: offset, DiagIdx: idx}
	}
	name, ok := p.expect(lexer.Ident, "function name")
	if !ok {
		idx := p.diags.Len() - 1
		p.synchronize()
		return &InvalidStmt{Offset: offset, DiagIdx: idx}
	}
	p.expect(lexer.LParen, "'(' after function name")
	var params []string
	if !p.atKind(lexer.RParen) {
		for {
			paramTok, ok := p.expect(lexer.Ident, "parameter name")
			if ok {
				params = append(params, paramTok.Text)
			}
			if p.atKind(lexer.Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	p.expect(lexer.RParen, "')' after parameters")
	body := p.parseBlock()
	return &FuncDecl{Offset: offset, Name: name.Text, Params: params, Body: body}
}

func (p *Parser) parseReturn() Stmt {
	offset := p.advance().Offset // 'return'
	if _, ok := p.expect(lexer.Colon, "':' after 'return'"); !ok {
		idx := p.diags.Len() - 1
		p.synchronize()
		return &InvalidStmt{Offset: offset, DiagIdx: idx}
	}
	value := p.parseExpr()
	p.expect(lexer.Semicolon, "';' after return value")
	return &Return{Offset: offset, Value: value}
}

func (p *Parser) parseExprStmt() Stmt {
	offset := p.cur().Offset
	e := p.parseExpr()
	switch e.(type) {
	case *If, *While:
		// a block-form statement ends at its closing '}'; a ';' is optional
		if !p.atKind(lexer.Semicolon) {
			return &ExprStmt{Offset: offset, Value: e}
		}
	}
	p.expect(lexer.Semicolon, "';' after expression")
	return &ExprStmt{Offset: offset, Value: e}
}

func (p *Parser) parseBlock() []Stmt {
	if _, ok := p.expect(lexer.LBrace, "'{'"); !ok {
		return nil
	}
	var stmts []Stmt
	for !p.atKind(lexer.RBrace) && !p.atKind(lexer.EOF) {
		stmts = append(stmts, p.parseStatement())
	}
	p.expect(lexer.RBrace, "'}'")
	return stmts
}

// ---- expressions, by ascending precedence ----

func (p *Parser) parseExpr() Expr {
	return p.parseAssign()
}

func (p *Parser) parseAssign() Expr {
	left := p.parseComparison()
	if p.atKind(lexer.Assign) {
		offset := p.advance().Offset
		right := p.parseAssign() // right-associative
		return &Operation2{Offset: offset, Op: Assign, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseComparison() Expr {
	left := p.parseAdditive()
	for {
		var op Operator2
		switch p.cur().Kind {
		case lexer.Eq:
			op = Equal
		case lexer.NotEq:
			op = NotEqual
		case lexer.Less:
			op = Less
		case lexer.LessEq:
			op = LessEqual
		case lexer.Greater:
			op = Greater
		case lexer.GreaterEq:
			op = GreaterEqual
		default:
			return left
		}
		offset := p.advance().Offset
		right := p.parseAdditive()
		left = &Operation2{Offset: offset, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for {
		var op Operator2
		switch p.cur().Kind {
		case lexer.Plus:
			op = Plus
		case lexer.Minus:
			op = Minus
		default:
			return left
		}
		offset := p.advance().Offset
		right := p.parseMultiplicative()
		left = &Operation2{Offset: offset, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for {
		var op Operator2
		switch p.cur().Kind {
		case lexer.Star:
			op = Multiply
		case lexer.Slash:
			op = Divide
		default:
			return left
		}
		offset := p.advance().Offset
		right := p.parseUnary()
		left = &Operation2{Offset: offset, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() Expr {
	if p.atKind(lexer.Minus) {
		offset := p.advance().Offset
		operand := p.parseUnary()
		return &Operation1{Offset: offset, Op: Negative, Operand: operand}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() Expr {
	tok := p.cur()
	switch tok.Kind {
	case lexer.Int:
		p.advance()
		return &IntLiteral{Offset: tok.Offset, Value: tok.Int}
	case lexer.Ident:
		p.advance()
		if p.atKind(lexer.LParen) {
			return p.parseCall(tok)
		}
		return &Variable{Offset: tok.Offset, Name: tok.Text}
	case lexer.LParen:
		p.advance()
		e := p.parseExpr()
		p.expect(lexer.RParen, "')'")
		return e
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwWhile:
		return p.parseWhile()
	default:
		idx := p.errorHere("unexpected token in expression")
		if !p.atKind(lexer.EOF) {
			p.advance()
		}
		return &InvalidExpr{Offset: tok.Offset, DiagIdx: idx}
	}
}

func (p *Parser) parseCall(nameTok lexer.Token) Expr {
	p.advance() // '('
	var args []Expr
	if !p.atKind(lexer.RParen) {
		for {
			args = append(args, p.parseExpr())
			if p.atKind(lexer.Comma) {
				p.advance()
				if p.atKind(lexer.RParen) {
					// trailing comma: recoverable
					p.errorHere("trailing comma in argument list")
					break
				}
				continue
			}
			break
		}
	}
	p.expect(lexer.RParen, "')' after arguments")
	return &Call{Offset: nameTok.Offset, Name: nameTok.Text, Args: args}
}

func (p *Parser) parseIf() Expr {
	offset := p.advance().Offset // 'if'
	p.expect(lexer.Colon, "':' after 'if'")
	cond := p.parseExpr()
	then := p.parseBlock()
	node := &If{Offset: offset, Cond: cond, Then: then}
	if p.atKind(lexer.KwElse) {
		p.advance()
		p.expect(lexer.Colon, "':' after 'else'")
		if p.atKind(lexer.KwIf) {
			// chained else: if: ... — represented as a single-statement
			// else block wrapping the nested if, so chained forms behave
			// identically to nested ifs per the grammar.
			nested := p.parseIf()
			node.Else = []Stmt{&ExprStmt{Offset: nested.(*If).Offset, Value: nested}}
		} else {
			node.Else = p.parseBlock()
		}
	}
	return node
}

func (p *Parser) parseWhile() Expr {
	offset := p.advance().Offset // 'while'
	p.expect(lexer.Colon, "':' after 'while'")
	cond := p.parseExpr()
	body := p.parseBlock()
	return &While{Offset: offset, Cond: cond, Body: body}
}
