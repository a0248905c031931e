package minic

// Parser builds a Program from a token stream. Plain recursive descent; the
// grammar is small enough that no tables are worth the trouble.
type Parser struct {
	file    string
	tokens  []Token
	current int
}

func NewParser(file string, tokens []Token) *Parser {
	return &Parser{
		file:   file,
		tokens: tokens,
	}
}

func (p *Parser) Parse() (*Program, error) {
	prog := &Program{
		Functions: make(map[string]*Function),
	}

	for !p.isAtEnd() {
		if err := p.topLevel(prog); err != nil {
			return nil, err
		}
	}

	main, ok := prog.Functions["main"]
	if !ok || !main.HasBody {
		return nil, errf(p.file, 0, "program has no main function")
	}

	return prog, nil
}

func (p *Parser) topLevel(prog *Program) error {
	typ, err := p.typeSpec()
	if err != nil {
		return err
	}

	name, err := p.consume(TokenIdent, "expected declaration name")
	if err != nil {
		return err
	}

	if p.check(TokenLParen) {
		return p.function(prog, typ, name)
	}

	decl, err := p.finishVarDecl(typ, name)
	if err != nil {
		return err
	}

	prog.Globals = append(prog.Globals, decl)
	return nil
}

// typeSpec parses a base type plus any pointer declarators.
func (p *Parser) typeSpec() (*Type, error) {
	var base *Type

	switch {
	case p.match(TokenInt):
		base = Int
	case p.match(TokenChar):
		base = Char
	case p.match(TokenVoid):
		base = Void
	default:
		return nil, errf(p.file, p.peek().Line, "expected type specifier, found %q", p.peek().Lexeme)
	}

	for p.match(TokenStar) {
		base = PointerTo(base)
	}

	return base, nil
}

func (p *Parser) function(prog *Program, ret *Type, name Token) error {
	p.advance() // (

	var params []Param

	if !p.check(TokenRParen) {
		// Bare void parameter lists are C prototypes for "no arguments".
		if p.check(TokenVoid) && p.peekNext().Type == TokenRParen {
			p.advance()
		} else {
			for {
				typ, err := p.typeSpec()
				if err != nil {
					return err
				}

				pname, err := p.consume(TokenIdent, "expected parameter name")
				if err != nil {
					return err
				}

				params = append(params, Param{Name: pname.Lexeme, Type: typ})

				if !p.match(TokenComma) {
					break
				}
			}
		}
	}

	if _, err := p.consume(TokenRParen, "expected ')' after parameters"); err != nil {
		return err
	}

	fn := &Function{
		Name:   name.Lexeme,
		Return: ret,
		Params: params,
		Line:   name.Line,
	}

	if p.match(TokenSemicolon) {
		// Prototype. Keep it only when no body is known yet.
		if _, exists := prog.Functions[fn.Name]; !exists {
			prog.Functions[fn.Name] = fn
		}
		return nil
	}

	if _, err := p.consume(TokenLBrace, "expected '{' or ';' after function header"); err != nil {
		return err
	}

	if prev, exists := prog.Functions[fn.Name]; exists && prev.HasBody {
		return errf(p.file, name.Line, "duplicate definition of function %q", fn.Name)
	}

	body, err := p.blockStatements()
	if err != nil {
		return err
	}

	fn.Body = body
	fn.HasBody = true
	prog.Functions[fn.Name] = fn
	return nil
}

func (p *Parser) finishVarDecl(typ *Type, name Token) (*VarDecl, error) {
	decl := &VarDecl{
		Name: name.Lexeme,
		Type: typ,
		Line: name.Line,
	}

	if p.match(TokenLBracket) {
		size, err := p.consume(TokenNumber, "expected array length")
		if err != nil {
			return nil, err
		}
		if size.Value <= 0 {
			return nil, errf(p.file, size.Line, "array length must be positive")
		}
		if _, err := p.consume(TokenRBracket, "expected ']' after array length"); err != nil {
			return nil, err
		}

		decl.IsArray = true
		decl.ArrayLen = int(size.Value)
	}

	if p.match(TokenAssign) {
		if decl.IsArray {
			return nil, errf(p.file, name.Line, "arrays cannot be initialized")
		}

		init, err := p.expression()
		if err != nil {
			return nil, err
		}
		decl.Init = init
	}

	if _, err := p.consume(TokenSemicolon, "expected ';' after declaration"); err != nil {
		return nil, err
	}

	return decl, nil
}

// ---- statements ----

func (p *Parser) statement() (Stmt, error) {
	switch {
	case p.check(TokenLBrace):
		return p.block()
	case p.match(TokenIf):
		return p.ifStatement()
	case p.match(TokenWhile):
		return p.whileStatement()
	case p.match(TokenFor):
		return p.forStatement()
	case p.check(TokenReturn):
		return p.returnStatement()
	case p.check(TokenBreak):
		tok := p.advance()
		if _, err := p.consume(TokenSemicolon, "expected ';' after break"); err != nil {
			return nil, err
		}
		return &Break{Line: tok.Line}, nil
	case p.check(TokenContinue):
		tok := p.advance()
		if _, err := p.consume(TokenSemicolon, "expected ';' after continue"); err != nil {
			return nil, err
		}
		return &Continue{Line: tok.Line}, nil
	case p.checkType():
		return p.declStatement()
	default:
		return p.exprStatement()
	}
}

func (p *Parser) checkType() bool {
	switch p.peek().Type {
	case TokenInt, TokenChar, TokenVoid:
		return true
	}
	return false
}

func (p *Parser) declStatement() (Stmt, error) {
	typ, err := p.typeSpec()
	if err != nil {
		return nil, err
	}

	name, err := p.consume(TokenIdent, "expected variable name")
	if err != nil {
		return nil, err
	}

	return p.finishVarDecl(typ, name)
}

func (p *Parser) block() (Stmt, error) {
	brace := p.advance() // {

	stmts, err := p.blockStatements()
	if err != nil {
		return nil, err
	}

	return &Block{Stmts: stmts, Line: brace.Line}, nil
}

func (p *Parser) blockStatements() ([]Stmt, error) {
	var stmts []Stmt

	for !p.check(TokenRBrace) && !p.isAtEnd() {
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}

	if _, err := p.consume(TokenRBrace, "expected '}'"); err != nil {
		return nil, err
	}

	return stmts, nil
}

func (p *Parser) ifStatement() (Stmt, error) {
	line := p.previous().Line

	if _, err := p.consume(TokenLParen, "expected '(' after if"); err != nil {
		return nil, err
	}

	cond, err := p.expression()
	if err != nil {
		return nil, err
	}

	if _, err := p.consume(TokenRParen, "expected ')' after if condition"); err != nil {
		return nil, err
	}

	then, err := p.statement()
	if err != nil {
		return nil, err
	}

	var els Stmt
	if p.match(TokenElse) {
		els, err = p.statement()
		if err != nil {
			return nil, err
		}
	}

	return &If{Cond: cond, Then: then, Else: els, Line: line}, nil
}

func (p *Parser) whileStatement() (Stmt, error) {
	line := p.previous().Line

	if _, err := p.consume(TokenLParen, "expected '(' after while"); err != nil {
		return nil, err
	}

	cond, err := p.expression()
	if err != nil {
		return nil, err
	}

	if _, err := p.consume(TokenRParen, "expected ')' after while condition"); err != nil {
		return nil, err
	}

	body, err := p.statement()
	if err != nil {
		return nil, err
	}

	return &While{Cond: cond, Body: body, Line: line}, nil
}

func (p *Parser) forStatement() (Stmt, error) {
	line := p.previous().Line

	if _, err := p.consume(TokenLParen, "expected '(' after for"); err != nil {
		return nil, err
	}

	var init Stmt
	var err error

	switch {
	case p.match(TokenSemicolon):
		// no initializer
	case p.checkType():
		init, err = p.declStatement()
		if err != nil {
			return nil, err
		}
	default:
		init, err = p.exprStatement()
		if err != nil {
			return nil, err
		}
	}

	var cond Expr
	if !p.check(TokenSemicolon) {
		cond, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(TokenSemicolon, "expected ';' after for condition"); err != nil {
		return nil, err
	}

	var post Expr
	if !p.check(TokenRParen) {
		post, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(TokenRParen, "expected ')' after for clauses"); err != nil {
		return nil, err
	}

	body, err := p.statement()
	if err != nil {
		return nil, err
	}

	return &For{Init: init, Cond: cond, Post: post, Body: body, Line: line}, nil
}

func (p *Parser) returnStatement() (Stmt, error) {
	tok := p.advance()

	var value Expr
	var err error

	if !p.check(TokenSemicolon) {
		value, err = p.expression()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.consume(TokenSemicolon, "expected ';' after return"); err != nil {
		return nil, err
	}

	return &Return{Value: value, Line: tok.Line}, nil
}

func (p *Parser) exprStatement() (Stmt, error) {
	x, err := p.expression()
	if err != nil {
		return nil, err
	}

	if _, err := p.consume(TokenSemicolon, "expected ';' after expression"); err != nil {
		return nil, err
	}

	return &ExprStmt{X: x, Line: x.ExprLine()}, nil
}

// ---- expressions ----

func (p *Parser) expression() (Expr, error) {
	return p.assignment()
}

var compoundOps = map[TokenType]string{
	TokenAssign:        "",
	TokenPlusAssign:    "+",
	TokenMinusAssign:   "-",
	TokenStarAssign:    "*",
	TokenSlashAssign:   "/",
	TokenPercentAssign: "%",
}

func (p *Parser) assignment() (Expr, error) {
	left, err := p.logicalOr()
	if err != nil {
		return nil, err
	}

	op, ok := compoundOps[p.peek().Type]
	if !ok {
		return left, nil
	}

	tok := p.advance()

	switch left.(type) {
	case *Ident, *Index, *Deref:
	default:
		return nil, errf(p.file, tok.Line, "invalid assignment target")
	}

	value, err := p.assignment()
	if err != nil {
		return nil, err
	}

	return &Assign{Target: left, Op: op, Value: value, Line: tok.Line}, nil
}

func (p *Parser) logicalOr() (Expr, error) {
	left, err := p.logicalAnd()
	if err != nil {
		return nil, err
	}

	for p.check(TokenOr) {
		tok := p.advance()
		right, err := p.logicalAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "||", Left: left, Right: right, Line: tok.Line}
	}

	return left, nil
}

func (p *Parser) logicalAnd() (Expr, error) {
	left, err := p.equality()
	if err != nil {
		return nil, err
	}

	for p.check(TokenAnd) {
		tok := p.advance()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "&&", Left: left, Right: right, Line: tok.Line}
	}

	return left, nil
}

func (p *Parser) equality() (Expr, error) {
	left, err := p.relational()
	if err != nil {
		return nil, err
	}

	for p.check(TokenEqual) || p.check(TokenNotEqual) {
		tok := p.advance()
		right, err := p.relational()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: string(tok.Type), Left: left, Right: right, Line: tok.Line}
	}

	return left, nil
}

func (p *Parser) relational() (Expr, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}

	for p.check(TokenLT) || p.check(TokenGT) || p.check(TokenLE) || p.check(TokenGE) {
		tok := p.advance()
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: string(tok.Type), Left: left, Right: right, Line: tok.Line}
	}

	return left, nil
}

func (p *Parser) additive() (Expr, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}

	for p.check(TokenPlus) || p.check(TokenMinus) {
		tok := p.advance()
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: string(tok.Type), Left: left, Right: right, Line: tok.Line}
	}

	return left, nil
}

func (p *Parser) multiplicative() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}

	for p.check(TokenStar) || p.check(TokenSlash) || p.check(TokenPercent) {
		tok := p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: string(tok.Type), Left: left, Right: right, Line: tok.Line}
	}

	return left, nil
}

func (p *Parser) unary() (Expr, error) {
	switch {
	case p.check(TokenNot), p.check(TokenMinus), p.check(TokenPlus):
		tok := p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: string(tok.Type), X: x, Line: tok.Line}, nil

	case p.check(TokenStar):
		tok := p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Deref{X: x, Line: tok.Line}, nil

	case p.check(TokenPlusPlus), p.check(TokenMinusMinus):
		tok := p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		if err := validIncDecTarget(x); err != nil {
			return nil, errf(p.file, tok.Line, "invalid operand of %s", tok.Lexeme)
		}
		op := "++"
		if tok.Type == TokenMinusMinus {
			op = "--"
		}
		return &IncDec{Target: x, Op: op, Prefix: true, Line: tok.Line}, nil
	}

	return p.postfix()
}

func validIncDecTarget(x Expr) error {
	switch x.(type) {
	case *Ident, *Index, *Deref:
		return nil
	}
	return errf("", 0, "invalid target")
}

func (p *Parser) postfix() (Expr, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.check(TokenLBracket):
			tok := p.advance()
			idx, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(TokenRBracket, "expected ']' after index"); err != nil {
				return nil, err
			}
			x = &Index{X: x, Index: idx, Line: tok.Line}

		case p.check(TokenPlusPlus), p.check(TokenMinusMinus):
			tok := p.advance()
			if err := validIncDecTarget(x); err != nil {
				return nil, errf(p.file, tok.Line, "invalid operand of %s", tok.Lexeme)
			}
			op := "++"
			if tok.Type == TokenMinusMinus {
				op = "--"
			}
			x = &IncDec{Target: x, Op: op, Prefix: false, Line: tok.Line}

		default:
			return x, nil
		}
	}
}

func (p *Parser) primary() (Expr, error) {
	switch {
	case p.check(TokenNumber), p.check(TokenCharLit):
		tok := p.advance()
		return &IntLit{Value: tok.Value, Line: tok.Line}, nil

	case p.check(TokenStringLit):
		tok := p.advance()
		return &StringLit{Value: tok.Lexeme, Line: tok.Line}, nil

	case p.check(TokenIdent):
		tok := p.advance()

		if p.check(TokenLParen) {
			p.advance()

			var args []Expr
			if !p.check(TokenRParen) {
				for {
					arg, err := p.expression()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)

					if !p.match(TokenComma) {
						break
					}
				}
			}

			if _, err := p.consume(TokenRParen, "expected ')' after arguments"); err != nil {
				return nil, err
			}

			return &Call{Name: tok.Lexeme, Args: args, Line: tok.Line}, nil
		}

		return &Ident{Name: tok.Lexeme, Line: tok.Line}, nil

	case p.check(TokenLParen):
		p.advance()
		x, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(TokenRParen, "expected ')'"); err != nil {
			return nil, err
		}
		return x, nil
	}

	return nil, errf(p.file, p.peek().Line, "unexpected token %q", p.peek().Lexeme)
}

// ---- token plumbing ----

func (p *Parser) consume(t TokenType, msg string) (Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return Token{}, errf(p.file, p.peek().Line, "%s, found %q", msg, p.peek().Lexeme)
}

func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) check(t TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) peekNext() Token {
	if p.current+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current+1]
}

func (p *Parser) previous() Token {
	return p.tokens[p.current-1]
}

func (p *Parser) advance() Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.tokens[p.current-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == TokenEOF
}
