package expr

// parser of the arithmetic expression grammar. We briefly describe the
// grammar as following EBNF
//
// expr     := term (('+'|'-') term)*
// term     := exponent (('*'|'/'|'%') exponent)*
// exponent := factor ('^' factor)*
// factor   := '-' factor | NUMBER | COLUMN | '(' expr ')'
//
// COLUMN := '#' digits | '#' letters | '@' title '@'
//
// Notes '^' is parsed by an iterative loop, so nested '^' groups to the LEFT.
// This mirrors the historical behavior and must not be changed, cached
// results of expressions with nested '^' would silently change meaning.

type Parser struct {
	L *Lexer
}

func (self *Parser) err(kind int, msg string) error {
	if self.L.Token == TkError {
		return self.L.Err()
	}
	return &ParseError{
		Kind:    kind,
		Msg:     msg,
		Context: self.L.caret(),
	}
}

func (self *Parser) unexpected() error {
	return self.err(
		ErrUnexpectedToken,
		"unexpected token: "+tokenName(self.L.Token, self.L.Lexeme),
	)
}

func (self *Parser) parseFactor() (*Expr, error) {
	switch self.L.Token {
	case TkSub:
		self.L.Next()
		inner, err := self.parseFactor()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprNegate, L: inner}, nil

	case TkNumber:
		n := number(self.L.Lexeme.Num)
		self.L.Next()
		return n, nil

	case TkColumn:
		n := column(self.L.Lexeme.Col)
		self.L.Next()
		return n, nil

	case TkLPar:
		self.L.Next()
		inner, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		if self.L.Token != TkRPar {
			return nil, self.err(
				ErrMismatchedParentheses,
				"mismatched parentheses: "+
					tokenName(self.L.Token, self.L.Lexeme),
			)
		}
		self.L.Next()
		return inner, nil

	default:
		return nil, self.unexpected()
	}
}

func (self *Parser) parseExponent() (*Expr, error) {
	expr, err := self.parseFactor()
	if err != nil {
		return nil, err
	}
	for self.L.Token == TkPow {
		self.L.Next()
		rhs, err := self.parseFactor()
		if err != nil {
			return nil, err
		}
		expr = binary(ExprPow, expr, rhs)
	}
	return expr, nil
}

func (self *Parser) parseTerm() (*Expr, error) {
	expr, err := self.parseExponent()
	if err != nil {
		return nil, err
	}
	for {
		var kind int
		switch self.L.Token {
		case TkMul:
			kind = ExprMul
		case TkDiv:
			kind = ExprDiv
		case TkMod:
			kind = ExprMod
		default:
			return expr, nil
		}
		self.L.Next()
		rhs, err := self.parseExponent()
		if err != nil {
			return nil, err
		}
		expr = binary(kind, expr, rhs)
	}
}

func (self *Parser) parseExpr() (*Expr, error) {
	expr, err := self.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		var kind int
		switch self.L.Token {
		case TkAdd:
			kind = ExprAdd
		case TkSub:
			kind = ExprSub
		default:
			return expr, nil
		}
		self.L.Next()
		rhs, err := self.parseTerm()
		if err != nil {
			return nil, err
		}
		expr = binary(kind, expr, rhs)
	}
}

func (self *Parser) parse() (*Expr, error) {
	self.L.Next()
	expr, err := self.parseExpr()
	if err != nil {
		return nil, err
	}
	if self.L.Token != TkEof {
		return nil, self.unexpected()
	}
	return expr, nil
}
