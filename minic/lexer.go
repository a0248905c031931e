package minic

import "strconv"

// Scanner turns MiniC source into a token stream. One instance per
// translation unit; the preprocessor has already flattened includes by the
// time this runs.
type Scanner struct {
	file    string
	source  string
	tokens  []Token
	start   int
	current int
	line    int
}

func NewScanner(file, source string) *Scanner {
	return &Scanner{
		file:   file,
		source: source,
		line:   1,
	}
}

func (s *Scanner) ScanTokens() ([]Token, error) {
	for !s.isAtEnd() {
		s.skipSpace()
		s.start = s.current
		if s.isAtEnd() {
			break
		}

		if err := s.scanToken(); err != nil {
			return nil, err
		}
	}

	s.tokens = append(s.tokens, Token{Type: TokenEOF, Line: s.line})
	return s.tokens, nil
}

func (s *Scanner) scanToken() error {
	c := s.advance()
	switch c {
	case '(':
		s.addToken(TokenLParen)
	case ')':
		s.addToken(TokenRParen)
	case '{':
		s.addToken(TokenLBrace)
	case '}':
		s.addToken(TokenRBrace)
	case '[':
		s.addToken(TokenLBracket)
	case ']':
		s.addToken(TokenRBracket)
	case ',':
		s.addToken(TokenComma)
	case ';':
		s.addToken(TokenSemicolon)
	case '+':
		if s.match('+') {
			s.addToken(TokenPlusPlus)
		} else if s.match('=') {
			s.addToken(TokenPlusAssign)
		} else {
			s.addToken(TokenPlus)
		}
	case '-':
		if s.match('-') {
			s.addToken(TokenMinusMinus)
		} else if s.match('=') {
			s.addToken(TokenMinusAssign)
		} else {
			s.addToken(TokenMinus)
		}
	case '*':
		if s.match('=') {
			s.addToken(TokenStarAssign)
		} else {
			s.addToken(TokenStar)
		}
	case '/':
		if s.match('/') {
			for s.peek() != '\n' && !s.isAtEnd() {
				s.advance()
			}
		} else if s.match('*') {
			if err := s.blockComment(); err != nil {
				return err
			}
		} else if s.match('=') {
			s.addToken(TokenSlashAssign)
		} else {
			s.addToken(TokenSlash)
		}
	case '%':
		if s.match('=') {
			s.addToken(TokenPercentAssign)
		} else {
			s.addToken(TokenPercent)
		}
	case '=':
		if s.match('=') {
			s.addToken(TokenEqual)
		} else {
			s.addToken(TokenAssign)
		}
	case '!':
		if s.match('=') {
			s.addToken(TokenNotEqual)
		} else {
			s.addToken(TokenNot)
		}
	case '<':
		if s.match('=') {
			s.addToken(TokenLE)
		} else {
			s.addToken(TokenLT)
		}
	case '>':
		if s.match('=') {
			s.addToken(TokenGE)
		} else {
			s.addToken(TokenGT)
		}
	case '&':
		if s.match('&') {
			s.addToken(TokenAnd)
		} else {
			return errf(s.file, s.line, "unexpected character '&'")
		}
	case '|':
		if s.match('|') {
			s.addToken(TokenOr)
		} else {
			return errf(s.file, s.line, "unexpected character '|'")
		}
	case '"':
		return s.stringLit()
	case '\'':
		return s.charLit()
	default:
		if isDigit(c) {
			return s.number()
		}
		if isAlpha(c) {
			s.identifier()
			return nil
		}
		return errf(s.file, s.line, "unexpected character %q", string(c))
	}

	return nil
}

func (s *Scanner) blockComment() error {
	for !s.isAtEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		if s.peek() == '*' && s.peekNext() == '/' {
			s.advance()
			s.advance()
			return nil
		}
		s.advance()
	}
	return errf(s.file, s.line, "unterminated block comment")
}

func (s *Scanner) identifier() {
	for isAlphaNumeric(s.peek()) {
		s.advance()
	}

	text := s.source[s.start:s.current]

	if ignoredQualifiers[text] {
		return
	}

	if kw, ok := keywords[text]; ok {
		s.addToken(kw)
		return
	}

	s.addToken(TokenIdent)
}

func (s *Scanner) number() error {
	if s.source[s.start] == '0' && (s.peek() == 'x' || s.peek() == 'X') {
		s.advance()
		for isHexDigit(s.peek()) {
			s.advance()
		}

		text := s.source[s.start:s.current]

		v, err := strconv.ParseUint(text[2:], 16, 32)
		if err != nil {
			return errf(s.file, s.line, "bad hex literal %q", text)
		}

		s.tokens = append(s.tokens, Token{Type: TokenNumber, Lexeme: text, Value: int32(v), Line: s.line})
		return nil
	}

	for isDigit(s.peek()) {
		s.advance()
	}

	text := s.source[s.start:s.current]

	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return errf(s.file, s.line, "bad integer literal %q", text)
	}

	s.tokens = append(s.tokens, Token{Type: TokenNumber, Lexeme: text, Value: int32(v), Line: s.line})
	return nil
}

func (s *Scanner) stringLit() error {
	var out []byte

	for !s.isAtEnd() && s.peek() != '"' {
		c := s.advance()
		if c == '\n' {
			return errf(s.file, s.line, "newline in string literal")
		}

		if c == '\\' {
			e, err := s.escape()
			if err != nil {
				return err
			}
			out = append(out, e)
			continue
		}

		out = append(out, c)
	}

	if s.isAtEnd() {
		return errf(s.file, s.line, "unterminated string literal")
	}

	s.advance() // closing quote

	s.tokens = append(s.tokens, Token{Type: TokenStringLit, Lexeme: string(out), Line: s.line})
	return nil
}

func (s *Scanner) charLit() error {
	if s.isAtEnd() {
		return errf(s.file, s.line, "unterminated character literal")
	}

	c := s.advance()
	if c == '\\' {
		e, err := s.escape()
		if err != nil {
			return err
		}
		c = e
	}

	if s.isAtEnd() || s.advance() != '\'' {
		return errf(s.file, s.line, "unterminated character literal")
	}

	s.tokens = append(s.tokens, Token{Type: TokenCharLit, Lexeme: string(c), Value: int32(c), Line: s.line})
	return nil
}

func (s *Scanner) escape() (byte, error) {
	if s.isAtEnd() {
		return 0, errf(s.file, s.line, "unterminated escape sequence")
	}

	c := s.advance()
	switch c {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case '0':
		return 0, nil
	case '\\', '\'', '"':
		return c, nil
	case 'x':
		var v int
		var n int
		for n < 2 && isHexDigit(s.peek()) {
			v = v*16 + hexValue(s.advance())
			n++
		}
		if n == 0 {
			return 0, errf(s.file, s.line, "bad hex escape")
		}
		return byte(v), nil
	default:
		return 0, errf(s.file, s.line, "unknown escape '\\%s'", string(c))
	}
}

func (s *Scanner) skipSpace() {
	for !s.isAtEnd() {
		switch s.peek() {
		case '\n':
			s.line++
			s.advance()
		case ' ', '\r', '\t':
			s.advance()
		default:
			return
		}
	}
}

func (s *Scanner) addToken(t TokenType) {
	s.tokens = append(s.tokens, Token{Type: t, Lexeme: s.source[s.start:s.current], Line: s.line})
}

func (s *Scanner) match(expected byte) bool {
	if s.isAtEnd() || s.source[s.current] != expected {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) advance() byte {
	s.current++
	return s.source[s.current-1]
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return 0
	}
	return s.source[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return s.source[s.current+1]
}

func (s *Scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func hexValue(c byte) int {
	switch {
	case isDigit(c):
		return int(c - '0')
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}

func isAlpha(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isAlphaNumeric(c byte) bool {
	return isAlpha(c) || isDigit(c)
}
