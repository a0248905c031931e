package minic

import "fmt"

type TokenType string

const (
	// Keywords
	TokenInt      TokenType = "INT"
	TokenChar     TokenType = "CHAR"
	TokenVoid     TokenType = "VOID"
	TokenIf       TokenType = "IF"
	TokenElse     TokenType = "ELSE"
	TokenWhile    TokenType = "WHILE"
	TokenFor      TokenType = "FOR"
	TokenReturn   TokenType = "RETURN"
	TokenBreak    TokenType = "BREAK"
	TokenContinue TokenType = "CONTINUE"

	// Literals
	TokenIdent     TokenType = "IDENT"
	TokenNumber    TokenType = "NUMBER"
	TokenCharLit   TokenType = "CHAR_LIT"
	TokenStringLit TokenType = "STRING_LIT"

	// Symbols
	TokenLParen    TokenType = "("
	TokenRParen    TokenType = ")"
	TokenLBrace    TokenType = "{"
	TokenRBrace    TokenType = "}"
	TokenLBracket  TokenType = "["
	TokenRBracket  TokenType = "]"
	TokenComma     TokenType = ","
	TokenSemicolon TokenType = ";"

	TokenPlus    TokenType = "+"
	TokenMinus   TokenType = "-"
	TokenStar    TokenType = "*"
	TokenSlash   TokenType = "/"
	TokenPercent TokenType = "%"

	TokenAssign        TokenType = "="
	TokenPlusAssign    TokenType = "+="
	TokenMinusAssign   TokenType = "-="
	TokenStarAssign    TokenType = "*="
	TokenSlashAssign   TokenType = "/="
	TokenPercentAssign TokenType = "%="

	TokenPlusPlus   TokenType = "++"
	TokenMinusMinus TokenType = "--"

	TokenEqual    TokenType = "=="
	TokenNotEqual TokenType = "!="
	TokenLT       TokenType = "<"
	TokenGT       TokenType = ">"
	TokenLE       TokenType = "<="
	TokenGE       TokenType = ">="

	TokenAnd TokenType = "&&"
	TokenOr  TokenType = "||"
	TokenNot TokenType = "!"

	TokenEOF TokenType = "EOF"
)

type Token struct {
	Type   TokenType
	Lexeme string
	Value  int32 // numeric payload for NUMBER and CHAR_LIT
	Line   int
}

func (t Token) String() string {
	return fmt.Sprintf("[%s] '%s'", t.Type, t.Lexeme)
}

var keywords = map[string]TokenType{
	"int":      TokenInt,
	"char":     TokenChar,
	"void":     TokenVoid,
	"if":       TokenIf,
	"else":     TokenElse,
	"while":    TokenWhile,
	"for":      TokenFor,
	"return":   TokenReturn,
	"break":    TokenBreak,
	"continue": TokenContinue,
}

// Type qualifiers and storage classes are accepted and ignored.
var ignoredQualifiers = map[string]bool{
	"const":    true,
	"unsigned": true,
	"signed":   true,
	"static":   true,
}
