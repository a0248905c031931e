package minic

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestScanner(t *testing.T) {
	n := neko.Modern(t)

	n.It("scans keywords, identifiers and literals", func(t *testing.T) {
		src := `int main(void) { return 0x2a; }`

		tokens, err := NewScanner("main.c", src).ScanTokens()
		require.NoError(t, err)

		var types []TokenType
		for _, tok := range tokens {
			types = append(types, tok.Type)
		}

		require.Equal(t, []TokenType{
			TokenInt, TokenIdent, TokenLParen, TokenVoid, TokenRParen,
			TokenLBrace, TokenReturn, TokenNumber, TokenSemicolon,
			TokenRBrace, TokenEOF,
		}, types)
	})

	n.It("decodes escapes in char and string literals", func(t *testing.T) {
		tokens, err := NewScanner("t.c", `char c = '\n'; char* s = "a\tb\x41";`).ScanTokens()
		require.NoError(t, err)

		var ch *Token
		var str *Token
		for i := range tokens {
			switch tokens[i].Type {
			case TokenCharLit:
				ch = &tokens[i]
			case TokenStringLit:
				str = &tokens[i]
			}
		}

		require.NotNil(t, ch)
		require.Equal(t, int32('\n'), ch.Value)

		require.NotNil(t, str)
		require.Equal(t, "a\tbA", str.Lexeme)
	})

	n.It("skips line and block comments", func(t *testing.T) {
		src := "// leading\nint x; /* mid\nline */ int y;"

		tokens, err := NewScanner("t.c", src).ScanTokens()
		require.NoError(t, err)

		var idents []string
		for _, tok := range tokens {
			if tok.Type == TokenIdent {
				idents = append(idents, tok.Lexeme)
			}
		}

		require.Equal(t, []string{"x", "y"}, idents)
	})

	n.It("tracks line numbers for errors", func(t *testing.T) {
		_, err := NewScanner("bad.c", "int x;\nint y = @;").ScanTokens()
		require.Error(t, err)

		ce, ok := err.(*CompileError)
		require.True(t, ok)
		require.Equal(t, 2, ce.Line)
		require.Equal(t, "bad.c", ce.File)
	})

	n.Meow()
}

func mustParse(t *testing.T, src string) *Program {
	t.Helper()

	prog, err := Compile("t.c", src, Options{})
	require.NoError(t, err)
	return prog
}

func TestParser(t *testing.T) {
	n := neko.Modern(t)

	n.It("parses functions, params and bodies", func(t *testing.T) {
		prog := mustParse(t, `
int add(int a, int b) { return a + b; }
int main(void) { return add(1, 2); }
`)

		fn := prog.Functions["add"]
		require.NotNil(t, fn)
		require.True(t, fn.HasBody)
		require.Len(t, fn.Params, 2)
		require.Equal(t, TypeInt, fn.Return.Kind)
	})

	n.It("parses pointer types and globals", func(t *testing.T) {
		prog := mustParse(t, `
char* message = "hi";
int counter = 3;
int main(void) { return 0; }
`)

		require.Len(t, prog.Globals, 2)
		require.Equal(t, "message", prog.Globals[0].Name)
		require.True(t, prog.Globals[0].Type.IsPointer())
		require.Equal(t, TypeChar, prog.Globals[0].Type.Elem.Kind)
	})

	n.It("parses array declarations", func(t *testing.T) {
		prog := mustParse(t, `
int main(void) {
    int values[4];
    values[0] = 1;
    return values[0];
}
`)
		require.NotNil(t, prog.Functions["main"])
	})

	n.It("honors operator precedence", func(t *testing.T) {
		prog := mustParse(t, `int main(void) { return 1 + 2 * 3 == 7; }`)

		ret := prog.Functions["main"].Body[0].(*Return)
		bin := ret.Value.(*Binary)
		require.Equal(t, "==", bin.Op)
	})

	n.It("requires a main with a body", func(t *testing.T) {
		_, err := Compile("t.c", `int helper(void) { return 1; }`, Options{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "main")
	})

	n.It("keeps prototypes but rejects duplicate definitions", func(t *testing.T) {
		prog := mustParse(t, `
int helper(int x);
int helper(int x) { return x; }
int main(void) { return helper(1); }
`)
		require.True(t, prog.Functions["helper"].HasBody)

		_, err := Compile("t.c", `
int main(void) { return 0; }
int main(void) { return 1; }
`, Options{})
		require.Error(t, err)
	})

	n.It("rejects stray tokens with file and line", func(t *testing.T) {
		_, err := Compile("broken.c", "int main(void) {\n    return 0;\n", Options{})
		require.Error(t, err)

		ce, ok := err.(*CompileError)
		require.True(t, ok)
		require.Equal(t, "broken.c", ce.File)
	})

	n.Meow()
}

// mapResolver serves includes from a map keyed by full path.
type mapResolver map[string]string

func (m mapResolver) Resolve(name string, quoted bool, fromDir string) (string, string, error) {
	if src, ok := m["/include/"+name]; ok {
		return "/include/" + name, src, nil
	}
	return "", "", &CompileError{Message: "no such include: " + name}
}

func TestPreprocess(t *testing.T) {
	n := neko.Modern(t)

	n.It("splices include contents in place", func(t *testing.T) {
		res := mapResolver{
			"/include/lib.h": "int twice(int x) { return x * 2; }",
		}

		prog, err := Compile("main.c", `
#include <lib.h>
int main(void) { return twice(21); }
`, Options{Resolver: res})
		require.NoError(t, err)
		require.NotNil(t, prog.Functions["twice"])
	})

	n.It("reports include cycles with the full chain", func(t *testing.T) {
		res := mapResolver{
			"/include/a.h": "#include <b.h>",
			"/include/b.h": "#include <a.h>",
		}

		_, err := Compile("main.c", "#include <a.h>\nint main(void) { return 0; }", Options{Resolver: res})
		require.Error(t, err)
		require.Contains(t, err.Error(), "include cycle")
		require.Contains(t, err.Error(), "/include/a.h -> /include/b.h -> /include/a.h")
	})

	n.It("blanks unknown directives without losing line numbers", func(t *testing.T) {
		_, err := Compile("main.c", "#pragma once\nint main(void) { return @; }", Options{})
		require.Error(t, err)

		ce, ok := err.(*CompileError)
		require.True(t, ok)
		require.Equal(t, 2, ce.Line)
	})

	n.It("fails cleanly when no resolver is configured", func(t *testing.T) {
		_, err := Compile("main.c", "#include <lib.h>\nint main(void) { return 0; }", Options{})
		require.Error(t, err)
	})

	n.Meow()
}
