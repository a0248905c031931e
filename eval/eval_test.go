package eval

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"

	"github.com/imxcstar/mini-os/kernel"
	"github.com/imxcstar/mini-os/minic"
)

// stubSys is the minimal builtin surface the language tests need: an output
// sink plus raw heap access.
type stubSys struct {
	out bytes.Buffer
}

func (s *stubSys) Lookup(name string) (Builtin, bool) {
	switch name {
	case "puts":
		return func(ctx context.Context, task *kernel.Task, args []Value) (Value, error) {
			s.out.WriteString(args[0].Str)
			s.out.WriteByte('\n')
			return IntValue(0), nil
		}, true

	case "putnum":
		return func(ctx context.Context, task *kernel.Task, args []Value) (Value, error) {
			n, err := args[0].AsInt()
			if err != nil {
				return Value{}, err
			}
			s.out.WriteString(itoa(n))
			return IntValue(0), nil
		}, true

	case "malloc":
		return func(ctx context.Context, task *kernel.Task, args []Value) (Value, error) {
			size, err := args[0].AsInt()
			if err != nil {
				return Value{}, err
			}
			addr, err := task.Heap().Allocate(size)
			if err != nil {
				return Value{}, err
			}
			return PointerValue(task.Heap(), addr), nil
		}, true
	}

	return nil, false
}

func itoa(n int32) string {
	if n == 0 {
		return "0"
	}

	neg := n < 0
	if neg {
		n = -n
	}

	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}

	if neg {
		return "-" + string(buf)
	}
	return string(buf)
}

func run(t *testing.T, src string) (int32, string, error) {
	t.Helper()

	prog, err := minic.Compile("t.c", src, minic.Options{})
	require.NoError(t, err)

	k, err := kernel.NewKernel(nil, nil)
	require.NoError(t, err)

	task := k.HostTask(nil, nil, nil)
	sys := &stubSys{}

	code, rerr := New(prog, task, sys).Run(context.Background())
	return code, sys.out.String(), rerr
}

func TestRun(t *testing.T) {
	n := neko.Modern(t)

	n.It("returns main's value as the exit code", func(t *testing.T) {
		code, _, err := run(t, `int main(void) { return 41 + 1; }`)
		require.NoError(t, err)
		require.Equal(t, int32(42), code)
	})

	n.It("treats void main as exit 0", func(t *testing.T) {
		code, _, err := run(t, `void main(void) { return; }`)
		require.NoError(t, err)
		require.Equal(t, int32(0), code)
	})

	n.It("writes through builtins", func(t *testing.T) {
		code, out, err := run(t, `int main(void) { puts("hi"); return 0; }`)
		require.NoError(t, err)
		require.Equal(t, int32(0), code)
		require.Equal(t, "hi\n", out)
	})

	n.It("calls user functions with coerced arguments", func(t *testing.T) {
		code, _, err := run(t, `
int add(int a, int b) { return a + b; }
int main(void) { return add(40, 2); }
`)
		require.NoError(t, err)
		require.Equal(t, int32(42), code)
	})

	n.It("initializes globals from literals", func(t *testing.T) {
		code, _, err := run(t, `
int base = 40;
int main(void) { return base + 2; }
`)
		require.NoError(t, err)
		require.Equal(t, int32(42), code)
	})

	n.Meow()
}

func TestControlFlow(t *testing.T) {
	n := neko.Modern(t)

	n.It("branches on truthiness", func(t *testing.T) {
		code, _, err := run(t, `
int main(void) {
    int x = 5;
    if (x > 3) { return 1; } else { return 2; }
}
`)
		require.NoError(t, err)
		require.Equal(t, int32(1), code)
	})

	n.It("loops with while, break and continue", func(t *testing.T) {
		code, _, err := run(t, `
int main(void) {
    int sum = 0;
    int i = 0;
    while (1) {
        i = i + 1;
        if (i > 10) { break; }
        if (i % 2 == 0) { continue; }
        sum = sum + i;
    }
    return sum;
}
`)
		require.NoError(t, err)
		require.Equal(t, int32(25), code)
	})

	n.It("runs for loops with init, cond and post", func(t *testing.T) {
		code, _, err := run(t, `
int main(void) {
    int sum = 0;
    for (int i = 1; i <= 4; i++) {
        sum += i;
    }
    return sum;
}
`)
		require.NoError(t, err)
		require.Equal(t, int32(10), code)
	})

	n.It("returns out of nested loops", func(t *testing.T) {
		code, _, err := run(t, `
int main(void) {
    for (int i = 0; i < 10; i++) {
        while (1) {
            return 9;
        }
    }
    return 0;
}
`)
		require.NoError(t, err)
		require.Equal(t, int32(9), code)
	})

	n.It("short-circuits logical operators", func(t *testing.T) {
		code, out, err := run(t, `
int touched(void) { puts("touched"); return 1; }
int main(void) {
    int a = 0 && touched();
    int b = 1 || touched();
    return a + b;
}
`)
		require.NoError(t, err)
		require.Equal(t, int32(1), code)
		require.Equal(t, "", out)
	})

	n.Meow()
}

func TestArithmetic(t *testing.T) {
	n := neko.Modern(t)

	n.It("yields 0 for division and modulo by zero", func(t *testing.T) {
		code, _, err := run(t, `
int main(void) {
    int z = 0;
    return 7 / z + 7 % z;
}
`)
		require.NoError(t, err)
		require.Equal(t, int32(0), code)
	})

	n.It("evaluates compound assignment and inc/dec", func(t *testing.T) {
		code, _, err := run(t, `
int main(void) {
    int x = 10;
    x += 5;
    x *= 2;
    x--;
    ++x;
    return x;
}
`)
		require.NoError(t, err)
		require.Equal(t, int32(30), code)
	})

	n.It("compares to 0 or 1", func(t *testing.T) {
		code, _, err := run(t, `int main(void) { return (3 < 5) + (5 <= 5) + (7 == 8); }`)
		require.NoError(t, err)
		require.Equal(t, int32(2), code)
	})

	n.Meow()
}

func TestMemory(t *testing.T) {
	n := neko.Modern(t)

	n.It("reads and writes heap bytes through pointers", func(t *testing.T) {
		code, _, err := run(t, `
int main(void) {
    char* p = malloc(4);
    *p = 65;
    p[1] = 66;
    return *p + p[1];
}
`)
		require.NoError(t, err)
		require.Equal(t, int32(131), code)
	})

	n.It("starts pointer array slots as null", func(t *testing.T) {
		code, _, err := run(t, `
char* lines[4];

int main(void) {
    if (lines[0]) { return 1; }
    if (lines[0] != 0) { return 2; }
    return 0;
}
`)
		require.NoError(t, err)
		require.Equal(t, int32(0), code)
	})

	n.It("scales pointer arithmetic in bytes", func(t *testing.T) {
		code, _, err := run(t, `
int main(void) {
    char* p = malloc(8);
    char* q = p + 3;
    *q = 7;
    return p[3] + (q - p);
}
`)
		require.NoError(t, err)
		require.Equal(t, int32(10), code)
	})

	n.It("indexes local arrays with bounds checks", func(t *testing.T) {
		code, _, err := run(t, `
int main(void) {
    int v[3];
    v[0] = 1;
    v[1] = 2;
    v[2] = 3;
    return v[0] + v[1] + v[2];
}
`)
		require.NoError(t, err)
		require.Equal(t, int32(6), code)

		_, _, err = run(t, `
int main(void) {
    int v[3];
    return v[3];
}
`)
		require.Error(t, err)

		var rte *RuntimeError
		require.ErrorAs(t, err, &rte)
	})

	n.It("indexes string bytes", func(t *testing.T) {
		code, _, err := run(t, `
int main(void) {
    char* s = "AB";
    return s[0] + s[1];
}
`)
		require.NoError(t, err)
		require.Equal(t, int32('A'+'B'), code)
	})

	n.It("treats 0 as the null pointer and rejects writes through it", func(t *testing.T) {
		_, _, err := run(t, `
int main(void) {
    char* p = 0;
    *p = 1;
    return 0;
}
`)
		require.Error(t, err)
	})

	n.Meow()
}

func TestErrors(t *testing.T) {
	n := neko.Modern(t)

	n.It("reports unknown identifiers with the line", func(t *testing.T) {
		_, _, err := run(t, "int main(void) {\n    return nope;\n}")
		require.Error(t, err)

		var rte *RuntimeError
		require.ErrorAs(t, err, &rte)
		require.Equal(t, 2, rte.Line)
	})

	n.It("reports unknown functions", func(t *testing.T) {
		_, _, err := run(t, `int main(void) { return mystery(); }`)
		require.Error(t, err)
		require.Contains(t, err.Error(), "mystery")
	})

	n.It("rejects calling a prototype that was never defined", func(t *testing.T) {
		_, _, err := run(t, `
int ghost(int x);
int main(void) { return ghost(1); }
`)
		require.Error(t, err)
		require.Contains(t, err.Error(), "declared but not defined")
	})

	n.It("checks user-call arity", func(t *testing.T) {
		_, _, err := run(t, `
int add(int a, int b) { return a + b; }
int main(void) { return add(1); }
`)
		require.Error(t, err)
	})

	n.It("rejects duplicate locals in one scope", func(t *testing.T) {
		_, _, err := run(t, `
int main(void) {
    int x = 1;
    int x = 2;
    return x;
}
`)
		require.Error(t, err)
	})

	n.Meow()
}

func TestCancellation(t *testing.T) {
	n := neko.Modern(t)

	n.It("unwinds a loop when the context is cancelled", func(t *testing.T) {
		prog, err := minic.Compile("t.c", `
int main(void) {
    while (1) { }
    return 0;
}
`, minic.Options{})
		require.NoError(t, err)

		k, err := kernel.NewKernel(nil, nil)
		require.NoError(t, err)

		task := k.HostTask(nil, nil, nil)

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			_, rerr := New(prog, task, &stubSys{}).Run(ctx)
			done <- rerr
		}()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case rerr := <-done:
			require.ErrorIs(t, rerr, ErrCancelled)
		case <-time.After(2 * time.Second):
			t.Fatal("evaluator did not observe cancellation")
		}
	})

	n.Meow()
}
