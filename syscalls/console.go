package syscalls

import (
	"context"
	"io"
	"strconv"
	"strings"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/imxcstar/mini-os/eval"
	"github.com/imxcstar/mini-os/kernel"
)

// waitInput blocks until the calling process owns the terminal. Host-context
// calls (pid 0) and processes never attached for input proceed immediately;
// their stdin is private to them.
func waitInput(ctx context.Context, d *Dispatcher, t *kernel.Task) error {
	if t.Pid == 0 {
		return nil
	}

	err := d.Kernel.Input.WaitForForeground(ctx, t.Pid)
	if err != nil {
		if errors.Cause(err) == kernel.ErrNotAttached {
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return eval.ErrCancelled
		}
		return err
	}

	return nil
}

func readByte(t *kernel.Task) (byte, bool) {
	h, ok := t.GetFile(0)
	if !ok {
		return 0, false
	}

	var b [1]byte
	n, err := h.Read(b[:])
	if err != nil || n == 0 {
		return 0, false
	}

	return b[0], true
}

func readLine(t *kernel.Task) string {
	var sb strings.Builder

	for {
		b, ok := readByte(t)
		if !ok || b == '\n' {
			break
		}
		sb.WriteByte(b)
	}

	return strings.TrimSuffix(sb.String(), "\r")
}

func sysPuts(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	text, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	io.WriteString(t.Stdout(), text+"\n")
	return intVal(0), nil
}

func sysPutchar(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	ch, err := argInt(args, 0)
	if err != nil {
		return fail(), err
	}

	t.Stdout().Write([]byte{byte(ch)})
	return intVal(ch), nil
}

func sysGetchar(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	if err := waitInput(ctx, d, t); err != nil {
		return fail(), err
	}

	b, ok := readByte(t)
	if !ok {
		return fail(), nil
	}

	return intVal(int32(b)), nil
}

func sysPrintf(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	format, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	var out strings.Builder
	next := 1

	for i := 0; i < len(format); i++ {
		c := format[i]

		if c != '%' || i+1 >= len(format) {
			out.WriteByte(c)
			continue
		}

		i++
		switch format[i] {
		case 'd':
			n, err := argInt(args, next)
			if err != nil {
				return fail(), err
			}
			next++
			out.WriteString(strconv.FormatInt(int64(n), 10))

		case 'x':
			n, err := argInt(args, next)
			if err != nil {
				return fail(), err
			}
			next++
			out.WriteString(strconv.FormatUint(uint64(uint32(n)), 16))

		case 'c':
			n, err := argInt(args, next)
			if err != nil {
				return fail(), err
			}
			next++
			out.WriteByte(byte(n))

		case 's':
			s, err := argText(t, args, next)
			if err != nil {
				return fail(), err
			}
			next++
			out.WriteString(s)

		case '%':
			out.WriteByte('%')

		default:
			out.WriteByte('%')
			out.WriteByte(format[i])
		}
	}

	n, _ := io.WriteString(t.Stdout(), out.String())
	return intVal(int32(n)), nil
}

func sysReadln(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	if err := waitInput(ctx, d, t); err != nil {
		return fail(), err
	}

	return eval.StringValue(readLine(t)), nil
}

func sysInput(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	prompt, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	if err := waitInput(ctx, d, t); err != nil {
		return fail(), err
	}

	io.WriteString(t.Stdout(), prompt)
	return eval.StringValue(readLine(t)), nil
}

func sysReadkey(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	if err := waitInput(ctx, d, t); err != nil {
		return fail(), err
	}

	key, err := d.Kernel.Console.ReadKey(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fail(), eval.ErrCancelled
		}
		return fail(), nil
	}

	return intVal(int32(key)), nil
}

func sysKeycode(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	name, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	return intVal(int32(kernel.Keycode(name))), nil
}

func sysConsoleClear(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	d.Kernel.Console.Clear()
	return eval.VoidValue(), nil
}

func sysConsoleSetCursor(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	col, err := argInt(args, 0)
	if err != nil {
		return fail(), err
	}

	row, err := argInt(args, 1)
	if err != nil {
		return fail(), err
	}

	d.Kernel.Console.SetCursor(int(col), int(row))
	return eval.VoidValue(), nil
}

func sysConsoleCursorCol(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	return intVal(int32(d.Kernel.Console.CursorCol())), nil
}

func sysConsoleCursorRow(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	return intVal(int32(d.Kernel.Console.CursorRow())), nil
}

func sysConsoleWidth(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	return intVal(int32(d.Kernel.Console.Width())), nil
}

func sysConsoleHeight(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	return intVal(int32(d.Kernel.Console.Height())), nil
}

func sysConsoleShowCursor(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	visible, err := argInt(args, 0)
	if err != nil {
		return fail(), err
	}

	d.Kernel.Console.ShowCursor(visible != 0)
	return eval.VoidValue(), nil
}

func init() {
	register("puts", sysPuts)
	register("putchar", sysPutchar)
	register("getchar", sysGetchar)
	register("printf", sysPrintf)
	register("readln", sysReadln)
	register("input", sysInput)
	register("readkey", sysReadkey)
	register("keycode", sysKeycode)

	register("console_clear", sysConsoleClear)
	register("console_set_cursor", sysConsoleSetCursor)
	register("console_cursor_col", sysConsoleCursorCol)
	register("console_cursor_row", sysConsoleCursorRow)
	register("console_width", sysConsoleWidth)
	register("console_height", sysConsoleHeight)
	register("console_show_cursor", sysConsoleShowCursor)
}
