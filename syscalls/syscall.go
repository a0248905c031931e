// Package syscalls implements the builtin surface MiniC programs call. Each
// concern registers its builtins from an init function into a single table;
// the Dispatcher resolves the current process to pick the right working
// directory, fd table and io pipes.
package syscalls

import (
	"context"
	"fmt"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/imxcstar/mini-os/eval"
	"github.com/imxcstar/mini-os/heap"
	"github.com/imxcstar/mini-os/kernel"
	"github.com/imxcstar/mini-os/loader"
	"github.com/imxcstar/mini-os/log"
)

type builtinFunc func(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error)

var builtins = map[string]builtinFunc{}

func register(name string, f builtinFunc) {
	builtins[name] = f
}

// Dispatcher binds the builtin table to one kernel session. Host is the
// fallback task used when a builtin runs with no process bound (the shell
// context).
type Dispatcher struct {
	Kernel *kernel.Kernel
	Loader *loader.Loader
	Host   *kernel.Task
}

// Lookup implements eval.Syscalls.
func (d *Dispatcher) Lookup(name string) (eval.Builtin, bool) {
	f, ok := builtins[name]
	if !ok {
		return nil, false
	}

	return func(ctx context.Context, task *kernel.Task, args []eval.Value) (eval.Value, error) {
		if task == nil {
			task = d.Host
		}
		if task == nil {
			task = d.Kernel.HostTask(nil, nil, nil)
			d.Host = task
		}

		return f(ctx, log.L, d, task, args)
	}, true
}

// ---- argument plumbing ----
//
// Builtins ignore declared argument counts; missing arguments read as void.

func arg(args []eval.Value, i int) eval.Value {
	if i >= len(args) {
		return eval.VoidValue()
	}
	return args[i]
}

func argInt(args []eval.Value, i int) (int32, error) {
	return arg(args, i).AsInt()
}

// argText extracts string content: String values directly, char* heap
// pointers as NUL-terminated bytes.
func argText(t *kernel.Task, args []eval.Value, i int) (string, error) {
	v := arg(args, i)

	switch v.Kind {
	case eval.KindString:
		return v.Str, nil
	case eval.KindPointer:
		if v.IsNull() {
			return "", nil
		}
		return v.Heap.ReadString(v.Addr)
	case eval.KindVoid:
		return "", nil
	}

	return "", errf("argument %d is not text", i)
}

func argPointer(args []eval.Value, i int) (eval.Value, error) {
	v := arg(args, i)
	if v.Kind != eval.KindPointer {
		return eval.Value{}, errf("argument %d is not a pointer", i)
	}
	if v.IsNull() {
		return eval.Value{}, errf("argument %d is a null pointer", i)
	}
	return v, nil
}

func taskHeap(t *kernel.Task) *heap.Heap {
	return t.Heap()
}

func intVal(n int32) eval.Value {
	return eval.IntValue(n)
}

func fail() eval.Value {
	return eval.IntValue(-1)
}

func errf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
