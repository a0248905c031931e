package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/imxcstar/mini-os/eval"
	"github.com/imxcstar/mini-os/heap"
	"github.com/imxcstar/mini-os/kernel"
)

func sysMalloc(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	size, err := argInt(args, 0)
	if err != nil {
		return fail(), err
	}

	if size <= 0 {
		return eval.NullPointer(), nil
	}

	h := taskHeap(t)

	addr, aerr := h.Allocate(size)
	if aerr != nil {
		if errors.Cause(aerr) == heap.ErrExhausted {
			return eval.NullPointer(), nil
		}
		return fail(), aerr
	}

	l.Trace("malloc", "pid", t.Pid, "size", size, "addr", addr)

	return eval.PointerValue(h, addr), nil
}

func sysFree(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	ptr := arg(args, 0)
	if ptr.Kind != eval.KindPointer {
		return fail(), errf("free: argument is not a pointer")
	}

	// free(NULL) is a no-op, as in C.
	if ptr.IsNull() {
		return intVal(0), nil
	}

	if ferr := ptr.Heap.Free(ptr.Addr); ferr != nil {
		return fail(), ferr
	}

	return intVal(0), nil
}

func sysMemset(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	ptr, err := argPointer(args, 0)
	if err != nil {
		return fail(), err
	}

	value, err := argInt(args, 1)
	if err != nil {
		return fail(), err
	}

	count, err := argInt(args, 2)
	if err != nil {
		return fail(), err
	}

	if serr := ptr.Heap.SetBytes(ptr.Addr, byte(value), count); serr != nil {
		return fail(), serr
	}

	return args[0], nil
}

func sysMemcpy(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	dst, err := argPointer(args, 0)
	if err != nil {
		return fail(), err
	}

	count, err := argInt(args, 2)
	if err != nil {
		return fail(), err
	}

	switch src := arg(args, 1); src.Kind {
	case eval.KindPointer:
		if src.Heap == dst.Heap {
			if cerr := dst.Heap.Copy(dst.Addr, src.Addr, count); cerr != nil {
				return fail(), cerr
			}
			return args[0], nil
		}

		b, rerr := src.Heap.ReadBytes(src.Addr, count)
		if rerr != nil {
			return fail(), rerr
		}
		if werr := dst.Heap.WriteBytes(dst.Addr, b); werr != nil {
			return fail(), werr
		}
	case eval.KindString:
		b := []byte(src.Str)
		if count >= 0 && int(count) < len(b) {
			b = b[:count]
		}
		if werr := dst.Heap.WriteBytes(dst.Addr, b); werr != nil {
			return fail(), werr
		}
	default:
		return fail(), errf("memcpy: source is not a pointer")
	}

	return args[0], nil
}

func sysLoad32(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	ptr, err := argPointer(args, 0)
	if err != nil {
		return fail(), err
	}

	offset, err := argInt(args, 1)
	if err != nil {
		return fail(), err
	}

	v, rerr := ptr.Heap.ReadInt32(ptr.Addr + offset)
	if rerr != nil {
		return fail(), rerr
	}

	return intVal(v), nil
}

func sysStore32(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	ptr, err := argPointer(args, 0)
	if err != nil {
		return fail(), err
	}

	offset, err := argInt(args, 1)
	if err != nil {
		return fail(), err
	}

	value, err := argInt(args, 2)
	if err != nil {
		return fail(), err
	}

	if werr := ptr.Heap.WriteInt32(ptr.Addr+offset, value); werr != nil {
		return fail(), werr
	}

	return args[0], nil
}

func init() {
	register("malloc", sysMalloc)
	register("free", sysFree)
	register("memset", sysMemset)
	register("memcpy", sysMemcpy)
	register("load32", sysLoad32)
	register("store32", sysStore32)
}
