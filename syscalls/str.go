package syscalls

import (
	"context"
	"strings"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/imxcstar/mini-os/eval"
	"github.com/imxcstar/mini-os/kernel"
)

func sysStrlen(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	s, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	return intVal(int32(len(s))), nil
}

func sysStrchar(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	s, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	index, err := argInt(args, 1)
	if err != nil {
		return fail(), err
	}

	if index < 0 || int(index) >= len(s) {
		return fail(), nil
	}

	return intVal(int32(s[int(index)])), nil
}

// sysSubstr clamps both ends instead of failing, so callers can over-ask.
func sysSubstr(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	s, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	start, err := argInt(args, 1)
	if err != nil {
		return fail(), err
	}

	length, err := argInt(args, 2)
	if err != nil {
		return fail(), err
	}

	if start < 0 {
		start = 0
	}
	if int(start) >= len(s) || length <= 0 {
		return eval.StringValue(""), nil
	}

	end := int(start) + int(length)
	if end > len(s) {
		end = len(s)
	}

	return eval.StringValue(s[int(start):end]), nil
}

func sysStrcat(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	a, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	b, err := argText(t, args, 1)
	if err != nil {
		return fail(), err
	}

	return eval.StringValue(a + b), nil
}

func sysStartswith(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	value, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	prefix, err := argText(t, args, 1)
	if err != nil {
		return fail(), err
	}

	if strings.HasPrefix(value, prefix) {
		return intVal(1), nil
	}

	return intVal(0), nil
}

func init() {
	register("strlen", sysStrlen)
	register("strchar", sysStrchar)
	register("substr", sysSubstr)
	register("strcat", sysStrcat)
	register("startswith", sysStartswith)
}
