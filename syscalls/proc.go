package syscalls

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/imxcstar/mini-os/eval"
	"github.com/imxcstar/mini-os/kernel"
	"github.com/imxcstar/mini-os/minic"
)

// Launch compiles argv[0] out of the VFS and starts it as a child of parent,
// inheriting parent's stdio and working directory. The shell uses it for
// foreground commands; the spawn builtin for background children.
func (d *Dispatcher) Launch(parent *kernel.Task, argv []string, attach kernel.AttachMode) (*kernel.Process, error) {
	if d.Loader == nil {
		panic("syscalls: dispatcher has no loader, spawn is unavailable")
	}
	if len(argv) == 0 {
		return nil, errf("launch: empty argv")
	}

	prog, err := d.Loader.LoadPath(parent.Cwd(), argv[0])
	if err != nil {
		return nil, err
	}

	return d.LaunchProgram(parent, prog, argv, attach)
}

// LaunchProgram starts an already-compiled program.
func (d *Dispatcher) LaunchProgram(parent *kernel.Task, prog *minic.Program, argv []string, attach kernel.AttachMode) (*kernel.Process, error) {
	entry := func(ctx context.Context, child *kernel.Task) int {
		code, rerr := eval.New(prog, child, d).Run(ctx)
		if rerr != nil {
			if errors.Is(rerr, eval.ErrCancelled) {
				return kernel.ExitCancelled
			}
			fmt.Fprintf(child.Stderr(), "%s: %s\n", child.Name, rerr)
			return 1
		}
		return int(code)
	}

	return d.Kernel.Spawn(path.Base(argv[0]), entry, kernel.SpawnOptions{
		Args:   argv,
		Cwd:    parent.Cwd(),
		Attach: attach,
		Stdin:  childStdin(parent),
		Stdout: parent.Stdout(),
		Stderr: parent.Stderr(),
	})
}

// sysSpawn launches the target as a background process. Arguments past the
// path become the child's argv tail.
func sysSpawn(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	target, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	argv := []string{target}
	for i := 1; i < len(args); i++ {
		s, terr := argText(t, args, i)
		if terr != nil {
			return fail(), terr
		}
		argv = append(argv, s)
	}

	p, serr := d.Launch(t, argv, kernel.AttachBackground)
	if serr != nil {
		var ce *minic.CompileError
		if errors.As(serr, &ce) {
			fmt.Fprintf(t.Stderr(), "%s\n", ce.Error())
		} else {
			fmt.Fprintf(t.Stderr(), "spawn: %s: %s\n", target, errors.Cause(serr))
		}
		return fail(), nil
	}

	l.Trace("spawn", "parent", t.Pid, "child", p.Pid, "path", target)

	return intVal(int32(p.Pid)), nil
}

// childStdin hands the parent's descriptor 0 to the child. Reads still go
// through the input router, so a background child blocks until promoted.
func childStdin(t *kernel.Task) io.Reader {
	h, ok := t.GetFile(0)
	if !ok {
		return nil
	}
	return h
}

func sysWait(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	pid, err := argInt(args, 0)
	if err != nil {
		return fail(), err
	}

	p, ok := d.Kernel.Processes.Get(int(pid))
	if !ok {
		return fail(), nil
	}

	code, werr := p.Wait(ctx)
	if werr != nil {
		return fail(), eval.ErrCancelled
	}

	return intVal(int32(code)), nil
}

func sysProcCount(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	return intVal(int32(len(d.Kernel.Processes.Snapshot()))), nil
}

func procAt(d *Dispatcher, args []eval.Value) (*kernel.Process, error) {
	index, err := argInt(args, 0)
	if err != nil {
		return nil, err
	}

	procs := d.Kernel.Processes.Snapshot()
	if index < 0 || int(index) >= len(procs) {
		return nil, nil
	}

	return procs[int(index)], nil
}

func sysProcPid(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	p, err := procAt(d, args)
	if err != nil {
		return fail(), err
	}
	if p == nil {
		return fail(), nil
	}

	return intVal(int32(p.Pid)), nil
}

func sysProcName(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	p, err := procAt(d, args)
	if err != nil {
		return fail(), err
	}
	if p == nil {
		return eval.StringValue(""), nil
	}

	return eval.StringValue(p.Name), nil
}

func sysProcState(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	p, err := procAt(d, args)
	if err != nil {
		return fail(), err
	}
	if p == nil {
		return eval.StringValue(""), nil
	}

	return eval.StringValue(p.State().String()), nil
}

func sysProcMem(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	p, err := procAt(d, args)
	if err != nil {
		return fail(), err
	}
	if p == nil {
		return fail(), nil
	}

	return intVal(p.Heap().InUse()), nil
}

func sysProcKill(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	pid, err := argInt(args, 0)
	if err != nil {
		return fail(), err
	}

	if kerr := d.Kernel.Kill(int(pid)); kerr != nil {
		return fail(), nil
	}

	return intVal(0), nil
}

func sysArgc(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	return intVal(int32(len(t.Args()))), nil
}

func sysArgv(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	index, err := argInt(args, 0)
	if err != nil {
		return fail(), err
	}

	argv := t.Args()
	if index < 0 || int(index) >= len(argv) {
		return eval.StringValue(""), nil
	}

	return eval.StringValue(argv[int(index)]), nil
}

func sysSleepMs(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	ms, err := argInt(args, 0)
	if err != nil {
		return fail(), err
	}

	if ms <= 0 {
		return intVal(0), nil
	}

	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C:
		return intVal(0), nil
	case <-ctx.Done():
		return fail(), eval.ErrCancelled
	}
}

func sysClockMs(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	return intVal(int32(time.Since(t.StartedAt()).Milliseconds())), nil
}

func init() {
	register("spawn", sysSpawn)
	register("wait", sysWait)

	register("proc_count", sysProcCount)
	register("proc_pid", sysProcPid)
	register("proc_name", sysProcName)
	register("proc_state", sysProcState)
	register("proc_mem", sysProcMem)
	register("proc_kill", sysProcKill)

	register("argc", sysArgc)
	register("argv", sysArgv)

	register("sleep_ms", sysSleepMs)
	register("clock_ms", sysClockMs)
}
