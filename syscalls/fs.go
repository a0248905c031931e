package syscalls

import (
	"context"
	"io"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/imxcstar/mini-os/eval"
	"github.com/imxcstar/mini-os/kernel"
)

func sysOpen(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	path, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	flags, err := argInt(args, 1)
	if err != nil {
		return fail(), err
	}

	l.Trace("open file", "pid", t.Pid, "path", path, "flags", flags)

	fd, err := t.OpenFile(path, int(flags))
	if err != nil {
		l.Trace("open failed", "path", path, "error", err)
		return fail(), nil
	}

	return intVal(int32(fd)), nil
}

func sysClose(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	fd, err := argInt(args, 0)
	if err != nil {
		return fail(), err
	}

	if err := t.CloseFile(int(fd)); err != nil {
		return fail(), nil
	}

	return intVal(0), nil
}

func sysRead(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	fd, err := argInt(args, 0)
	if err != nil {
		return fail(), err
	}

	buf, err := argPointer(args, 1)
	if err != nil {
		return fail(), err
	}

	count, err := argInt(args, 2)
	if err != nil {
		return fail(), err
	}

	h, ok := t.GetFile(int(fd))
	if !ok || count < 0 {
		return fail(), nil
	}

	tmp := make([]byte, count)

	n, rerr := h.Read(tmp)
	if rerr != nil && rerr != io.EOF {
		return fail(), nil
	}

	if n > 0 {
		if werr := buf.Heap.WriteBytes(buf.Addr, tmp[:n]); werr != nil {
			return fail(), werr
		}
	}

	return intVal(int32(n)), nil
}

func sysWrite(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	fd, err := argInt(args, 0)
	if err != nil {
		return fail(), err
	}

	count, err := argInt(args, 2)
	if err != nil {
		return fail(), err
	}

	var data []byte

	switch v := arg(args, 1); v.Kind {
	case eval.KindPointer:
		if v.IsNull() {
			return fail(), nil
		}
		b, rerr := v.Heap.ReadBytes(v.Addr, count)
		if rerr != nil {
			return fail(), rerr
		}
		data = b
	case eval.KindString:
		data = []byte(v.Str)
		if count >= 0 && int(count) < len(data) {
			data = data[:count]
		}
	default:
		return fail(), nil
	}

	h, ok := t.GetFile(int(fd))
	if !ok {
		return fail(), nil
	}

	n, werr := h.Write(data)
	if werr != nil {
		return fail(), nil
	}

	return intVal(int32(n)), nil
}

func sysSeek(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	fd, err := argInt(args, 0)
	if err != nil {
		return fail(), err
	}

	offset, err := argInt(args, 1)
	if err != nil {
		return fail(), err
	}

	origin, err := argInt(args, 2)
	if err != nil {
		return fail(), err
	}

	h, ok := t.GetFile(int(fd))
	if !ok {
		return fail(), nil
	}

	pos, serr := h.Seek(int64(offset), int(origin))
	if serr != nil {
		return fail(), nil
	}

	return intVal(int32(pos)), nil
}

// sysStat writes exists, is-dir and size as three int32s into the caller's
// buffer.
func sysStat(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	path, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	buf, err := argPointer(args, 1)
	if err != nil {
		return fail(), err
	}

	var exists, isDir, size int32

	node, lerr := d.Kernel.FS.Lookup(t.Cwd(), path)
	if lerr == nil {
		exists = 1
		if node.IsDir() {
			isDir = 1
		}
		size = int32(node.Size())
	}

	if werr := buf.Heap.WriteInt32(buf.Addr, exists); werr != nil {
		return fail(), werr
	}
	if werr := buf.Heap.WriteInt32(buf.Addr+4, isDir); werr != nil {
		return fail(), werr
	}
	if werr := buf.Heap.WriteInt32(buf.Addr+8, size); werr != nil {
		return fail(), werr
	}

	if exists == 0 {
		return fail(), nil
	}

	return intVal(0), nil
}

func sysMkdir(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	path, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	if _, merr := d.Kernel.FS.Mkdir(t.Cwd(), path); merr != nil {
		return fail(), nil
	}

	return intVal(0), nil
}

func sysRemove(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	path, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	if rerr := d.Kernel.FS.Remove(t.Cwd(), path); rerr != nil {
		return fail(), nil
	}

	return intVal(0), nil
}

func sysUnlink(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	path, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	if rerr := d.Kernel.FS.Unlink(t.Cwd(), path); rerr != nil {
		return fail(), nil
	}

	return intVal(0), nil
}

func sysRename(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	oldPath, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	newPath, err := argText(t, args, 1)
	if err != nil {
		return fail(), err
	}

	if rerr := d.Kernel.FS.Rename(t.Cwd(), oldPath, newPath); rerr != nil {
		return fail(), nil
	}

	return intVal(0), nil
}

func sysExists(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	path, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	if _, lerr := d.Kernel.FS.Lookup(t.Cwd(), path); lerr != nil {
		return intVal(0), nil
	}

	return intVal(1), nil
}

func sysIsdir(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	path, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	node, lerr := d.Kernel.FS.Lookup(t.Cwd(), path)
	if lerr != nil || !node.IsDir() {
		return intVal(0), nil
	}

	return intVal(1), nil
}

func sysFilesize(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	path, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	node, lerr := d.Kernel.FS.Lookup(t.Cwd(), path)
	if lerr != nil || node.IsDir() {
		return fail(), nil
	}

	return intVal(int32(node.Size())), nil
}

func sysCwd(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	return eval.StringValue(t.Cwd().Path()), nil
}

func sysChdir(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	path, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	node, lerr := d.Kernel.FS.Lookup(t.Cwd(), path)
	if lerr != nil || !node.IsDir() {
		return fail(), nil
	}

	t.Chdir(node)
	return intVal(0), nil
}

func sysReadall(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	path, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	node, lerr := d.Kernel.FS.Lookup(t.Cwd(), path)
	if lerr != nil {
		return eval.StringValue(""), nil
	}

	data, rerr := d.Kernel.FS.ReadFile(node)
	if rerr != nil {
		return eval.StringValue(""), nil
	}

	return eval.StringValue(string(data)), nil
}

func sysWriteall(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	path, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	text, err := argText(t, args, 1)
	if err != nil {
		return fail(), err
	}

	node, cerr := d.Kernel.FS.Create(t.Cwd(), path)
	if cerr != nil {
		return fail(), nil
	}

	if werr := d.Kernel.FS.WriteFile(node, []byte(text)); werr != nil {
		return fail(), nil
	}

	return intVal(0), nil
}

func init() {
	register("open", sysOpen)
	register("close", sysClose)
	register("read", sysRead)
	register("write", sysWrite)
	register("seek", sysSeek)
	register("stat", sysStat)

	register("mkdir", sysMkdir)
	register("remove", sysRemove)
	register("unlink", sysUnlink)
	register("rename", sysRename)
	register("exists", sysExists)
	register("isdir", sysIsdir)
	register("filesize", sysFilesize)

	register("cwd", sysCwd)
	register("chdir", sysChdir)

	register("readall", sysReadall)
	register("writeall", sysWriteall)
}
