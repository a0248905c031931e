package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/imxcstar/mini-os/eval"
	"github.com/imxcstar/mini-os/kernel"
	"github.com/imxcstar/mini-os/vfs"
)

func sysOpendir(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	path, err := argText(t, args, 0)
	if err != nil {
		return fail(), err
	}

	node, lerr := d.Kernel.FS.Lookup(t.Cwd(), path)
	if lerr != nil || !node.IsDir() {
		return fail(), nil
	}

	fd, oerr := t.OpenFile(path, kernel.FlagRead)
	if oerr != nil {
		return fail(), nil
	}

	return intVal(int32(fd)), nil
}

// sysReaddir copies the next entry into the caller's buffer: is-dir at
// offset 0, size at 4, NUL-terminated name from 8. Returns 1 while entries
// remain, 0 at the end of the listing.
func sysReaddir(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	fd, err := argInt(args, 0)
	if err != nil {
		return fail(), err
	}

	buf, err := argPointer(args, 1)
	if err != nil {
		return fail(), err
	}

	dh, ok := dirFor(t, int(fd))
	if !ok {
		return fail(), nil
	}

	entry, more := dh.ReadEntry()
	if !more {
		return intVal(0), nil
	}

	var isDir int32
	if entry.IsDir {
		isDir = 1
	}

	if werr := buf.Heap.WriteInt32(buf.Addr, isDir); werr != nil {
		return fail(), werr
	}
	if werr := buf.Heap.WriteInt32(buf.Addr+4, int32(entry.Size)); werr != nil {
		return fail(), werr
	}
	if werr := buf.Heap.WriteBytes(buf.Addr+8, append([]byte(entry.Name), 0)); werr != nil {
		return fail(), werr
	}

	return intVal(1), nil
}

func sysRewinddir(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	fd, err := argInt(args, 0)
	if err != nil {
		return fail(), err
	}

	dh, ok := dirFor(t, int(fd))
	if !ok {
		return fail(), nil
	}

	dh.Rewind()
	return intVal(0), nil
}

func dirFor(t *kernel.Task, fd int) (kernel.DirHandle, bool) {
	h, ok := t.GetFile(fd)
	if !ok {
		return nil, false
	}

	dh, ok := h.(kernel.DirHandle)
	return dh, ok
}

func sysDirCount(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	entries, err := listFor(d, t, args)
	if err != nil {
		return fail(), err
	}
	if entries == nil {
		return fail(), nil
	}

	return intVal(int32(len(entries))), nil
}

func sysDirName(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	entry, err := entryAt(d, t, args)
	if err != nil {
		return fail(), err
	}
	if entry == nil {
		return eval.StringValue(""), nil
	}

	return eval.StringValue(entry.Name), nil
}

func sysDirIsDir(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	entry, err := entryAt(d, t, args)
	if err != nil {
		return fail(), err
	}
	if entry == nil {
		return fail(), nil
	}

	if entry.IsDir {
		return intVal(1), nil
	}

	return intVal(0), nil
}

func sysDirSize(ctx context.Context, l hclog.Logger, d *Dispatcher, t *kernel.Task, args []eval.Value) (eval.Value, error) {
	entry, err := entryAt(d, t, args)
	if err != nil {
		return fail(), err
	}
	if entry == nil {
		return fail(), nil
	}

	return intVal(int32(entry.Size)), nil
}

func listFor(d *Dispatcher, t *kernel.Task, args []eval.Value) ([]vfs.DirEntry, error) {
	path, err := argText(t, args, 0)
	if err != nil {
		return nil, err
	}

	node, lerr := d.Kernel.FS.Lookup(t.Cwd(), path)
	if lerr != nil || !node.IsDir() {
		return nil, nil
	}

	entries, lerr := d.Kernel.FS.List(node)
	if lerr != nil {
		return nil, nil
	}

	return entries, nil
}

// entryAt resolves the path and index form of the dir_* introspection
// builtins. A nil entry with nil error means "not there", which each caller
// maps to its own sentinel.
func entryAt(d *Dispatcher, t *kernel.Task, args []eval.Value) (*vfs.DirEntry, error) {
	entries, err := listFor(d, t, args)
	if err != nil {
		return nil, err
	}

	index, err := argInt(args, 1)
	if err != nil {
		return nil, err
	}

	if entries == nil || index < 0 || int(index) >= len(entries) {
		return nil, nil
	}

	return &entries[int(index)], nil
}

func init() {
	register("opendir", sysOpendir)
	register("readdir", sysReaddir)
	register("rewinddir", sysRewinddir)

	register("dir_count", sysDirCount)
	register("dir_name", sysDirName)
	register("dir_is_dir", sysDirIsDir)
	register("dir_size", sysDirSize)
}
