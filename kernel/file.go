package kernel

import (
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/imxcstar/mini-os/vfs"
)

var (
	ErrUnknownFile = errors.New("unknown file descriptor")
	ErrNotReadable = errors.New("descriptor not open for reading")
	ErrNotWritable = errors.New("descriptor not open for writing")
	ErrNotSeekable = errors.New("descriptor not seekable")
	ErrNotDir      = errors.New("descriptor is not a directory")
)

// Open flag bits, as seen by MiniC programs.
const (
	FlagRead     = 1
	FlagWrite    = 2
	FlagCreate   = 4
	FlagTruncate = 8
	FlagAppend   = 16
)

type HandleStat struct {
	IsDir bool
	Size  int64
}

// Handle is what a file descriptor points at. Handles are polymorphic over
// stdio pipes, open VFS files and open directory listings.
type Handle interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Stat() HandleStat
	Close() error
}

// DirHandle adds entry iteration for opened directories.
type DirHandle interface {
	Handle
	ReadEntry() (vfs.DirEntry, bool)
	Rewind()
}

// FileTable is the per-process descriptor map. 0/1/2 are always prebound to
// the process's io pipes; descriptors from 3 up are handed out monotonically
// and never reused within the process's lifetime.
type FileTable struct {
	mu    sync.Mutex
	next  int
	files map[int]Handle
}

func NewFileTable(stdin io.Reader, stdout, stderr io.Writer) *FileTable {
	t := &FileTable{
		next:  3,
		files: make(map[int]Handle),
	}

	t.files[0] = &pipeHandle{r: stdin}
	t.files[1] = &pipeHandle{w: stdout}
	t.files[2] = &pipeHandle{w: stderr}

	return t
}

func (t *FileTable) Get(fd int) (Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.files[fd]
	return h, ok
}

// Put registers a handle and returns its new descriptor.
func (t *FileTable) Put(h Handle) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	fd := t.next
	t.next++
	t.files[fd] = h

	return fd
}

func (t *FileTable) Close(fd int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.files[fd]
	if !ok {
		return errors.Wrapf(ErrUnknownFile, "fd %d", fd)
	}

	delete(t.files, fd)
	return h.Close()
}

// Dispose closes everything the table still holds.
func (t *FileTable) Dispose() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for fd, h := range t.files {
		h.Close()
		delete(t.files, fd)
	}
}

// Files exposes the table for Process convenience methods.
func (p *Process) Files() *FileTable { return p.files }

func (p *Process) GetFile(fd int) (Handle, bool) {
	return p.files.Get(fd)
}

func (p *Process) CloseFile(fd int) error {
	return p.files.Close(fd)
}

// OpenFile resolves path against the process working directory and allocates
// the next descriptor for it.
func (p *Process) OpenFile(path string, flags int) (int, error) {
	h, err := p.kernel.OpenPath(p.Cwd(), path, flags)
	if err != nil {
		return -1, err
	}

	return p.files.Put(h), nil
}

// OpenPath builds a handle for a VFS path. Flags carrying neither Read nor
// Write imply Read.
func (k *Kernel) OpenPath(cwd *vfs.Node, path string, flags int) (Handle, error) {
	if flags&(FlagRead|FlagWrite) == 0 {
		flags |= FlagRead
	}

	node, err := k.FS.Lookup(cwd, path)
	if err != nil {
		if flags&FlagCreate == 0 {
			return nil, err
		}

		node, err = k.FS.Create(cwd, path)
		if err != nil {
			return nil, err
		}
	}

	if node.IsDir() {
		entries, err := k.FS.List(node)
		if err != nil {
			return nil, err
		}

		return &dirHandle{entries: entries}, nil
	}

	if flags&FlagTruncate != 0 {
		if err := k.FS.Truncate(node); err != nil {
			return nil, err
		}
	}

	h := &fileHandle{
		fs:       k.FS,
		node:     node,
		readable: flags&FlagRead != 0,
		writable: flags&FlagWrite != 0,
	}

	if flags&FlagAppend != 0 {
		h.offset = int64(node.Size())
	}

	return h, nil
}

// pipeHandle adapts one side (or both) of an io pipe. It does not own the
// underlying stream, so Close is a no-op.
type pipeHandle struct {
	r io.Reader
	w io.Writer
}

func (h *pipeHandle) Read(p []byte) (int, error) {
	if h.r == nil {
		return 0, ErrNotReadable
	}
	return h.r.Read(p)
}

func (h *pipeHandle) Write(p []byte) (int, error) {
	if h.w == nil {
		return 0, ErrNotWritable
	}
	return h.w.Write(p)
}

func (h *pipeHandle) Seek(offset int64, whence int) (int64, error) {
	return 0, ErrNotSeekable
}

func (h *pipeHandle) Stat() HandleStat { return HandleStat{} }

func (h *pipeHandle) Close() error { return nil }

// fileHandle is an open VFS file with a cursor.
type fileHandle struct {
	fs   *vfs.FS
	node *vfs.Node

	mu       sync.Mutex
	offset   int64
	readable bool
	writable bool
}

func (h *fileHandle) Read(p []byte) (int, error) {
	if !h.readable {
		return 0, ErrNotReadable
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := h.fs.ReadAt(h.node, p, h.offset)
	h.offset += int64(n)
	return n, err
}

func (h *fileHandle) Write(p []byte) (int, error) {
	if !h.writable {
		return 0, ErrNotWritable
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := h.fs.WriteAt(h.node, p, h.offset)
	h.offset += int64(n)
	return n, err
}

func (h *fileHandle) Seek(offset int64, whence int) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var base int64

	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = h.offset
	case io.SeekEnd:
		base = int64(h.node.Size())
	default:
		return 0, ErrNotSeekable
	}

	pos := base + offset
	if pos < 0 {
		return 0, ErrNotSeekable
	}

	h.offset = pos
	return pos, nil
}

func (h *fileHandle) Stat() HandleStat {
	return HandleStat{Size: int64(h.node.Size())}
}

func (h *fileHandle) Close() error { return nil }

// dirHandle iterates a snapshot of directory entries taken at open time.
type dirHandle struct {
	mu      sync.Mutex
	entries []vfs.DirEntry
	index   int
}

func (h *dirHandle) Read(p []byte) (int, error) {
	return 0, ErrNotReadable
}

func (h *dirHandle) Write(p []byte) (int, error) {
	return 0, ErrNotWritable
}

func (h *dirHandle) Seek(offset int64, whence int) (int64, error) {
	return 0, ErrNotSeekable
}

func (h *dirHandle) Stat() HandleStat {
	return HandleStat{IsDir: true}
}

func (h *dirHandle) Close() error { return nil }

func (h *dirHandle) ReadEntry() (vfs.DirEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index >= len(h.entries) {
		return vfs.DirEntry{}, false
	}

	e := h.entries[h.index]
	h.index++
	return e, true
}

func (h *dirHandle) Rewind() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.index = 0
}
