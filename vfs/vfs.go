// Package vfs is the in-memory filesystem tree that MiniC programs reach
// through syscalls: a name→node map with parent pointers. There is no
// locking beyond keeping the tree itself consistent; concurrent writers to
// one path race with last-write-wins semantics.
package vfs

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrUnknownPath  = errors.New("unknown path")
	ErrNotDirectory = errors.New("not a directory")
	ErrIsDirectory  = errors.New("is a directory")
	ErrExists       = errors.New("path already exists")
	ErrNotEmpty     = errors.New("directory not empty")
)

type Node struct {
	name     string
	dir      bool
	data     []byte
	parent   *Node
	children map[string]*Node
}

func (n *Node) Name() string { return n.name }
func (n *Node) IsDir() bool  { return n.dir }

func (n *Node) Size() int {
	if n.dir {
		return 0
	}
	return len(n.data)
}

// Path rebuilds the absolute path by walking parent pointers.
func (n *Node) Path() string {
	if n.parent == nil {
		return "/"
	}

	var parts []string
	for at := n; at.parent != nil; at = at.parent {
		parts = append(parts, at.name)
	}

	var sb strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		sb.WriteByte('/')
		sb.WriteString(parts[i])
	}

	return sb.String()
}

// DirEntry is a point-in-time snapshot of one directory member.
type DirEntry struct {
	Name  string
	IsDir bool
	Size  int
}

type FS struct {
	mu   sync.Mutex
	root *Node
}

func New() *FS {
	return &FS{
		root: &Node{
			name:     "/",
			dir:      true,
			children: make(map[string]*Node),
		},
	}
}

func (f *FS) Root() *Node { return f.root }

// Lookup resolves path against cwd (nil cwd means the root).
func (f *FS) Lookup(cwd *Node, path string) (*Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.resolve(cwd, path)
}

func (f *FS) resolve(cwd *Node, path string) (*Node, error) {
	at := cwd
	if at == nil || strings.HasPrefix(path, "/") {
		at = f.root
	}

	for _, part := range strings.Split(path, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			if at.parent != nil {
				at = at.parent
			}
			continue
		}

		if !at.dir {
			return nil, errors.Wrap(ErrNotDirectory, at.name)
		}

		child, ok := at.children[part]
		if !ok {
			return nil, errors.Wrap(ErrUnknownPath, path)
		}

		at = child
	}

	return at, nil
}

// resolveParent resolves everything but the final path element and returns
// the directory plus the leaf name.
func (f *FS) resolveParent(cwd *Node, path string) (*Node, string, error) {
	clean := strings.TrimRight(path, "/")
	if clean == "" || clean == "." {
		return nil, "", errors.Wrap(ErrExists, "/")
	}

	idx := strings.LastIndexByte(clean, '/')

	var dirPath, leaf string
	if idx < 0 {
		dirPath, leaf = ".", clean
	} else {
		dirPath, leaf = clean[:idx], clean[idx+1:]
		if dirPath == "" {
			dirPath = "/"
		}
	}

	if leaf == "" || leaf == "." || leaf == ".." {
		return nil, "", errors.Wrapf(ErrExists, "%q", path)
	}

	dir, err := f.resolve(cwd, dirPath)
	if err != nil {
		return nil, "", err
	}

	if !dir.dir {
		return nil, "", errors.Wrap(ErrNotDirectory, dirPath)
	}

	return dir, leaf, nil
}

// Mkdir creates a single directory. The parent must exist.
func (f *FS) Mkdir(cwd *Node, path string) (*Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir, leaf, err := f.resolveParent(cwd, path)
	if err != nil {
		return nil, err
	}

	if _, ok := dir.children[leaf]; ok {
		return nil, errors.Wrap(ErrExists, path)
	}

	child := &Node{
		name:     leaf,
		dir:      true,
		parent:   dir,
		children: make(map[string]*Node),
	}
	dir.children[leaf] = child

	return child, nil
}

// MkdirAll creates every missing directory along path. Existing directories
// are fine; an existing file in the way is not.
func (f *FS) MkdirAll(cwd *Node, path string) (*Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	at := cwd
	if at == nil || strings.HasPrefix(path, "/") {
		at = f.root
	}

	for _, part := range strings.Split(path, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			if at.parent != nil {
				at = at.parent
			}
			continue
		}

		child, ok := at.children[part]
		if !ok {
			child = &Node{
				name:     part,
				dir:      true,
				parent:   at,
				children: make(map[string]*Node),
			}
			at.children[part] = child
		}

		if !child.dir {
			return nil, errors.Wrap(ErrNotDirectory, part)
		}

		at = child
	}

	return at, nil
}

// Create makes an empty file, or returns the existing file at path.
func (f *FS) Create(cwd *Node, path string) (*Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n, err := f.resolve(cwd, path); err == nil {
		if n.dir {
			return nil, errors.Wrap(ErrIsDirectory, path)
		}
		return n, nil
	}

	dir, leaf, err := f.resolveParent(cwd, path)
	if err != nil {
		return nil, err
	}

	child := &Node{
		name:   leaf,
		parent: dir,
	}
	dir.children[leaf] = child

	return child, nil
}

// Remove deletes a file or an entire directory subtree.
func (f *FS) Remove(cwd *Node, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, err := f.resolve(cwd, path)
	if err != nil {
		return err
	}

	if n.parent == nil {
		return errors.Wrap(ErrNotEmpty, "/")
	}

	delete(n.parent.children, n.name)
	n.parent = nil
	return nil
}

// Unlink deletes a file; directories are refused.
func (f *FS) Unlink(cwd *Node, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, err := f.resolve(cwd, path)
	if err != nil {
		return err
	}

	if n.dir {
		return errors.Wrap(ErrIsDirectory, path)
	}

	delete(n.parent.children, n.name)
	n.parent = nil
	return nil
}

// Rename moves oldPath to newPath, replacing any existing file there.
func (f *FS) Rename(cwd *Node, oldPath, newPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, err := f.resolve(cwd, oldPath)
	if err != nil {
		return err
	}

	if n.parent == nil {
		return errors.Wrap(ErrNotEmpty, "/")
	}

	dir, leaf, err := f.resolveParent(cwd, newPath)
	if err != nil {
		return err
	}

	if existing, ok := dir.children[leaf]; ok {
		if existing.dir {
			return errors.Wrap(ErrExists, newPath)
		}
		existing.parent = nil
	}

	delete(n.parent.children, n.name)
	n.name = leaf
	n.parent = dir
	dir.children[leaf] = n
	return nil
}

// List snapshots the entries of a directory node, sorted by name.
func (f *FS) List(n *Node) ([]DirEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !n.dir {
		return nil, errors.Wrap(ErrNotDirectory, n.name)
	}

	entries := make([]DirEntry, 0, len(n.children))
	for _, c := range n.children {
		entries = append(entries, DirEntry{
			Name:  c.name,
			IsDir: c.dir,
			Size:  c.Size(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries, nil
}

// ReadFile copies out a file's contents.
func (f *FS) ReadFile(n *Node) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n.dir {
		return nil, errors.Wrap(ErrIsDirectory, n.name)
	}

	out := make([]byte, len(n.data))
	copy(out, n.data)
	return out, nil
}

// WriteFile replaces a file's contents. Last write wins.
func (f *FS) WriteFile(n *Node, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n.dir {
		return errors.Wrap(ErrIsDirectory, n.name)
	}

	n.data = append(n.data[:0:0], data...)
	return nil
}

// ReadAt implements pread-style access for file handles.
func (f *FS) ReadAt(n *Node, p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n.dir {
		return 0, errors.Wrap(ErrIsDirectory, n.name)
	}

	if off >= int64(len(n.data)) {
		return 0, nil
	}

	return copy(p, n.data[off:]), nil
}

// WriteAt writes at an offset, extending the file as needed.
func (f *FS) WriteAt(n *Node, p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n.dir {
		return 0, errors.Wrap(ErrIsDirectory, n.name)
	}

	end := off + int64(len(p))
	if end > int64(len(n.data)) {
		grown := make([]byte, end)
		copy(grown, n.data)
		n.data = grown
	}

	return copy(n.data[off:end], p), nil
}

// Truncate drops a file's contents.
func (f *FS) Truncate(n *Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n.dir {
		return errors.Wrap(ErrIsDirectory, n.name)
	}

	n.data = nil
	return nil
}
