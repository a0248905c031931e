// Package loader compiles MiniC programs out of the virtual filesystem and
// caches the results, so repeated spawns of the same binary skip the front
// end entirely.
package loader

import (
	"encoding/base64"
	"os"
	"path"
	"path/filepath"
	"sync"

	hclog "github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/imxcstar/mini-os/log"
	"github.com/imxcstar/mini-os/minic"
	"github.com/imxcstar/mini-os/vfs"
)

// DefaultIncludeDirs is where system includes resolve when the caller does
// not override the search path.
var DefaultIncludeDirs = []string{"/include"}

type Cache struct {
	mu sync.RWMutex

	cache *lru.ARCCache
}

func NewCache() *Cache {
	cache, err := lru.NewARC(100)
	if err != nil {
		panic(err)
	}

	return &Cache{cache: cache}
}

func (c *Cache) Lookup(key string) (*minic.Program, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	val, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}

	return val.(*minic.Program), true
}

func (c *Cache) Set(key string, p *minic.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Add(key, p)
}

type Loader struct {
	L     hclog.Logger
	cache *Cache

	fs      *vfs.FS
	include []string
}

func NewLoader(fs *vfs.FS, cache *Cache) *Loader {
	return &Loader{
		L:       log.L,
		cache:   cache,
		fs:      fs,
		include: DefaultIncludeDirs,
	}
}

// SetIncludeDirs replaces the system include search path.
func (l *Loader) SetIncludeDirs(dirs []string) {
	l.include = dirs
}

// LoadPath resolves path against cwd in the VFS, compiles it and caches the
// program keyed by the source's content hash.
func (l *Loader) LoadPath(cwd *vfs.Node, path string) (*minic.Program, error) {
	node, err := l.fs.Lookup(cwd, path)
	if err != nil {
		return nil, err
	}

	if node.IsDir() {
		return nil, errors.Wrap(vfs.ErrIsDirectory, path)
	}

	data, err := l.fs.ReadFile(node)
	if err != nil {
		return nil, err
	}

	return l.Compile(node.Path(), string(data))
}

// Compile runs the front end on one translation unit. name must be the
// file's VFS path so quoted includes resolve relative to it.
func (l *Loader) Compile(name, source string) (*minic.Program, error) {
	var cacheKey string

	if l.cache != nil {
		h, err := blake2b.New256(nil)
		if err != nil {
			return nil, err
		}

		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(source))

		cacheKey = base64.URLEncoding.EncodeToString(h.Sum(nil))

		l.L.Debug("looking for cached program", "key", cacheKey)

		if prog, ok := l.cache.Lookup(cacheKey); ok {
			return prog, nil
		}
	}

	prog, err := minic.Compile(name, source, minic.Options{
		Resolver: &vfsResolver{fs: l.fs, include: l.include},
	})
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		l.L.Debug("cached program", "key", cacheKey)
		l.cache.Set(cacheKey, prog)
	}

	return prog, nil
}

// vfsResolver finds include targets inside the virtual filesystem. Quoted
// includes try the including file's directory before the system dirs.
type vfsResolver struct {
	fs      *vfs.FS
	include []string
}

func (r *vfsResolver) Resolve(name string, quoted bool, fromDir string) (string, string, error) {
	var candidates []string

	if quoted {
		candidates = append(candidates, path.Join(fromDir, name))
	}
	for _, dir := range r.include {
		candidates = append(candidates, path.Join(dir, name))
	}

	root := r.fs.Root()

	for _, c := range candidates {
		node, err := r.fs.Lookup(root, c)
		if err != nil || node.IsDir() {
			continue
		}

		data, err := r.fs.ReadFile(node)
		if err != nil {
			continue
		}

		return node.Path(), string(data), nil
	}

	return "", "", errors.Errorf("no such include: %s", name)
}

// HostResolver finds include targets on the host filesystem. The compile
// command uses it when building files outside any kernel session.
type HostResolver struct {
	IncludeDirs []string
}

func (r *HostResolver) Resolve(name string, quoted bool, fromDir string) (string, string, error) {
	var candidates []string

	if quoted {
		candidates = append(candidates, filepath.Join(fromDir, name))
	}
	for _, dir := range r.IncludeDirs {
		candidates = append(candidates, filepath.Join(dir, name))
	}

	for _, c := range candidates {
		data, err := os.ReadFile(c)
		if err != nil {
			continue
		}

		return filepath.ToSlash(c), string(data), nil
	}

	return "", "", errors.Errorf("no such include: %s", name)
}
