package vfs

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestResolve(t *testing.T) {
	n := neko.Modern(t)

	n.It("walks absolute and relative paths", func(t *testing.T) {
		fs := New()

		dir, err := fs.Mkdir(fs.Root(), "/home")
		require.NoError(t, err)

		_, err = fs.Create(fs.Root(), "/home/note.txt")
		require.NoError(t, err)

		node, err := fs.Lookup(dir, "note.txt")
		require.NoError(t, err)
		require.Equal(t, "/home/note.txt", node.Path())

		node, err = fs.Lookup(dir, "../home/./note.txt")
		require.NoError(t, err)
		require.Equal(t, "/home/note.txt", node.Path())
	})

	n.It("stops .. at the root", func(t *testing.T) {
		fs := New()

		node, err := fs.Lookup(fs.Root(), "/../..")
		require.NoError(t, err)
		require.Equal(t, "/", node.Path())
	})

	n.It("reports unknown paths", func(t *testing.T) {
		fs := New()

		_, err := fs.Lookup(fs.Root(), "/nope")
		require.Error(t, err)
		require.Equal(t, ErrUnknownPath, errors.Cause(err))
	})

	n.Meow()
}

func TestMutation(t *testing.T) {
	n := neko.Modern(t)

	n.It("creates files idempotently", func(t *testing.T) {
		fs := New()

		a, err := fs.Create(fs.Root(), "/f.txt")
		require.NoError(t, err)

		require.NoError(t, fs.WriteFile(a, []byte("data")))

		b, err := fs.Create(fs.Root(), "/f.txt")
		require.NoError(t, err)
		require.Equal(t, a, b)

		data, err := fs.ReadFile(b)
		require.NoError(t, err)
		require.Equal(t, "data", string(data))
	})

	n.It("refuses to mkdir over an existing name", func(t *testing.T) {
		fs := New()

		_, err := fs.Mkdir(fs.Root(), "/d")
		require.NoError(t, err)

		_, err = fs.Mkdir(fs.Root(), "/d")
		require.Error(t, err)
		require.Equal(t, ErrExists, errors.Cause(err))
	})

	n.It("creates whole trees with MkdirAll", func(t *testing.T) {
		fs := New()

		_, err := fs.MkdirAll(fs.Root(), "/a/b/c")
		require.NoError(t, err)

		node, err := fs.Lookup(fs.Root(), "/a/b/c")
		require.NoError(t, err)
		require.True(t, node.IsDir())

		// Existing directories along the way are fine.
		_, err = fs.MkdirAll(fs.Root(), "/a/b/c/d")
		require.NoError(t, err)
	})

	n.It("unlinks files but not directories", func(t *testing.T) {
		fs := New()

		_, err := fs.Create(fs.Root(), "/f")
		require.NoError(t, err)
		require.NoError(t, fs.Unlink(fs.Root(), "/f"))

		_, err = fs.Mkdir(fs.Root(), "/d")
		require.NoError(t, err)

		err = fs.Unlink(fs.Root(), "/d")
		require.Error(t, err)
	})

	n.It("removes whole subtrees", func(t *testing.T) {
		fs := New()

		_, err := fs.MkdirAll(fs.Root(), "/x/y")
		require.NoError(t, err)

		_, err = fs.Create(fs.Root(), "/x/y/z")
		require.NoError(t, err)

		require.NoError(t, fs.Remove(fs.Root(), "/x"))

		_, err = fs.Lookup(fs.Root(), "/x")
		require.Error(t, err)
	})

	n.It("renames over existing files but not directories", func(t *testing.T) {
		fs := New()

		a, err := fs.Create(fs.Root(), "/a")
		require.NoError(t, err)
		require.NoError(t, fs.WriteFile(a, []byte("one")))

		_, err = fs.Create(fs.Root(), "/b")
		require.NoError(t, err)

		require.NoError(t, fs.Rename(fs.Root(), "/a", "/b"))

		node, err := fs.Lookup(fs.Root(), "/b")
		require.NoError(t, err)

		data, err := fs.ReadFile(node)
		require.NoError(t, err)
		require.Equal(t, "one", string(data))

		_, err = fs.Mkdir(fs.Root(), "/d")
		require.NoError(t, err)

		_, err = fs.Create(fs.Root(), "/c")
		require.NoError(t, err)

		err = fs.Rename(fs.Root(), "/c", "/d")
		require.Error(t, err)
	})

	n.It("lists entries sorted by name", func(t *testing.T) {
		fs := New()

		_, err := fs.Create(fs.Root(), "/b.txt")
		require.NoError(t, err)
		_, err = fs.Create(fs.Root(), "/a.txt")
		require.NoError(t, err)
		_, err = fs.Mkdir(fs.Root(), "/c")
		require.NoError(t, err)

		entries, err := fs.List(fs.Root())
		require.NoError(t, err)
		require.Len(t, entries, 3)
		require.Equal(t, "a.txt", entries[0].Name)
		require.Equal(t, "b.txt", entries[1].Name)
		require.Equal(t, "c", entries[2].Name)
		require.True(t, entries[2].IsDir)
	})

	n.Meow()
}

func TestIO(t *testing.T) {
	n := neko.Modern(t)

	n.It("extends files on WriteAt past the end", func(t *testing.T) {
		fs := New()

		f, err := fs.Create(fs.Root(), "/f")
		require.NoError(t, err)

		_, err = fs.WriteAt(f, []byte("abc"), 2)
		require.NoError(t, err)
		require.Equal(t, 5, f.Size())

		buf := make([]byte, 5)
		_, err = fs.ReadAt(f, buf, 0)
		require.NoError(t, err)
		require.Equal(t, []byte{0, 0, 'a', 'b', 'c'}, buf)
	})

	n.It("truncates files to empty", func(t *testing.T) {
		fs := New()

		f, err := fs.Create(fs.Root(), "/f")
		require.NoError(t, err)
		require.NoError(t, fs.WriteFile(f, []byte("data")))

		require.NoError(t, fs.Truncate(f))
		require.Equal(t, 0, f.Size())
	})

	n.Meow()
}

func TestLoadTar(t *testing.T) {
	n := neko.Modern(t)

	writeEntry := func(tw *tar.Writer, hdr *tar.Header, body []byte) {
		hdr.Size = int64(len(body))
		require.NoError(t, tw.WriteHeader(hdr))
		if len(body) > 0 {
			_, err := tw.Write(body)
			require.NoError(t, err)
		}
	}

	n.It("builds the tree from an image", func(t *testing.T) {
		var buf bytes.Buffer

		tw := tar.NewWriter(&buf)
		writeEntry(tw, &tar.Header{Name: "bin/", Typeflag: tar.TypeDir, Mode: 0755}, nil)
		writeEntry(tw, &tar.Header{Name: "bin/hello.c", Typeflag: tar.TypeReg, Mode: 0644}, []byte("int main(void) { return 0; }"))
		writeEntry(tw, &tar.Header{Name: "include/stdio.h", Typeflag: tar.TypeReg, Mode: 0644}, []byte("int puts(char* text);"))
		require.NoError(t, tw.Close())

		fs := New()
		require.NoError(t, fs.LoadTar(&buf))

		node, err := fs.Lookup(fs.Root(), "/bin/hello.c")
		require.NoError(t, err)

		data, err := fs.ReadFile(node)
		require.NoError(t, err)
		require.Contains(t, string(data), "main")

		// include/ had no directory entry of its own.
		dir, err := fs.Lookup(fs.Root(), "/include")
		require.NoError(t, err)
		require.True(t, dir.IsDir())
	})

	n.Meow()
}
