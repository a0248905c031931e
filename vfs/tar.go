package vfs

import (
	"archive/tar"
	"io"
	"path"
	"strings"
)

// LoadTar populates the filesystem from a tar image. Entry paths are taken
// relative to the root; directories missing from the archive are created on
// the way down.
func (f *FS) LoadTar(r io.Reader) error {
	tr := tar.NewReader(r)

	root := f.Root()

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		name := strings.Trim(hdr.Name, "/")
		if name == "" || name == "." {
			continue
		}

		target := "/" + name

		switch hdr.Typeflag {
		case tar.TypeDir:
			if _, err := f.MkdirAll(root, target); err != nil {
				return err
			}

		case tar.TypeReg:
			data, err := io.ReadAll(tr)
			if err != nil {
				return err
			}

			// Archives do not always carry directory entries.
			if _, err := f.MkdirAll(root, path.Dir(target)); err != nil {
				return err
			}

			node, err := f.Create(root, target)
			if err != nil {
				return err
			}

			if err := f.WriteFile(node, data); err != nil {
				return err
			}

		default:
			// Links and special files have no representation here.
		}
	}
}
