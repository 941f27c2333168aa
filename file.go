package opc

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// origin is what the package reads from: the handle passed to Open and,
// for file-backed packages, the filesystem entry behind it.
type origin struct {
	closer io.Closer
	handle any
	fs     billy.Filesystem
	name   string
	// info identifies the source on disk when the handle or filesystem
	// can stat it.
	info os.FileInfo
}

// saveTarget is where Close persists pending changes: a caller writer or a
// file on a billy filesystem.
type saveTarget struct {
	w    io.Writer
	fs   billy.Filesystem
	name string
}

func (t saveTarget) known() bool { return t.w != nil || t.fs != nil }

type statter interface {
	Stat() (os.FileInfo, error)
}

func cleanName(name string) string {
	return strings.TrimPrefix(path.Clean(filepath.ToSlash(name)), "/")
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	return ta == tb && ta.Comparable() && a == b
}

// statOf returns the file info of v when it can report one.
func statOf(v any) os.FileInfo {
	s, ok := v.(statter)
	if !ok {
		return nil
	}
	fi, err := s.Stat()
	if err != nil {
		return nil
	}
	return fi
}

// sameFile reports whether fi is the source file on disk. It only matches
// infos from the local filesystem.
func (p *Package) sameFile(fi os.FileInfo) bool {
	return p.origin.info != nil && fi != nil && os.SameFile(p.origin.info, fi)
}

// isSource reports whether writing to w would overwrite the archive the
// package is reading from.
func (p *Package) isSource(w io.Writer) bool {
	if p.src == nil {
		return false
	}
	if sameValue(w, p.origin.handle) {
		return true
	}
	if p.sameFile(statOf(w)) {
		return true
	}
	if f, ok := w.(billy.File); ok {
		return p.origin.fs != nil && cleanName(f.Name()) == p.origin.name
	}
	return false
}

// isSourceFile reports whether name on fsys is the source file, through
// this filesystem or any other view of the same file.
func (p *Package) isSourceFile(fsys billy.Filesystem, name string) bool {
	if p.src == nil {
		return false
	}
	if p.origin.fs != nil && sameValue(fsys, p.origin.fs) && cleanName(name) == p.origin.name {
		return true
	}
	fi, err := fsys.Stat(name)
	return err == nil && p.sameFile(fi)
}

// OpenFile opens the package stored at name on fsys. The file stays open
// until the package is closed or reverted. A read-write package opened this
// way saves back to the same file on Close when it was changed.
func OpenFile(fsys billy.Filesystem, name string, access Access, opts ...Option) (*Package, error) {
	fi, err := fsys.Stat(name)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidFormat, name)
	}
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	p, err := Open(f, fi.Size(), access, opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	p.origin = origin{closer: f, handle: f, fs: fsys, name: cleanName(name), info: fi}
	if access == ReadWrite && !p.target.known() {
		p.target = saveTarget{fs: fsys, name: cleanName(name)}
	}
	return p, nil
}

// OpenPath opens a package from the local filesystem.
func OpenPath(name string, access Access, opts ...Option) (*Package, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, err
	}
	dir, base := filepath.Split(abs)
	return OpenFile(osfs.New(dir), base, access, opts...)
}

// CreateFile returns an empty package that Close writes to name on fsys.
func CreateFile(fsys billy.Filesystem, name string, opts ...Option) (*Package, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty file name", ErrInvalidOperation)
	}
	p := Create(opts...)
	p.target = saveTarget{fs: fsys, name: cleanName(name)}
	return p, nil
}

// SaveFile saves the package to name on fsys, replacing any existing file.
// Saving over the file the package was opened from fails with
// ErrInvalidOperation.
func (p *Package) SaveFile(fsys billy.Filesystem, name string, opts ...SaveOption) error {
	if err := p.checkWritable(); err != nil {
		return err
	}
	if p.isSourceFile(fsys, name) {
		return fmt.Errorf("%w: cannot save over the open source %s", ErrInvalidOperation, name)
	}
	return p.writeFile(fsys, name, opts)
}

func (p *Package) writeFile(fsys billy.Filesystem, name string, opts []SaveOption) error {
	f, err := fsys.Create(name)
	if err != nil {
		return err
	}
	err = p.saveTo(f, opts)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = fsys.Remove(name)
	}
	return err
}

// saveToTarget writes the package to its save target. A target that is the
// source file is replaced through a temporary file in the same directory,
// renamed over the original once the source has been released.
func (p *Package) saveToTarget() error {
	t := p.target
	if t.w != nil {
		if p.isSource(t.w) {
			return fmt.Errorf("%w: save target is the open source", ErrInvalidOperation)
		}
		return p.saveTo(t.w, nil)
	}
	if !p.isSourceFile(t.fs, t.name) {
		return p.writeFile(t.fs, t.name, nil)
	}
	tmp, err := t.fs.TempFile(path.Dir(t.name), ".opc-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	err = p.saveTo(tmp, nil)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = p.release()
	}
	if err == nil {
		err = t.fs.Rename(tmpName, t.name)
	}
	if err != nil {
		_ = t.fs.Remove(tmpName)
		return err
	}
	p.log.Debug("opc: replaced source file", "name", t.name)
	return nil
}
