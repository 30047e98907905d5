package model

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
	"golang.org/x/sys/unix"
)

// JSONOptions is the encoding used for every file the store writes: indented,
// with map keys sorted so repeated writes of the same values are identical.
var JSONOptions = &ojg.Options{Indent: 2, Sort: true}

// Store is the filesystem a site lives in. Paths are slash separated and
// relative to the site directory.
type Store struct {
	fs   billy.Filesystem
	root string // OS directory backing fs, empty when in memory

	mu    sync.Mutex
	locks map[string]*dirLock
}

// NewStore wraps an existing billy filesystem.
func NewStore(fs billy.Filesystem) *Store {
	return &Store{fs: fs, locks: make(map[string]*dirLock)}
}

// OpenStore returns a store over an OS directory, creating it if needed.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	s := NewStore(osfs.New(dir))
	s.root = dir
	return s, nil
}

// MemStore returns an empty in-memory store.
func MemStore() *Store {
	return NewStore(memfs.New())
}

// Filesystem returns the underlying billy filesystem.
func (s *Store) Filesystem() billy.Filesystem { return s.fs }

// Root returns the OS directory backing the store, or "" for memory stores.
func (s *Store) Root() string { return s.root }

// OSPath returns the OS path for p, or "" for memory stores.
func (s *Store) OSPath(p string) string {
	if s.root == "" {
		return ""
	}
	return filepath.Join(s.root, filepath.FromSlash(p))
}

// Exists reports whether p exists.
func (s *Store) Exists(p string) bool {
	_, err := s.fs.Stat(p)
	return err == nil
}

// IsDir reports whether p is an existing directory.
func (s *Store) IsDir(p string) bool {
	fi, err := s.fs.Stat(p)
	return err == nil && fi.IsDir()
}

// IsFile reports whether p is an existing regular file.
func (s *Store) IsFile(p string) bool {
	fi, err := s.fs.Stat(p)
	return err == nil && !fi.IsDir()
}

// MkdirAll creates p and any missing parents.
func (s *Store) MkdirAll(p string) error {
	if err := s.fs.MkdirAll(p, 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: p, Err: err}
	}
	return nil
}

// ReadFile returns the content of p.
func (s *Store) ReadFile(p string) ([]byte, error) {
	data, err := util.ReadFile(s.fs, p)
	if err != nil {
		return nil, &IOError{Op: "read", Path: p, Err: err}
	}
	return data, nil
}

// WriteFile replaces p with data. The content is written to a temporary file
// in the same directory and renamed into place.
func (s *Store) WriteFile(p string, data []byte) error {
	dir := path.Dir(p)
	if err := s.MkdirAll(dir); err != nil {
		return err
	}
	tmp, err := util.TempFile(s.fs, dir, ".tmp-"+path.Base(p)+"-")
	if err != nil {
		return &IOError{Op: "write", Path: p, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return &IOError{Op: "write", Path: p, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return &IOError{Op: "write", Path: p, Err: err}
	}
	if err := s.fs.Rename(tmpName, p); err != nil {
		_ = s.fs.Remove(tmpName)
		return &IOError{Op: "rename", Path: p, Err: err}
	}
	return nil
}

// ReadJSON parses the JSON object stored at p.
func (s *Store) ReadJSON(p string) (Values, error) {
	data, err := s.ReadFile(p)
	if err != nil {
		return nil, err
	}
	v, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse %s: expected a JSON object, got %T", p, v)
	}
	return Values(m), nil
}

// WriteJSON writes v to p with sorted keys.
func (s *Store) WriteJSON(p string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}
	return s.WriteFile(p, data)
}

// Marshal encodes v the way the store writes it.
func Marshal(v any) ([]byte, error) {
	if vals, ok := v.(Values); ok {
		v = map[string]any(vals)
	}
	data, err := oj.Marshal(v, JSONOptions)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ReadDir returns the sorted names of p's entries. A missing directory has no
// entries.
func (s *Store) ReadDir(p string) ([]iofs.FileInfo, error) {
	infos, err := s.fs.ReadDir(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &IOError{Op: "readdir", Path: p, Err: err}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}

// SubDirs returns the sorted names of the visible subdirectories of p.
func (s *Store) SubDirs(p string) ([]string, error) {
	infos, err := s.ReadDir(p)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, fi := range infos {
		if fi.IsDir() && !strings.HasPrefix(fi.Name(), ".") {
			out = append(out, fi.Name())
		}
	}
	return out, nil
}

// Rename moves oldPath to newPath.
func (s *Store) Rename(oldPath, newPath string) error {
	if err := s.fs.Rename(oldPath, newPath); err != nil {
		return &IOError{Op: "rename", Path: oldPath, Err: err}
	}
	return nil
}

// RemoveAll deletes p and everything under it.
func (s *Store) RemoveAll(p string) error {
	if err := util.RemoveAll(s.fs, p); err != nil {
		return &IOError{Op: "remove", Path: p, Err: err}
	}
	return nil
}

// CopyFile copies a single file between stores, creating parent directories.
func (s *Store) CopyFile(src *Store, srcPath, dstPath string) error {
	data, err := src.ReadFile(srcPath)
	if err != nil {
		return err
	}
	return s.WriteFile(dstPath, data)
}

// CopyFromFS merges the tree at srcDir in src into dstDir. Existing files in
// the target are overwritten; files only in the target are left alone.
func (s *Store) CopyFromFS(src iofs.FS, srcDir, dstDir string) error {
	return iofs.WalkDir(src, srcDir, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, srcDir), "/")
		target := path.Join(dstDir, rel)
		if d.IsDir() {
			return s.MkdirAll(target)
		}
		f, err := src.Open(p)
		if err != nil {
			return err
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		return s.WriteFile(target, data)
	})
}

// FS returns an io/fs view of the subtree at p, for use as a copy source.
func (s *Store) FS(p string) iofs.FS {
	return billyFS{fs: s.fs, root: p}
}

// Lock takes an exclusive lock on directory p, creating it if needed. OS
// backed stores use flock(2) on the directory so separate processes are
// excluded as well; memory stores use an in-process mutex.
func (s *Store) Lock(p string) (func(), error) {
	if s.root == "" {
		s.mu.Lock()
		l, ok := s.locks[p]
		if !ok {
			l = &dirLock{}
			s.locks[p] = l
		}
		l.refs++
		s.mu.Unlock()
		l.Lock()
		return func() {
			l.Unlock()
			s.mu.Lock()
			if l.refs--; l.refs == 0 {
				delete(s.locks, p)
			}
			s.mu.Unlock()
		}, nil
	}

	if err := s.MkdirAll(p); err != nil {
		return nil, err
	}
	osPath := s.OSPath(p)
	fd, err := unix.Open(osPath, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &IOError{Op: "lock", Path: p, Err: err}
	}
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		_ = unix.Close(fd)
		return nil, &IOError{Op: "lock", Path: p, Err: err}
	}
	return func() {
		_ = unix.Flock(fd, unix.LOCK_UN)
		_ = unix.Close(fd)
	}, nil
}

// dirLock is a memory store lock shared by every holder and waiter of one
// directory; refs counts them.
type dirLock struct {
	sync.Mutex
	refs int
}

// billyFS adapts a billy filesystem subtree to io/fs.
type billyFS struct {
	fs   billy.Filesystem
	root string
}

func (b billyFS) full(name string) string {
	if name == "." {
		return b.root
	}
	return path.Join(b.root, name)
}

func (b billyFS) Open(name string) (iofs.File, error) {
	if !iofs.ValidPath(name) {
		return nil, &iofs.PathError{Op: "open", Path: name, Err: iofs.ErrInvalid}
	}
	p := b.full(name)
	fi, err := b.fs.Stat(p)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		infos, err := b.fs.ReadDir(p)
		if err != nil {
			return nil, err
		}
		sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
		return &billyDir{info: fi, entries: infos}, nil
	}
	f, err := b.fs.Open(p)
	if err != nil {
		return nil, err
	}
	return &billyFile{File: f, info: fi}, nil
}

type billyFile struct {
	billy.File
	info iofs.FileInfo
}

func (f *billyFile) Stat() (iofs.FileInfo, error) { return f.info, nil }

type billyDir struct {
	info    iofs.FileInfo
	entries []iofs.FileInfo
	off     int
}

func (d *billyDir) Stat() (iofs.FileInfo, error) { return d.info, nil }
func (d *billyDir) Read([]byte) (int, error) {
	return 0, &iofs.PathError{Op: "read", Path: d.info.Name(), Err: iofs.ErrInvalid}
}
func (d *billyDir) Close() error { return nil }

func (d *billyDir) ReadDir(n int) ([]iofs.DirEntry, error) {
	rest := d.entries[d.off:]
	if n > 0 && len(rest) > n {
		rest = rest[:n]
	}
	if n > 0 && len(rest) == 0 {
		return nil, io.EOF
	}
	d.off += len(rest)
	out := make([]iofs.DirEntry, len(rest))
	for i, fi := range rest {
		out[i] = iofs.FileInfoToDirEntry(fi)
	}
	return out, nil
}
