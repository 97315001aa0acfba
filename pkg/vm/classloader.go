package vm

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

// Entry is one location searched for class files.
type Entry interface {
	// Open returns the bytes of the named class. A class the entry does not
	// hold is reported with an error wrapping fs.ErrNotExist.
	Open(name string) (io.ReadCloser, error)
	String() string
}

// DirEntry loads <Dir>/<name>.class.
type DirEntry struct {
	Fs  afero.Fs
	Dir string
}

func (e DirEntry) Open(name string) (io.ReadCloser, error) {
	return e.Fs.Open(filepath.Join(e.Dir, filepath.FromSlash(name)+".class"))
}

func (e DirEntry) String() string { return e.Dir }

// jmodMagic prefixes the zip payload of a JDK .jmod file.
var jmodMagic = []byte("JM\x01\x00")

// ArchiveEntry loads classes from a .jar, .zip or .jmod file. The archive is
// read on the first lookup.
type ArchiveEntry struct {
	Fs   afero.Fs
	Path string

	prefix string
	files  map[string]*zip.File
	err    error
}

// NewArchiveEntry returns an entry for the archive at path.
func NewArchiveEntry(fsys afero.Fs, path string) *ArchiveEntry {
	return &ArchiveEntry{Fs: fsys, Path: path}
}

func (e *ArchiveEntry) String() string { return e.Path }

func (e *ArchiveEntry) load() error {
	if e.files != nil || e.err != nil {
		return e.err
	}
	data, err := afero.ReadFile(e.Fs, e.Path)
	if err != nil {
		e.err = fmt.Errorf("archive: reading %s: %w", e.Path, err)
		return e.err
	}
	if bytes.HasPrefix(data, jmodMagic) {
		data = data[len(jmodMagic):]
		e.prefix = "classes/"
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e.err = fmt.Errorf("archive: opening %s: %w", e.Path, err)
		return e.err
	}
	e.files = make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		e.files[f.Name] = f
	}
	return nil
}

func (e *ArchiveEntry) Open(name string) (io.ReadCloser, error) {
	if err := e.load(); err != nil {
		return nil, err
	}
	target := e.prefix + path.Clean(name) + ".class"
	f, ok := e.files[target]
	if !ok {
		return nil, fmt.Errorf("archive: %s not in %s: %w", target, e.Path, fs.ErrNotExist)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("archive: opening %s in %s: %w", target, e.Path, err)
	}
	return rc, nil
}

// IsArchive reports whether p names a file ArchiveEntry can read.
func IsArchive(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".jar", ".zip", ".jmod":
		return true
	}
	return false
}

// ClassPath is the ordered list of entries probed for a class; the first
// entry holding the class wins.
type ClassPath struct {
	entries []Entry
}

// NewClassPath returns a class path over entries.
func NewClassPath(entries ...Entry) *ClassPath {
	return &ClassPath{entries: entries}
}

// ParseClassPath builds a class path from paths, treating archives by
// extension and everything else as a directory.
func ParseClassPath(fsys afero.Fs, paths []string) *ClassPath {
	p := &ClassPath{}
	for _, s := range paths {
		if s == "" {
			continue
		}
		if IsArchive(s) {
			p.entries = append(p.entries, NewArchiveEntry(fsys, s))
		} else {
			p.entries = append(p.entries, DirEntry{Fs: fsys, Dir: s})
		}
	}
	return p
}

// Entries returns the entries in probe order.
func (p *ClassPath) Entries() []Entry { return p.entries }

// Prepend puts e first unless an entry with the same location exists.
func (p *ClassPath) Prepend(e Entry) {
	for _, x := range p.entries {
		if x.String() == e.String() {
			return
		}
	}
	p.entries = append([]Entry{e}, p.entries...)
}

// Open probes each entry for name and returns the first hit together with
// the entry that held it. Entries failing for reasons other than a missing
// file are collected into the returned ErrClassNotFound.
func (p *ClassPath) Open(name string) (io.ReadCloser, Entry, error) {
	var result *multierror.Error
	for _, e := range p.entries {
		rc, err := e.Open(name)
		if err == nil {
			return rc, e, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			result = multierror.Append(result, fmt.Errorf("%s: %w", e, err))
		}
	}
	if result != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrClassNotFound, name, result)
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
}
