// Package atomicfile implements write-temp-then-rename file creation.
package atomicfile

import (
	"os"
	"path/filepath"
)

// File writes to a temporary file in the destination directory and
// moves it into place on Close.
type File struct {
	f      *os.File
	dst    string
	closed bool
}

// New creates a temporary file next to the destination.
func New(dst string) (*File, error) {
	dir, name := filepath.Split(dst)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, name+".wip-*")
	if err != nil {
		return nil, err
	}
	return &File{f: f, dst: dst}, nil
}

func (f *File) Write(p []byte) (int, error) {
	return f.f.Write(p)
}

// Close syncs and renames the temporary file into place. Any error
// results in full cleanup.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	err := f.f.Sync()
	if cerr := f.f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(f.f.Name(), f.dst)
	}
	if err != nil {
		os.Remove(f.f.Name())
	}
	return err
}

// Abort discards the temporary file without touching the destination.
func (f *File) Abort() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.f.Close()
	return os.Remove(f.f.Name())
}

// WriteFile writes data to a file atomically.
func WriteFile(dst string, data []byte, perm os.FileMode) error {
	f, err := New(dst)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	if err == nil {
		err = os.Chmod(f.f.Name(), perm)
	}
	if err != nil {
		f.Abort()
		return err
	}
	return f.Close()
}
