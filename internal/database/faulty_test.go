package database

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
)

var errInjected = errors.New("injected fault error")

// fault defines failure behaviour for one file.
type fault struct {
	failAfterBytes int64 // fail writes past this many bytes on one handle, -1 disables
	failOnSync     bool
	failOnTruncate bool
}

// faultyFS wraps LocalFS and injects errors into files by base name.
type faultyFS struct {
	mu         sync.Mutex
	rules      map[string]fault
	failRename bool
}

func newFaultyFS() *faultyFS {
	return &faultyFS{rules: make(map[string]fault)}
}

func (f *faultyFS) addRule(base string, r fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[base] = r
}

func (f *faultyFS) setFailRename(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRename = v
}

func (f *faultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	file, err := LocalFS{}.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[filepath.Base(name)]
	if !ok {
		r = fault{failAfterBytes: -1}
	}
	return &faultyFile{File: file, fault: r}, nil
}

func (f *faultyFS) Rename(oldpath, newpath string) error {
	f.mu.Lock()
	fail := f.failRename
	f.mu.Unlock()
	if fail {
		return errInjected
	}
	return LocalFS{}.Rename(oldpath, newpath)
}

func (f *faultyFS) Remove(name string) error              { return LocalFS{}.Remove(name) }
func (f *faultyFS) Stat(name string) (os.FileInfo, error) { return LocalFS{}.Stat(name) }

type faultyFile struct {
	File
	fault   fault
	written int64
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	if ff.fault.failAfterBytes >= 0 && ff.written+int64(len(p)) > ff.fault.failAfterBytes {
		return 0, errInjected
	}
	n, err := ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Sync() error {
	if ff.fault.failOnSync {
		return errInjected
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Truncate(size int64) error {
	if ff.fault.failOnTruncate {
		return errInjected
	}
	return ff.File.Truncate(size)
}
