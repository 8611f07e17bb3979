//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package xhook

import (
	"errors"
	"io/fs"
	"os"
	"time"
)

func lchmod(name string, _ fs.FileMode) error {
	return &fs.PathError{Op: "lchmod", Path: name, Err: errors.ErrUnsupported}
}

func unlink(name string) error {
	fi, err := os.Lstat(name)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return &fs.PathError{Op: "unlink", Path: name, Err: errors.New("is a directory")}
	}
	return os.Remove(name)
}

func rmdir(name string) error {
	fi, err := os.Lstat(name)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return &fs.PathError{Op: "rmdir", Path: name, Err: errors.New("not a directory")}
	}
	return os.Remove(name)
}

func futimes(file *os.File, atime, mtime time.Time) error {
	return os.Chtimes(file.Name(), atime, mtime)
}
