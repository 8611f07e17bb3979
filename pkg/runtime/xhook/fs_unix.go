//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package xhook

import (
	"io/fs"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func lchmod(name string, mode fs.FileMode) error {
	if err := unix.Fchmodat(unix.AT_FDCWD, name, uint32(mode.Perm()), unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return &fs.PathError{Op: "lchmod", Path: name, Err: err}
	}
	return nil
}

func unlink(name string) error {
	if err := unix.Unlink(name); err != nil {
		return &fs.PathError{Op: "unlink", Path: name, Err: err}
	}
	return nil
}

func rmdir(name string) error {
	if err := unix.Rmdir(name); err != nil {
		return &fs.PathError{Op: "rmdir", Path: name, Err: err}
	}
	return nil
}

func futimes(file *os.File, atime, mtime time.Time) error {
	tv := []unix.Timeval{
		unix.NsecToTimeval(atime.UnixNano()),
		unix.NsecToTimeval(mtime.UnixNano()),
	}
	if err := unix.Futimes(int(file.Fd()), tv); err != nil {
		return &fs.PathError{Op: "futimes", Path: file.Name(), Err: err}
	}
	return nil
}
