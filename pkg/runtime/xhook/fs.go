package xhook

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FS 文件系统异步操作入口。
//
// 每个操作在后台 goroutine 中执行系统调用，完成回调在循环 goroutine 上、
// 以调用时刻的活跃身份执行。所有方法只能在循环 goroutine 上调用。
type FS struct {
	r        *Registry
	watchers map[string][]*FileWatcher
}

// =============================================================================
// 元数据
// =============================================================================

// Stat 获取文件信息（跟随符号链接）。
func (f *FS) Stat(name string, cb func(fs.FileInfo, error)) {
	Do(f.r, func() (fs.FileInfo, error) { return os.Stat(name) }, cb)
}

// Lstat 获取文件信息（不跟随符号链接）。
func (f *FS) Lstat(name string, cb func(fs.FileInfo, error)) {
	Do(f.r, func() (fs.FileInfo, error) { return os.Lstat(name) }, cb)
}

// Fstat 获取已打开文件的信息。
func (f *FS) Fstat(file *os.File, cb func(fs.FileInfo, error)) {
	Do(f.r, file.Stat, cb)
}

// Exists 报告 name 是否存在。任何 Stat 错误都视为不存在。
func (f *FS) Exists(name string, cb func(bool)) {
	Do(f.r, func() (bool, error) {
		_, err := os.Stat(name)
		return err == nil, nil
	}, adaptExists(cb))
}

func adaptExists(cb func(bool)) func(bool, error) {
	if cb == nil {
		return nil
	}
	return func(ok bool, _ error) { cb(ok) }
}

// =============================================================================
// 名称与链接
// =============================================================================

// Rename 重命名文件或目录。
func (f *FS) Rename(oldpath, newpath string, cb func(error)) {
	doErr(f.r, func() error { return os.Rename(oldpath, newpath) }, cb)
}

// Link 创建硬链接。
func (f *FS) Link(oldname, newname string, cb func(error)) {
	doErr(f.r, func() error { return os.Link(oldname, newname) }, cb)
}

// Symlink 创建符号链接 newname → oldname。
func (f *FS) Symlink(oldname, newname string, cb func(error)) {
	doErr(f.r, func() error { return os.Symlink(oldname, newname) }, cb)
}

// Readlink 读取符号链接目标。
func (f *FS) Readlink(name string, cb func(string, error)) {
	Do(f.r, func() (string, error) { return os.Readlink(name) }, cb)
}

// Realpath 返回解析全部符号链接后的绝对路径。
func (f *FS) Realpath(name string, cb func(string, error)) {
	Do(f.r, func() (string, error) {
		p, err := filepath.EvalSymlinks(name)
		if err != nil {
			return "", err
		}
		return filepath.Abs(p)
	}, cb)
}

// Unlink 删除文件，name 为目录时返回错误。
func (f *FS) Unlink(name string, cb func(error)) {
	doErr(f.r, func() error { return unlink(name) }, cb)
}

// =============================================================================
// 目录
// =============================================================================

// Mkdir 创建目录。
func (f *FS) Mkdir(name string, perm fs.FileMode, cb func(error)) {
	doErr(f.r, func() error { return os.Mkdir(name, perm) }, cb)
}

// MkdirAll 递归创建目录。
func (f *FS) MkdirAll(name string, perm fs.FileMode, cb func(error)) {
	doErr(f.r, func() error { return os.MkdirAll(name, perm) }, cb)
}

// Rmdir 删除空目录，name 不是目录时返回错误。
func (f *FS) Rmdir(name string, cb func(error)) {
	doErr(f.r, func() error { return rmdir(name) }, cb)
}

// Readdir 读取目录项，按文件名排序。
func (f *FS) Readdir(name string, cb func([]fs.DirEntry, error)) {
	Do(f.r, func() ([]fs.DirEntry, error) { return os.ReadDir(name) }, cb)
}

// =============================================================================
// 权限、属主、时间
// =============================================================================

// Chmod 修改权限（跟随符号链接）。
func (f *FS) Chmod(name string, mode fs.FileMode, cb func(error)) {
	doErr(f.r, func() error { return os.Chmod(name, mode) }, cb)
}

// Fchmod 修改已打开文件的权限。
func (f *FS) Fchmod(file *os.File, mode fs.FileMode, cb func(error)) {
	doErr(f.r, func() error { return file.Chmod(mode) }, cb)
}

// Lchmod 修改符号链接本身的权限。不支持的平台（包括 Linux）回调错误。
func (f *FS) Lchmod(name string, mode fs.FileMode, cb func(error)) {
	doErr(f.r, func() error { return lchmod(name, mode) }, cb)
}

// Chown 修改属主（跟随符号链接）。
func (f *FS) Chown(name string, uid, gid int, cb func(error)) {
	doErr(f.r, func() error { return os.Chown(name, uid, gid) }, cb)
}

// Fchown 修改已打开文件的属主。
func (f *FS) Fchown(file *os.File, uid, gid int, cb func(error)) {
	doErr(f.r, func() error { return file.Chown(uid, gid) }, cb)
}

// Lchown 修改符号链接本身的属主。
func (f *FS) Lchown(name string, uid, gid int, cb func(error)) {
	doErr(f.r, func() error { return os.Lchown(name, uid, gid) }, cb)
}

// Utimes 修改访问与修改时间。
func (f *FS) Utimes(name string, atime, mtime time.Time, cb func(error)) {
	doErr(f.r, func() error { return os.Chtimes(name, atime, mtime) }, cb)
}

// Futimes 修改已打开文件的访问与修改时间。
func (f *FS) Futimes(file *os.File, atime, mtime time.Time, cb func(error)) {
	doErr(f.r, func() error { return futimes(file, atime, mtime) }, cb)
}

// Truncate 截断文件到 size 字节。
func (f *FS) Truncate(name string, size int64, cb func(error)) {
	doErr(f.r, func() error { return os.Truncate(name, size) }, cb)
}

// Ftruncate 截断已打开的文件。
func (f *FS) Ftruncate(file *os.File, size int64, cb func(error)) {
	doErr(f.r, func() error { return file.Truncate(size) }, cb)
}

// =============================================================================
// 文件描述符 I/O
// =============================================================================

// Open 打开文件。
func (f *FS) Open(name string, flag int, perm fs.FileMode, cb func(*os.File, error)) {
	Do(f.r, func() (*os.File, error) { return os.OpenFile(name, flag, perm) }, cb)
}

// Close 关闭文件。
func (f *FS) Close(file *os.File, cb func(error)) {
	doErr(f.r, file.Close, cb)
}

// Fsync 将文件内容刷到存储。
func (f *FS) Fsync(file *os.File, cb func(error)) {
	doErr(f.r, file.Sync, cb)
}

// Read 读取到 buf。off >= 0 时从该偏移读取（不移动文件位置），否则从当前位置读取。
// 读到文件末尾时回调 (0, nil)。
func (f *FS) Read(file *os.File, buf []byte, off int64, cb func(int, error)) {
	Do(f.r, func() (int, error) {
		var n int
		var err error
		if off >= 0 {
			n, err = file.ReadAt(buf, off)
		} else {
			n, err = file.Read(buf)
		}
		if errors.Is(err, io.EOF) {
			err = nil
		}
		return n, err
	}, cb)
}

// Write 写入 data。off >= 0 时写到该偏移，否则写到当前位置。
func (f *FS) Write(file *os.File, data []byte, off int64, cb func(int, error)) {
	Do(f.r, func() (int, error) {
		if off >= 0 {
			return file.WriteAt(data, off)
		}
		return file.Write(data)
	}, cb)
}

// =============================================================================
// 整体读写
// =============================================================================

// ReadFile 读取整个文件。
func (f *FS) ReadFile(name string, cb func([]byte, error)) {
	Do(f.r, func() ([]byte, error) { return os.ReadFile(name) }, cb)
}

// WriteFile 写入整个文件，文件存在时截断。
func (f *FS) WriteFile(name string, data []byte, perm fs.FileMode, cb func(error)) {
	doErr(f.r, func() error { return os.WriteFile(name, data, perm) }, cb)
}

// AppendFile 追加到文件末尾，文件不存在时创建。
func (f *FS) AppendFile(name string, data []byte, perm fs.FileMode, cb func(error)) {
	doErr(f.r, func() error {
		file, err := os.OpenFile(name, os.O_WRONLY|os.O_APPEND|os.O_CREATE, perm)
		if err != nil {
			return err
		}
		_, werr := file.Write(data)
		return errors.Join(werr, file.Close())
	}, cb)
}
