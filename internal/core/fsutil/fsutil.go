// Package fsutil holds small filesystem helpers shared by the cache and
// installer: tree copies, atomic writes, and name sanitization.
package fsutil

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// copyExcluded are entries never copied into cache slots or provider trees.
var copyExcluded = map[string]bool{
	".git": true,
}

var slugRegexp = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// Slug normalizes an identifier for use as a directory name.
func Slug(name string) string {
	name = slugRegexp.ReplaceAllString(name, "_")
	name = strings.Trim(name, "-._")
	if len(name) > 255 {
		name = name[:255]
	}
	if name == "" {
		name = "unnamed"
	}
	return name
}

// CopyTree copies the contents of src into dst, creating dst if needed.
// Version-control metadata is excluded.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if copyExcluded[d.Name()] {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dstPath := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(dstPath, 0o755)
		}
		return CopyFile(path, dstPath)
	})
}

// CopyFile copies a single file, preserving its mode.
func CopyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = srcFile.Close() }()

	info, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer func() { _ = dstFile.Close() }()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

// WriteAtomic writes data to path via a temp file and rename, so a crash
// mid-write cannot leave a truncated file. Parent directories are created.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// PathExists reports whether path exists, without following symlinks.
func PathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
