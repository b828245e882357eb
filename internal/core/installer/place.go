package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rookery-dev/rookery/internal/core/fsutil"
	"github.com/rookery-dev/rookery/internal/core/resource"
)

// place materializes cached content at target, either as an independent
// copied snapshot or as a relative symlink into the cache.
func place(contentPath, target string, method Method) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: creating install root: %v", resource.ErrIO, err)
	}

	switch method {
	case MethodCopy:
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("%w: creating %s: %v", resource.ErrIO, target, err)
		}
		if err := fsutil.CopyTree(contentPath, target); err != nil {
			return fmt.Errorf("%w: copying into %s: %v", resource.ErrIO, target, err)
		}
		return nil

	case MethodLink:
		rel, err := filepath.Rel(filepath.Dir(target), contentPath)
		if err != nil {
			// Cache on another volume: fall back to an absolute link target.
			rel = contentPath
		}
		if err := os.Symlink(rel, target); err != nil {
			return fmt.Errorf("%w: linking %s: %v", resource.ErrIO, target, err)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown placement method %q", resource.ErrIO, method)
}

// removePlaced deletes a placed copy or link. Links are removed without
// following them, so the cache copy is untouched.
func removePlaced(target string) error {
	info, err := os.Lstat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: inspecting %s: %v", resource.ErrIO, target, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return fmt.Errorf("%w: removing link %s: %v", resource.ErrIO, target, err)
		}
		return nil
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("%w: removing %s: %v", resource.ErrIO, target, err)
	}
	return nil
}
