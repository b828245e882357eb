package backend

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rookery-dev/rookery/internal/core/resource"
)

// found is one manifest directory discovered by scanTree.
type found struct {
	dir         string // directory containing the marker file
	name        string
	description string
}

// scanTree walks root to a bounded depth looking for directories holding the
// kind's marker file, and reports each one through emit. Directories whose
// marker fails to parse are skipped rather than failing the whole scan.
// emit returning false stops the walk early.
func scanTree(root string, kind resource.Kind, maxDepth int, emit func(found) bool) error {
	marker := kind.MarkerFile()
	stopped := false

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, a missing root is the caller's error.
			if path == root {
				return err
			}
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}

		name := d.Name()
		if path != root && (name == ".git" || strings.HasPrefix(name, "_") || name == "node_modules") {
			return fs.SkipDir
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." && strings.Count(rel, string(filepath.Separator))+1 > maxDepth {
			return fs.SkipDir
		}

		markerPath := filepath.Join(path, marker)
		resName, resDesc, parseErr := resource.ParseAnyManifest(kind, markerPath)
		if parseErr != nil {
			return nil // not a resource dir, or malformed: keep walking
		}

		if !emit(found{dir: path, name: resName, description: resDesc}) {
			stopped = true
			return fs.SkipAll
		}
		// A resource directory does not nest further resources of the same kind.
		return fs.SkipDir
	})
	if stopped {
		return nil
	}
	return err
}
