package installer

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rookery-dev/rookery/internal/core/resource"
)

// extractArchive unpacks a packaged resource (tar.gz or zip, detected by
// magic bytes) into dest. A single shared top-level directory is stripped
// so the resource's manifest lands at the root of dest.
func extractArchive(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("%w: opening archive: %v", resource.ErrIO, err)
	}
	defer f.Close()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return fmt.Errorf("%w: reading archive header: %v", resource.ErrIO, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: rewinding archive: %v", resource.ErrIO, err)
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", resource.ErrIO, dest, err)
	}

	switch {
	case magic[0] == 0x1f && magic[1] == 0x8b:
		return extractTarGz(f, dest)
	case magic[0] == 'P' && magic[1] == 'K':
		return extractZip(archivePath, dest)
	}
	return fmt.Errorf("%w: unrecognized archive format", resource.ErrIO)
}

func extractTarGz(r io.Reader, dest string) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("%w: reading gzip stream: %v", resource.ErrIO, err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	var topDir string

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: reading archive: %v", resource.ErrIO, err)
		}

		if topDir == "" {
			if parts := strings.SplitN(header.Name, "/", 2); len(parts) > 1 {
				topDir = parts[0]
			}
		}
		name := strings.TrimPrefix(header.Name, topDir+"/")
		if name == "" || name == topDir {
			continue
		}

		target, err := safeJoin(dest, name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("%w: %v", resource.ErrIO, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("%w: %v", resource.ErrIO, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode).Perm())
			if err != nil {
				return fmt.Errorf("%w: %v", resource.ErrIO, err)
			}
			_, err = io.Copy(out, tr)
			closeErr := out.Close()
			if err != nil {
				return fmt.Errorf("%w: extracting %s: %v", resource.ErrIO, name, err)
			}
			if closeErr != nil {
				return fmt.Errorf("%w: %v", resource.ErrIO, closeErr)
			}
		}
	}
	return nil
}

func extractZip(zipPath, dest string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("%w: opening zip: %v", resource.ErrIO, err)
	}
	defer zr.Close()

	var topDir string
	for _, zf := range zr.File {
		if parts := strings.SplitN(zf.Name, "/", 2); len(parts) > 1 {
			topDir = parts[0]
			break
		}
	}

	for _, zf := range zr.File {
		name := strings.TrimPrefix(zf.Name, topDir+"/")
		if name == "" || name == topDir {
			continue
		}
		target, err := safeJoin(dest, name)
		if err != nil {
			return err
		}

		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("%w: %v", resource.ErrIO, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("%w: %v", resource.ErrIO, err)
		}
		in, err := zf.Open()
		if err != nil {
			return fmt.Errorf("%w: %v", resource.ErrIO, err)
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, zf.Mode().Perm())
		if err != nil {
			in.Close()
			return fmt.Errorf("%w: %v", resource.ErrIO, err)
		}
		_, err = io.Copy(out, in)
		in.Close()
		closeErr := out.Close()
		if err != nil {
			return fmt.Errorf("%w: extracting %s: %v", resource.ErrIO, name, err)
		}
		if closeErr != nil {
			return fmt.Errorf("%w: %v", resource.ErrIO, closeErr)
		}
	}
	return nil
}

// safeJoin joins name under dest, rejecting entries that would escape it.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: archive entry %q escapes extraction root", resource.ErrIO, name)
	}
	return target, nil
}
