package builder

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vovakirdan/fmlab/internal/sfm"
)

// dataDir is where mods keep their aircraft definitions.
const dataDir = "Database"

// FindDataFile returns the path, relative to modRoot, of the single
// recognised aircraft-definition file: a Database/*.lua file holding an
// SFM_Data block.
func FindDataFile(modRoot string) (string, error) {
	pattern := filepath.Join(modRoot, dataDir, "*.lua")
	candidates, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("builder: bad glob %s: %w", pattern, err)
	}
	sort.Strings(candidates)

	var found []string
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("builder: cannot read %s: %w", path, err)
		}
		if sfm.IsDataFile(string(data)) {
			rel, _ := filepath.Rel(modRoot, path)
			found = append(found, rel)
		}
	}

	switch len(found) {
	case 0:
		return "", &BuildError{Kind: KindDataFileNotFound, Path: filepath.Join(modRoot, dataDir)}
	case 1:
		return found[0], nil
	default:
		return "", &BuildError{
			Kind: KindDataFileAmbiguous,
			Path: modRoot,
			Err:  fmt.Errorf("candidates: %s", strings.Join(found, ", ")),
		}
	}
}

// copyTree recursively copies src into dst, which must not exist.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// replaceTree copies src to dst, removing dst first.
func replaceTree(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return copyTree(src, dst)
}

// moveTree renames src to dst, falling back to copy and delete when the
// two paths are on different filesystems.
func moveTree(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}
	if err := copyTree(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
