package s3keep

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/conc/iter"
)

// readLocalTree walks the directory at path and returns the full snapshot
// tree, the node for the target directory itself, and the resolved absolute
// path. The full tree carries a synthetic single-child chain for every path
// segment above the target so the subtree sits at the same depth as a remote
// tree rooted the same way.
//
// The target directory is created if it does not exist yet, so a restore
// into a fresh location can build its (empty) local tree first.
func readLocalTree(path string, follow bool, workers int) (full, sub *Node, abs string, err error) {
	abs, err = filepath.Abs(path)
	if err != nil {
		return nil, nil, "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, nil, "", fmt.Errorf("create %s: %w", abs, err)
	}

	segs := strings.Split(abs, string(os.PathSeparator))
	full = newNode()
	curr := full
	for _, seg := range segs[:len(segs)-1] {
		curr = curr.child(seg)
	}

	var seen map[string]struct{}
	if follow {
		seen = make(map[string]struct{})
	}

	if err := readDirLevel(abs, segs[len(segs)-1], curr, follow, workers, seen); err != nil {
		return nil, nil, "", err
	}
	return full, curr.Dirs[segs[len(segs)-1]], abs, nil
}

// readDirLevel reads one directory level into a fresh node stored under
// parent. Subdirectories recurse; regular files are checksummed on a bounded
// worker pool. Symlinked directories are skipped unless follow is set;
// symlinked files are read through either way.
func readDirLevel(fullPath, name string, parent *Node, follow bool, workers int, seen map[string]struct{}) error {
	if follow {
		resolved, err := filepath.EvalSymlinks(fullPath)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", fullPath, err)
		}
		// seen holds the resolved directories on the current traversal path
		// only, so two siblings resolving to the same target are fine while a
		// link back to an ancestor is not.
		if _, ok := seen[resolved]; ok {
			return fmt.Errorf("%w: %s", ErrSymlinkCycle, fullPath)
		}
		seen[resolved] = struct{}{}
		defer delete(seen, resolved)
	}

	curr := newNode()
	parent.Dirs[name] = curr

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", fullPath, err)
	}

	var files []string
	for _, entry := range entries {
		switch {
		case entry.IsDir():
			if err := readDirLevel(filepath.Join(fullPath, entry.Name()), entry.Name(), curr, follow, workers, seen); err != nil {
				return err
			}
		case entry.Type()&fs.ModeSymlink != 0:
			info, err := os.Stat(filepath.Join(fullPath, entry.Name()))
			if err != nil {
				return fmt.Errorf("stat %s: %w", filepath.Join(fullPath, entry.Name()), err)
			}
			if info.IsDir() {
				if follow {
					if err := readDirLevel(filepath.Join(fullPath, entry.Name()), entry.Name(), curr, follow, workers, seen); err != nil {
						return err
					}
				}
			} else if info.Mode().IsRegular() {
				files = append(files, entry.Name())
			}
		case entry.Type().IsRegular():
			files = append(files, entry.Name())
		}
	}

	if len(files) == 0 {
		return nil
	}

	mapper := iter.Mapper[string, string]{MaxGoroutines: workers}
	sums, err := mapper.MapErr(files, func(name *string) (string, error) {
		return hashFile(filepath.Join(fullPath, *name))
	})
	if err != nil {
		return err
	}
	for i, name := range files {
		curr.Files[name] = sums[i]
	}
	return nil
}

// hashFile computes the streaming SHA-512 of a file's contents.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha512.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
