// Package watch implements the poll-based watch loop: an ignore-aware
// walk of the repository every 800ms, hashed into a single fingerprint,
// triggering a rerun whenever that fingerprint changes.
package watch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ignoredDirs are skipped wholesale during the walk, matching the watch
// loop's documented ignore set.
var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
	".yalc":        true,
}

// FileStat is the {rel_path, size, mtime_ns} triple the watch fingerprint
// hashes over.
type FileStat struct {
	RelPath string
	Size    int64
	ModTime int64
}

// Walk collects a FileStat for every regular file under root, skipping
// ignoredDirs entirely (filepath.SkipDir, not just filtered post hoc) and
// tolerating permission/not-exist errors on individual entries the same
// way a best-effort background walk should.
func Walk(root string) ([]FileStat, error) {
	var stats []FileStat

	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, walkErr error) error {
		skip, err := shouldSkip(path, entry, walkErr)
		if skip || err != nil {
			return err
		}

		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) {
				return nil
			}

			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		stats = append(stats, FileStat{
			RelPath: filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime().UnixNano(),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func shouldSkip(path string, entry os.DirEntry, walkErr error) (bool, error) {
	if walkErr != nil {
		if errors.Is(walkErr, fs.ErrPermission) || errors.Is(walkErr, fs.ErrNotExist) {
			if entry != nil && entry.IsDir() {
				return true, filepath.SkipDir
			}

			return true, nil
		}

		return false, walkErr
	}

	if entry == nil {
		return true, nil
	}

	if entry.IsDir() {
		if ignoredDirs[entry.Name()] {
			return true, filepath.SkipDir
		}

		return true, nil
	}

	_ = path

	return false, nil
}
