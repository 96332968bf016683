// Package cache implements the content-addressed, disk-backed cache shared
// by the selection pipeline's test-discovery step and the Rust nextest
// driver's test-binary index. Entries are keyed by a blake3 digest of the
// repo key plus the fingerprint inputs that can invalidate them, so a
// changed toolchain or lockfile naturally misses rather than serving stale
// data.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/headlamp-run/headlamp/pkg/alg/lru"
	"github.com/headlamp-run/headlamp/pkg/persist"
)

const cacheDirEnvVar = "HEADLAMP_CACHE_DIR"

const defaultHotEntries = 256

// Root resolves the shared user cache root: HEADLAMP_CACHE_DIR if set,
// otherwise the OS user cache directory's "headlamp" subdirectory.
func Root() (string, error) {
	if dir := os.Getenv(cacheDirEnvVar); dir != "" {
		return dir, nil
	}

	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cache: resolve user cache dir: %w", err)
	}

	return filepath.Join(base, "headlamp"), nil
}

// Key hashes repoKey and the given fingerprint inputs into a stable hex
// digest suitable as a cache entry's on-disk basename.
func Key(repoKey string, fingerprintInputs ...string) string {
	h := blake3.New()
	h.Write([]byte(repoKey))
	h.Write([]byte{0})

	for _, in := range fingerprintInputs {
		h.Write([]byte(in))
		h.Write([]byte{0})
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}

// Store is a generic content-addressed cache: a small in-memory LRU hot
// layer in front of LZ4-compressed JSON files on disk, one file per key.
type Store[T any] struct {
	dir   string
	hot   *lru.Cache[string, T]
	codec persist.Codec
}

// NewStore creates a Store rooted at dir (typically Root()/<repo-key>/<name>),
// creating the directory if needed.
func NewStore[T any](dir string) (*Store[T], error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("cache: create store directory: %w", err)
	}

	return &Store[T]{
		dir:   dir,
		hot:   lru.New[string, T](lru.WithMaxEntries[string, T](defaultHotEntries)),
		codec: persist.NewLZ4JSONCodec(),
	}, nil
}

// Get returns the cached value for key, checking the in-memory hot layer
// before falling back to disk. The second return is false on a genuine
// miss (no error); a real I/O or decode failure is returned as an error.
func (s *Store[T]) Get(key string) (T, bool, error) {
	var zero T

	if v, ok := s.hot.Get(key); ok {
		return v, true, nil
	}

	var v T

	err := persist.LoadState(s.dir, key, s.codec, &v)
	if err != nil {
		if os.IsNotExist(unwrapPathError(err)) {
			return zero, false, nil
		}

		return zero, false, fmt.Errorf("cache: load %s: %w", key, err)
	}

	s.hot.Put(key, v)

	return v, true, nil
}

// Put writes value for key to both the hot layer and disk, atomically
// replacing any existing on-disk entry.
func (s *Store[T]) Put(key string, value T) error {
	s.hot.Put(key, value)

	if err := persist.SaveState(s.dir, key, s.codec, value); err != nil {
		return fmt.Errorf("cache: save %s: %w", key, err)
	}

	return nil
}

// unwrapPathError loosens persist's wrapped "open state file" error back to
// something os.IsNotExist can recognize, since persist.LoadState wraps the
// underlying *os.PathError with %w.
func unwrapPathError(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}

		inner := unwrapper.Unwrap()
		if inner == nil {
			return err
		}

		err = inner
	}
}

// RepoDir returns the per-repo cache directory under root, as used by the
// persisted state files in the repo's cache namespace.
func RepoDir(root, repoKey string) string {
	return filepath.Join(root, repoKey)
}

// SanitizeComponent replaces path separators in a cache path component
// (e.g. an analyzer or store name) so it is always safe as a single
// directory segment.
func SanitizeComponent(name string) string {
	return strings.ReplaceAll(name, string(filepath.Separator), "_")
}
