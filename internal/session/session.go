// Package session manages the single scratch directory a headlamp
// invocation owns for the lifetime of one process: cache-target overrides,
// coverage passthrough files, and a Rust cargo-target override. Exactly one
// RunSession exists per invocation; its path is derived from the process id
// plus a random, monotonically-sortable suffix so concurrent invocations
// against the same repo never collide.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oklog/ulid/v2"
)

// RunSession owns the per-invocation scratch directory under the system
// temp root. Close removes the directory tree unless keepArtifacts was set
// at construction, matching the CLI's --keep-artifacts flag.
type RunSession struct {
	root          string
	keepArtifacts bool

	mu      sync.Mutex
	subdirs map[string]string
}

// New creates a RunSession rooted at <tmp>/headlamp/<pid>-<ulid>. The
// directory is created eagerly so callers can rely on it existing.
func New(keepArtifacts bool) (*RunSession, error) {
	suffix := ulid.Make().String()
	root := filepath.Join(os.TempDir(), "headlamp", fmt.Sprintf("%d-%s", os.Getpid(), suffix))

	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("session: create run directory: %w", err)
	}

	return &RunSession{
		root:          root,
		keepArtifacts: keepArtifacts,
		subdirs:       make(map[string]string),
	}, nil
}

// Root returns the session's top-level directory.
func (s *RunSession) Root() string {
	return s.root
}

// KeepArtifacts reports whether Close will preserve the session directory.
func (s *RunSession) KeepArtifacts() bool {
	return s.keepArtifacts
}

// Subdir lazily creates and returns <root>/<name>, reusing the same path on
// repeated calls with the same name. Typical names are "cache-target",
// "coverage", and "cargo-target".
func (s *RunSession) Subdir(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir, ok := s.subdirs[name]; ok {
		return dir, nil
	}

	dir := filepath.Join(s.root, name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("session: create %s subdirectory: %w", name, err)
	}

	s.subdirs[name] = dir

	return dir, nil
}

// Close removes the session directory tree unless keepArtifacts is set, in
// which case it is left on disk for post-mortem inspection. Safe to call on
// a nil receiver so deferred cleanup is unconditional at call sites.
func (s *RunSession) Close() error {
	if s == nil {
		return nil
	}

	if s.keepArtifacts {
		return nil
	}

	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("session: remove run directory: %w", err)
	}

	return nil
}
