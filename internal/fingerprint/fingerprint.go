// Package fingerprint computes the per-language input hash that decides
// whether a previously cached selection/test-discovery result can be
// reused. A changed fingerprint means the toolchain or dependency
// manifests moved since the cache entry was written, so it must be
// recomputed rather than trusted stale.
package fingerprint

import (
	"crypto/sha1" //nolint:gosec // spec names SHA-1 explicitly for this hash, not a security boundary.
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Language selects which manifest files feed the fingerprint.
type Language string

// Supported fingerprint languages.
const (
	LanguageRust   Language = "rust"
	LanguageJS     Language = "js"
	LanguagePython Language = "python"
)

// jsLockfiles are checked in order; the first one present is used.
var jsLockfiles = []string{"package-lock.json", "yarn.lock", "pnpm-lock.yaml"}

// pythonLockfiles are checked in order; the first one present is used.
var pythonLockfiles = []string{"poetry.lock", "Pipfile.lock", "requirements.txt"}

// Compute hashes the language-specific manifest bytes, a toolchain marker
// string, and the sorted selection args into one stable hex digest. The
// digest changes whenever any manifest, the toolchain, or the requested
// selection changes, and is otherwise deterministic across runs.
func Compute(language Language, repoRoot, toolchainMarker string, selectionArgs []string) (string, error) {
	h := sha1.New() //nolint:gosec // see package doc.

	h.Write([]byte(toolchainMarker))
	h.Write([]byte{0})

	manifests, err := manifestFiles(language, repoRoot)
	if err != nil {
		return "", err
	}

	for _, name := range manifests {
		data, readErr := os.ReadFile(filepath.Join(repoRoot, name))
		if readErr != nil {
			if os.IsNotExist(readErr) {
				continue
			}

			return "", fmt.Errorf("fingerprint: read %s: %w", name, readErr)
		}

		h.Write(data)
		h.Write([]byte{0})
	}

	sorted := append([]string(nil), selectionArgs...)
	sort.Strings(sorted)

	for _, arg := range sorted {
		h.Write([]byte(arg))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// manifestFiles returns the manifest filenames (relative to repoRoot) that
// contribute to language's fingerprint, in a fixed, stable order.
func manifestFiles(language Language, repoRoot string) ([]string, error) {
	switch language {
	case LanguageRust:
		return []string{"Cargo.lock", "Cargo.toml"}, nil
	case LanguageJS:
		files := []string{"package.json"}

		lock, err := firstExisting(repoRoot, jsLockfiles)
		if err != nil {
			return nil, err
		}

		if lock != "" {
			files = append(files, lock)
		}

		return files, nil
	case LanguagePython:
		lock, err := firstExisting(repoRoot, pythonLockfiles)
		if err != nil {
			return nil, err
		}

		if lock == "" {
			return nil, nil
		}

		return []string{lock}, nil
	default:
		return nil, fmt.Errorf("fingerprint: unknown language %q", language)
	}
}

// firstExisting returns the first of candidates that exists under root, or
// "" if none do.
func firstExisting(root string, candidates []string) (string, error) {
	for _, name := range candidates {
		_, err := os.Stat(filepath.Join(root, name))
		if err == nil {
			return name, nil
		}

		if !os.IsNotExist(err) {
			return "", fmt.Errorf("fingerprint: stat %s: %w", name, err)
		}
	}

	return "", nil
}

// RepoKey returns a stable 12-character hex identifier for repoRoot: the
// first 12 hex digits of the SHA-1 of its absolute POSIX path.
func RepoKey(repoRoot string) (string, error) {
	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		return "", fmt.Errorf("fingerprint: canonicalize repo root: %w", err)
	}

	h := sha1.New() //nolint:gosec // see package doc.
	h.Write([]byte(filepath.ToSlash(abs)))

	return hex.EncodeToString(h.Sum(nil))[:12], nil
}
