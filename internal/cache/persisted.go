package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/headlamp-run/headlamp/pkg/persist"
)

const (
	relevantTestsBasename   = "relevant-tests"
	pytestCollectBasename   = "pytest-collect"
	rustBinaryIndexBasename = "binary_index"
	rustSubdir              = "rust"
)

// CompositeKey builds the "<head>::<repoKey>" key used by the
// relevant-tests and pytest-collect maps, so a cache entry is invalidated
// whenever HEAD moves even if the repo key is unchanged.
func CompositeKey(headHash, repoKey string) string {
	return headHash + "::" + repoKey
}

// RelevantTests is the on-disk shape of relevant-tests.json: repo-relative
// test paths selected for a given HEAD commit, keyed by CompositeKey.
type RelevantTests map[string][]string

// LoadRelevantTests reads relevant-tests.json from the repo's cache
// directory, returning an empty map if it does not exist yet.
func LoadRelevantTests(repoDir string) (RelevantTests, error) {
	out := RelevantTests{}

	err := persist.LoadState(repoDir, relevantTestsBasename, persist.NewJSONCodec(), &out)
	if err != nil {
		if isNotExist(err) {
			return RelevantTests{}, nil
		}

		return nil, fmt.Errorf("cache: load relevant-tests.json: %w", err)
	}

	return out, nil
}

// SaveRelevantTests atomically writes relevant-tests.json, creating repoDir
// if it does not exist yet.
func SaveRelevantTests(repoDir string, tests RelevantTests) error {
	if err := os.MkdirAll(repoDir, 0o750); err != nil {
		return fmt.Errorf("cache: create repo cache directory: %w", err)
	}

	if err := persist.SaveState(repoDir, relevantTestsBasename, persist.NewJSONCodec(), tests); err != nil {
		return fmt.Errorf("cache: save relevant-tests.json: %w", err)
	}

	return nil
}

// PytestCollect is the on-disk shape of pytest-collect.json: the pytest
// analog of RelevantTests, same CompositeKey scheme.
type PytestCollect map[string][]string

// LoadPytestCollect reads pytest-collect.json, returning an empty map if
// it does not exist yet.
func LoadPytestCollect(repoDir string) (PytestCollect, error) {
	out := PytestCollect{}

	err := persist.LoadState(repoDir, pytestCollectBasename, persist.NewJSONCodec(), &out)
	if err != nil {
		if isNotExist(err) {
			return PytestCollect{}, nil
		}

		return nil, fmt.Errorf("cache: load pytest-collect.json: %w", err)
	}

	return out, nil
}

// SavePytestCollect atomically writes pytest-collect.json, creating repoDir
// if it does not exist yet.
func SavePytestCollect(repoDir string, collect PytestCollect) error {
	if err := os.MkdirAll(repoDir, 0o750); err != nil {
		return fmt.Errorf("cache: create repo cache directory: %w", err)
	}

	if err := persist.SaveState(repoDir, pytestCollectBasename, persist.NewJSONCodec(), collect); err != nil {
		return fmt.Errorf("cache: save pytest-collect.json: %w", err)
	}

	return nil
}

// RustBinary is one entry in the Rust test-binary index: an already-built
// nextest/cargo-test executable and the suite source file it corresponds to.
type RustBinary struct {
	Executable      string `json:"executable"`
	SuiteSourcePath string `json:"suiteSourcePath"`
}

// RustBinaryIndex is the on-disk shape of rust/binary_index.json: a cache
// of built test binaries for a given repo/fingerprint, so a subsequent run
// can skip a redundant cargo build.
type RustBinaryIndex struct {
	RepoRoot    string       `json:"repoRoot"`
	Fingerprint string       `json:"fingerprint"`
	Binaries    []RustBinary `json:"binaries"`
}

// LoadRustBinaryIndex reads rust/binary_index.json, returning the zero
// value if it does not exist yet.
func LoadRustBinaryIndex(repoDir string) (RustBinaryIndex, error) {
	var out RustBinaryIndex

	dir := filepath.Join(repoDir, rustSubdir)

	err := persist.LoadState(dir, rustBinaryIndexBasename, persist.NewJSONCodec(), &out)
	if err != nil {
		if isNotExist(err) {
			return RustBinaryIndex{}, nil
		}

		return RustBinaryIndex{}, fmt.Errorf("cache: load rust/binary_index.json: %w", err)
	}

	return out, nil
}

// SaveRustBinaryIndex atomically writes rust/binary_index.json, creating
// the rust/ subdirectory if needed.
func SaveRustBinaryIndex(repoDir string, index RustBinaryIndex) error {
	dir := filepath.Join(repoDir, rustSubdir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("cache: create rust cache subdirectory: %w", err)
	}

	if err := persist.SaveState(dir, rustBinaryIndexBasename, persist.NewJSONCodec(), index); err != nil {
		return fmt.Errorf("cache: save rust/binary_index.json: %w", err)
	}

	return nil
}

func isNotExist(err error) bool {
	return os.IsNotExist(unwrapPathError(err))
}
