package cache_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headlamp-run/headlamp/internal/cache"
)

func TestKey_IsDeterministic(t *testing.T) {
	t.Parallel()

	a := cache.Key("repo123", "fp-a", "fp-b")
	b := cache.Key("repo123", "fp-a", "fp-b")
	assert.Equal(t, a, b)
}

func TestKey_DiffersOnDifferentInputs(t *testing.T) {
	t.Parallel()

	a := cache.Key("repo123", "fp-a")
	b := cache.Key("repo123", "fp-b")
	assert.NotEqual(t, a, b)
}

type discoveryResult struct {
	Tests []string `json:"tests"`
}

func TestStore_PutThenGet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := cache.NewStore[discoveryResult](dir)
	require.NoError(t, err)

	key := cache.Key("repo123", "fp-a")
	want := discoveryResult{Tests: []string{"a_test.ts", "b_test.ts"}}

	require.NoError(t, store.Put(key, want))

	got, ok, err := store.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestStore_GetMissIsNotAnError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := cache.NewStore[discoveryResult](dir)
	require.NoError(t, err)

	_, ok, err := store.Get("does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SurvivesHotLayerEviction(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := cache.NewStore[discoveryResult](dir)
	require.NoError(t, err)

	key := cache.Key("repo123", "fp-a")
	want := discoveryResult{Tests: []string{"only.test.ts"}}
	require.NoError(t, store.Put(key, want))

	// A fresh Store over the same directory has a cold hot layer, so this
	// exercises the on-disk fallback path exclusively.
	reopened, err := cache.NewStore[discoveryResult](dir)
	require.NoError(t, err)

	got, ok, err := reopened.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestRelevantTests_RoundTrip(t *testing.T) {
	t.Parallel()

	repoDir := filepath.Join(t.TempDir(), "repo-key")

	loaded, err := cache.LoadRelevantTests(repoDir)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	key := cache.CompositeKey("deadbeef", "repo-key")
	want := cache.RelevantTests{key: {"src/a.test.ts", "src/b.test.ts"}}

	require.NoError(t, cache.SaveRelevantTests(repoDir, want))

	loaded, err = cache.LoadRelevantTests(repoDir)
	require.NoError(t, err)
	assert.Equal(t, want, loaded)
}

func TestPytestCollect_RoundTrip(t *testing.T) {
	t.Parallel()

	repoDir := filepath.Join(t.TempDir(), "repo-key")

	key := cache.CompositeKey("deadbeef", "repo-key")
	want := cache.PytestCollect{key: {"tests/test_a.py"}}

	require.NoError(t, cache.SavePytestCollect(repoDir, want))

	loaded, err := cache.LoadPytestCollect(repoDir)
	require.NoError(t, err)
	assert.Equal(t, want, loaded)
}

func TestRustBinaryIndex_RoundTrip(t *testing.T) {
	t.Parallel()

	repoDir := filepath.Join(t.TempDir(), "repo-key")

	want := cache.RustBinaryIndex{
		RepoRoot:    "/repo",
		Fingerprint: "abc123",
		Binaries: []cache.RustBinary{
			{Executable: "target/debug/deps/lib-abc", SuiteSourcePath: "src/lib.rs"},
		},
	}

	require.NoError(t, cache.SaveRustBinaryIndex(repoDir, want))

	loaded, err := cache.LoadRustBinaryIndex(repoDir)
	require.NoError(t, err)
	assert.Equal(t, want, loaded)
}

func TestLoadRustBinaryIndex_MissingReturnsZeroValue(t *testing.T) {
	t.Parallel()

	repoDir := filepath.Join(t.TempDir(), "repo-key")

	loaded, err := cache.LoadRustBinaryIndex(repoDir)
	require.NoError(t, err)
	assert.Equal(t, cache.RustBinaryIndex{}, loaded)
}

func TestRoot_HonorsEnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HEADLAMP_CACHE_DIR", dir)

	root, err := cache.Root()
	require.NoError(t, err)
	assert.Equal(t, dir, root)
}
