package gitscan_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headlamp-run/headlamp/internal/gitscan"
	"github.com/headlamp-run/headlamp/pkg/gitlib"
)

// testRepo is a minimal real-libgit2 fixture, mirroring the teacher's
// pkg/gitlib test helper so gitscan is exercised against an actual
// repository rather than a mock.
type testRepo struct {
	t      *testing.T
	path   string
	native *git2go.Repository
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return &testRepo{t: t, path: dir, native: repo}
}

func (tr *testRepo) writeFile(name, content string) {
	tr.t.Helper()

	path := filepath.Join(tr.path, name)
	require.NoError(tr.t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(tr.t, os.WriteFile(path, []byte(content), 0o600))
}

func (tr *testRepo) stage(names ...string) {
	tr.t.Helper()

	index, err := tr.native.Index()
	require.NoError(tr.t, err)
	defer index.Free()

	for _, name := range names {
		require.NoError(tr.t, index.AddByPath(name))
	}

	require.NoError(tr.t, index.Write())
}

func (tr *testRepo) commitAll(message string) gitlib.Hash {
	tr.t.Helper()

	index, err := tr.native.Index()
	require.NoError(tr.t, err)
	defer index.Free()

	require.NoError(tr.t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(tr.t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(tr.t, err)

	tree, err := tr.native.LookupTree(treeID)
	require.NoError(tr.t, err)
	defer tree.Free()

	sig := &git2go.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()}

	var parents []*git2go.Commit

	head, headErr := tr.native.Head()
	if headErr == nil {
		headCommit, lookupErr := tr.native.LookupCommit(head.Target())
		require.NoError(tr.t, lookupErr)

		parents = append(parents, headCommit)

		head.Free()
	}

	oid, err := tr.native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(tr.t, err)

	for _, parent := range parents {
		parent.Free()
	}

	return gitlib.HashFromOid(oid)
}

func (tr *testRepo) tag(name string) {
	tr.t.Helper()

	head, err := tr.native.Head()
	require.NoError(tr.t, err)
	defer head.Free()

	commit, err := tr.native.LookupCommit(head.Target())
	require.NoError(tr.t, err)
	defer commit.Free()

	_, err = tr.native.Tags.CreateLightweight(name, commit, false)
	require.NoError(tr.t, err)
}

func (tr *testRepo) open() *gitlib.Repository {
	tr.t.Helper()

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(tr.t, err)
	tr.t.Cleanup(repo.Free)

	return repo
}

func TestChangedFiles_ModeNone_ReturnsEmptyWithoutTouchingRepo(t *testing.T) {
	t.Parallel()

	files, err := gitscan.ChangedFiles(nil, gitscan.ModeNone)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestChangedFiles_ModeUnstaged(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("a.go", "package a")
	tr.commitAll("initial")

	tr.writeFile("a.go", "package a\n// changed")

	repo := tr.open()

	files, err := gitscan.ChangedFiles(repo, gitscan.ModeUnstaged)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, files)
}

func TestChangedFiles_ModeStaged(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("a.go", "package a")
	tr.commitAll("initial")

	tr.writeFile("b.go", "package a\n\nfunc B() {}")
	tr.stage("b.go")

	repo := tr.open()

	files, err := gitscan.ChangedFiles(repo, gitscan.ModeStaged)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.go"}, files)
}

func TestChangedFiles_ModeAll_IncludesStagedAndUnstaged(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("a.go", "package a")
	tr.commitAll("initial")

	tr.writeFile("a.go", "package a\n// unstaged edit")
	tr.writeFile("b.go", "package a\n\nfunc B() {}")
	tr.stage("b.go")

	repo := tr.open()

	files, err := gitscan.ChangedFiles(repo, gitscan.ModeAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go"}, files)
}

func TestChangedFiles_ModeLastCommit(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("a.go", "package a")
	tr.commitAll("initial")

	tr.writeFile("b.go", "package a\n\nfunc B() {}")
	tr.commitAll("add b")

	repo := tr.open()

	files, err := gitscan.ChangedFiles(repo, gitscan.ModeLastCommit)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.go"}, files)
}

func TestChangedFiles_ModeLastCommit_InitialCommitIsAllInsertions(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("a.go", "package a")
	tr.writeFile("b.go", "package a\n\nfunc B() {}")
	tr.commitAll("initial")

	repo := tr.open()

	files, err := gitscan.ChangedFiles(repo, gitscan.ModeLastCommit)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go"}, files)
}

func TestChangedFiles_ModeLastRelease(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("a.go", "package a")
	tr.commitAll("initial")
	tr.tag("v1.0.0")

	tr.writeFile("b.go", "package a\n\nfunc B() {}")
	tr.commitAll("add b")

	repo := tr.open()

	files, err := gitscan.ChangedFiles(repo, gitscan.ModeLastRelease)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.go"}, files)
}

func TestChangedFiles_ModeLastRelease_NoTagsErrors(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("a.go", "package a")
	tr.commitAll("initial")

	repo := tr.open()

	_, err := gitscan.ChangedFiles(repo, gitscan.ModeLastRelease)
	require.ErrorIs(t, err, gitscan.ErrNoReleaseTag)
}

func TestChangedFiles_ModeBranch_NoBaseBranchErrors(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("a.go", "package a")
	tr.commitAll("initial")

	repo := tr.open()

	_, err := gitscan.ChangedFiles(repo, gitscan.ModeBranch)
	require.ErrorIs(t, err, gitscan.ErrNoBaseBranch)
}

func TestChangedFiles_UnknownModeErrors(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("a.go", "package a")
	tr.commitAll("initial")

	repo := tr.open()

	_, err := gitscan.ChangedFiles(repo, gitscan.Mode("bogus"))
	require.Error(t, err)
}
