package gitlib

import (
	"fmt"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// Repository wraps a libgit2 repository.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Path returns the repository path.
func (r *Repository) Path() string {
	return r.path
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the HEAD reference target.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit: %w", err)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// LookupTree returns the tree with the given hash.
func (r *Repository) LookupTree(hash Hash) (*Tree, error) {
	tree, err := r.repo.LookupTree(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup tree: %w", err)
	}

	return &Tree{tree: tree, repo: r}, nil
}

// Walk creates a new revision walker starting from HEAD.
func (r *Repository) Walk() (*RevWalk, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	return &RevWalk{walk: walk, repo: r}, nil
}

// LogOptions configures the commit log iteration.
type LogOptions struct {
	Since       *time.Time // Only include commits after this time.
	FirstParent bool       // Follow only first parent (git log --first-parent).
}

// Log returns a commit iterator starting from HEAD.
func (r *Repository) Log(opts *LogOptions) (*CommitIter, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	// Start from HEAD.
	headRef, err := r.repo.Head()
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("get HEAD: %w", err)
	}
	defer headRef.Free()

	err = walk.Push(headRef.Target())
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("push HEAD to revwalk: %w", err)
	}

	// Topological order ensures we never diff against a descendant; prevents
	// negative burndown values when branches have different timestamps.
	walk.Sorting(git2go.SortTime | git2go.SortTopological)

	if opts != nil && opts.FirstParent {
		walk.SimplifyFirstParent()
	}

	return &CommitIter{walk: walk, repo: r, since: opts.Since}, nil
}

// DiffTreeToTree computes the diff between two trees.
func (r *Repository) DiffTreeToTree(oldTree, newTree *Tree) (*Diff, error) {
	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	var oldT, newT *git2go.Tree
	if oldTree != nil {
		oldT = oldTree.tree
	}

	if newTree != nil {
		newT = newTree.tree
	}

	diff, err := r.repo.DiffTreeToTree(oldT, newT, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	return &Diff{diff: diff}, nil
}

// DiffTreeToIndex computes the diff between a tree (typically HEAD) and the
// repository's index: the "staged" changes.
func (r *Repository) DiffTreeToIndex(tree *Tree) (*Diff, error) {
	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	var t *git2go.Tree
	if tree != nil {
		t = tree.tree
	}

	idx, err := r.repo.Index()
	if err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}
	defer idx.Free()

	diff, err := r.repo.DiffTreeToIndex(t, idx, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff tree to index: %w", err)
	}

	return &Diff{diff: diff}, nil
}

// DiffIndexToWorkdir computes the diff between the repository's index and
// the working directory: the "unstaged" changes.
func (r *Repository) DiffIndexToWorkdir() (*Diff, error) {
	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	idx, err := r.repo.Index()
	if err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}
	defer idx.Free()

	diff, err := r.repo.DiffIndexToWorkdir(idx, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff index to workdir: %w", err)
	}

	return &Diff{diff: diff}, nil
}

// DiffTreeToWorkdirWithIndex computes the diff between a tree (typically
// HEAD) and the working directory, inclusive of staged changes: the "all
// uncommitted changes" view.
func (r *Repository) DiffTreeToWorkdirWithIndex(tree *Tree) (*Diff, error) {
	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	var t *git2go.Tree
	if tree != nil {
		t = tree.tree
	}

	diff, err := r.repo.DiffTreeToWorkdirWithIndex(t, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff tree to workdir: %w", err)
	}

	return &Diff{diff: diff}, nil
}

// RevparseHash resolves a revision spec (branch name, tag, "HEAD~3", etc.)
// to the hash of the commit it points at.
func (r *Repository) RevparseHash(spec string) (Hash, error) {
	obj, err := r.repo.RevparseSingle(spec)
	if err != nil {
		return Hash{}, fmt.Errorf("revparse %q: %w", spec, err)
	}
	defer obj.Free()

	peeled, err := obj.Peel(git2go.ObjectCommit)
	if err != nil {
		return Hash{}, fmt.Errorf("peel %q to commit: %w", spec, err)
	}
	defer peeled.Free()

	commit, err := peeled.AsCommit()
	if err != nil {
		return Hash{}, fmt.Errorf("cast %q to commit: %w", spec, err)
	}
	defer commit.Free()

	return HashFromOid(commit.Id()), nil
}

// LatestTagHash returns the hash of the commit pointed at by the tag whose
// target commit has the latest committer time, used for
// --changed=lastRelease. Returns ok=false if the repository has no tags.
func (r *Repository) LatestTagHash() (hash Hash, ok bool, err error) {
	names, err := r.repo.Tags.List()
	if err != nil {
		return Hash{}, false, fmt.Errorf("list tags: %w", err)
	}

	var (
		latest     Hash
		latestTime time.Time
		found      bool
	)

	for _, name := range names {
		h, revErr := r.RevparseHash("refs/tags/" + name)
		if revErr != nil {
			continue
		}

		commit, lookupErr := r.LookupCommit(h)
		if lookupErr != nil {
			continue
		}

		committed := commit.Committer().When
		commit.Free()

		if !found || committed.After(latestTime) {
			latest = h
			latestTime = committed
			found = true
		}
	}

	return latest, found, nil
}

// Native returns the underlying libgit2 repository for advanced operations.
func (r *Repository) Native() *git2go.Repository {
	return r.repo
}
