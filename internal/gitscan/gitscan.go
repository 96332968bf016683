// Package gitscan resolves a "changed" mode from the CLI into a concrete
// list of repo-relative file paths, using the trimmed libgit2 wrapper in
// pkg/gitlib. The selection pipeline treats any error from this package as
// a trigger to fall back to changed_mode=none, never as a fatal failure.
package gitscan

import (
	"errors"
	"fmt"
	"sort"

	"github.com/headlamp-run/headlamp/pkg/gitlib"
)

// Mode is one of the --changed values the CLI accepts.
type Mode string

// Supported modes.
const (
	ModeAll         Mode = "all"
	ModeStaged      Mode = "staged"
	ModeUnstaged    Mode = "unstaged"
	ModeBranch      Mode = "branch"
	ModeLastCommit  Mode = "lastCommit"
	ModeLastRelease Mode = "lastRelease"
	ModeNone        Mode = "none"
)

// ErrNoBaseBranch is returned for ModeBranch when none of the candidate
// base branch names resolve in the repository.
var ErrNoBaseBranch = errors.New("gitscan: no base branch found")

// ErrNoReleaseTag is returned for ModeLastRelease when the repository has
// no tags at all.
var ErrNoReleaseTag = errors.New("gitscan: no release tag found")

// baseBranchCandidates are tried in order for ModeBranch, since the CLI
// surface takes no explicit branch name argument (§6: --changed takes only
// the mode enum).
var baseBranchCandidates = []string{"main", "master", "trunk"}

// ChangedFiles returns the repo-relative paths changed under mode. ModeNone
// always returns an empty slice without touching the repository.
func ChangedFiles(repo *gitlib.Repository, mode Mode) ([]string, error) {
	switch mode {
	case ModeNone:
		return nil, nil
	case ModeUnstaged:
		diff, err := repo.DiffIndexToWorkdir()
		if err != nil {
			return nil, fmt.Errorf("gitscan: diff index to workdir: %w", err)
		}
		defer diff.Free()

		return diffPaths(diff)
	case ModeStaged:
		headTree, err := headTree(repo)
		if err != nil {
			return nil, err
		}
		defer headTree.Free()

		diff, err := repo.DiffTreeToIndex(headTree)
		if err != nil {
			return nil, fmt.Errorf("gitscan: diff tree to index: %w", err)
		}
		defer diff.Free()

		return diffPaths(diff)
	case ModeAll:
		headTree, err := headTree(repo)
		if err != nil {
			return nil, err
		}
		defer headTree.Free()

		diff, err := repo.DiffTreeToWorkdirWithIndex(headTree)
		if err != nil {
			return nil, fmt.Errorf("gitscan: diff tree to workdir: %w", err)
		}
		defer diff.Free()

		return diffPaths(diff)
	case ModeLastCommit:
		return lastCommitChanges(repo)
	case ModeBranch:
		return baseRefChanges(repo)
	case ModeLastRelease:
		return lastReleaseChanges(repo)
	default:
		return nil, fmt.Errorf("gitscan: unknown changed mode %q", mode)
	}
}

func headTree(repo *gitlib.Repository) (*gitlib.Tree, error) {
	headHash, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("gitscan: resolve HEAD: %w", err)
	}

	commit, err := repo.LookupCommit(headHash)
	if err != nil {
		return nil, fmt.Errorf("gitscan: lookup HEAD commit: %w", err)
	}
	defer commit.Free()

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("gitscan: resolve HEAD tree: %w", err)
	}

	return tree, nil
}

func lastCommitChanges(repo *gitlib.Repository) ([]string, error) {
	headHash, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("gitscan: resolve HEAD: %w", err)
	}

	head, err := repo.LookupCommit(headHash)
	if err != nil {
		return nil, fmt.Errorf("gitscan: lookup HEAD commit: %w", err)
	}
	defer head.Free()

	newTree, err := head.Tree()
	if err != nil {
		return nil, fmt.Errorf("gitscan: resolve HEAD tree: %w", err)
	}
	defer newTree.Free()

	var oldTree *gitlib.Tree

	if head.NumParents() > 0 {
		parent, parentErr := head.Parent(0)
		if parentErr != nil {
			return nil, fmt.Errorf("gitscan: resolve parent commit: %w", parentErr)
		}
		defer parent.Free()

		oldTree, err = parent.Tree()
		if err != nil {
			return nil, fmt.Errorf("gitscan: resolve parent tree: %w", err)
		}
		defer oldTree.Free()
	}

	changes, err := gitlib.TreeDiff(repo, oldTree, newTree)
	if err != nil {
		return nil, fmt.Errorf("gitscan: diff HEAD against its parent: %w", err)
	}

	return changesPaths(changes), nil
}

func baseRefChanges(repo *gitlib.Repository) ([]string, error) {
	var (
		baseHash gitlib.Hash
		found    bool
	)

	for _, name := range baseBranchCandidates {
		hash, err := repo.RevparseHash(name)
		if err != nil {
			continue
		}

		baseHash = hash
		found = true

		break
	}

	if !found {
		return nil, ErrNoBaseBranch
	}

	return commitToHeadChanges(repo, baseHash)
}

func lastReleaseChanges(repo *gitlib.Repository) ([]string, error) {
	hash, ok, err := repo.LatestTagHash()
	if err != nil {
		return nil, fmt.Errorf("gitscan: resolve latest tag: %w", err)
	}

	if !ok {
		return nil, ErrNoReleaseTag
	}

	return commitToHeadChanges(repo, hash)
}

func commitToHeadChanges(repo *gitlib.Repository, baseHash gitlib.Hash) ([]string, error) {
	baseCommit, err := repo.LookupCommit(baseHash)
	if err != nil {
		return nil, fmt.Errorf("gitscan: lookup base commit: %w", err)
	}
	defer baseCommit.Free()

	oldTree, err := baseCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("gitscan: resolve base tree: %w", err)
	}
	defer oldTree.Free()

	newTree, err := headTree(repo)
	if err != nil {
		return nil, err
	}
	defer newTree.Free()

	changes, err := gitlib.TreeDiff(repo, oldTree, newTree)
	if err != nil {
		return nil, fmt.Errorf("gitscan: diff base against HEAD: %w", err)
	}

	return changesPaths(changes), nil
}

func diffPaths(diff *gitlib.Diff) ([]string, error) {
	n, err := diff.NumDeltas()
	if err != nil {
		return nil, fmt.Errorf("gitscan: count diff deltas: %w", err)
	}

	paths := make(map[string]struct{}, n)

	for i := range n {
		delta, deltaErr := diff.Delta(i)
		if deltaErr != nil {
			continue
		}

		if delta.NewFile.Path != "" {
			paths[delta.NewFile.Path] = struct{}{}
		} else if delta.OldFile.Path != "" {
			paths[delta.OldFile.Path] = struct{}{}
		}
	}

	return sortedKeys(paths), nil
}

func changesPaths(changes gitlib.Changes) []string {
	paths := make(map[string]struct{}, len(changes))

	for _, c := range changes {
		switch {
		case c.To.Name != "":
			paths[c.To.Name] = struct{}{}
		case c.From.Name != "":
			paths[c.From.Name] = struct{}{}
		}
	}

	return sortedKeys(paths)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}
