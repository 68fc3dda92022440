package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ChangeStatus classifies a file change within a commit.
type ChangeStatus int

const (
	// Added means the file appears in this commit for the first time.
	Added ChangeStatus = iota
	// Deleted means the file was removed.
	Deleted
	// Modified means the file content changed in place.
	Modified
	// Renamed means the file moved; OldPath holds the previous name.
	Renamed
)

// FileChange is one file's contribution to a commit: its status and the
// line counts of its delta.
type FileChange struct {
	Path       string
	OldPath    string
	Status     ChangeStatus
	Insertions int
	Deletions  int
}

// CommitChanges diffs a commit against its first parent and returns the
// per-file line changes. The root commit diffs against an empty tree, so
// every file counts as added. With detectRenames, moved files report as a
// single Renamed change instead of a delete plus an add.
func (r *Repository) CommitChanges(commit *Commit, detectRenames bool) ([]FileChange, error) {
	newTree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	defer newTree.Free()

	var oldTree *Tree

	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, err
		}
		defer parent.Free()

		oldTree, err = parent.Tree()
		if err != nil {
			return nil, err
		}
		defer oldTree.Free()

		// Same tree means a metadata-only commit; nothing to diff.
		if oldTree.Hash() == newTree.Hash() {
			return nil, nil
		}
	}

	return r.treeChanges(oldTree, newTree, detectRenames)
}

func (r *Repository) treeChanges(oldTree, newTree *Tree, detectRenames bool) ([]FileChange, error) {
	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("diff options: %w", err)
	}

	var oldNative, newNative *git2go.Tree

	if oldTree != nil {
		oldNative = oldTree.tree
	}

	if newTree != nil {
		newNative = newTree.tree
	}

	diff, err := r.repo.DiffTreeToTree(oldNative, newNative, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	defer func() {
		_ = diff.Free()
	}()

	if detectRenames {
		findOpts, err := git2go.DefaultDiffFindOptions()
		if err != nil {
			return nil, fmt.Errorf("diff find options: %w", err)
		}

		findOpts.Flags = git2go.DiffFindRenames

		if err := diff.FindSimilar(&findOpts); err != nil {
			return nil, fmt.Errorf("detect renames: %w", err)
		}
	}

	return collectChanges(diff)
}

func collectChanges(diff *git2go.Diff) ([]FileChange, error) {
	var changes []FileChange

	fileCb := func(delta git2go.DiffDelta, _ float64) (git2go.DiffForEachHunkCallback, error) {
		change, ok := newChange(delta)
		if !ok {
			return func(git2go.DiffHunk) (git2go.DiffForEachLineCallback, error) {
				return func(git2go.DiffLine) error { return nil }, nil
			}, nil
		}

		changes = append(changes, change)
		idx := len(changes) - 1

		return func(git2go.DiffHunk) (git2go.DiffForEachLineCallback, error) {
			return func(line git2go.DiffLine) error {
				switch line.Origin {
				case git2go.DiffLineAddition:
					changes[idx].Insertions++
				case git2go.DiffLineDeletion:
					changes[idx].Deletions++
				default:
				}

				return nil
			}, nil
		}, nil
	}

	if err := diff.ForEach(fileCb, git2go.DiffDetailLines); err != nil {
		return nil, fmt.Errorf("walk diff: %w", err)
	}

	return changes, nil
}

func newChange(delta git2go.DiffDelta) (FileChange, bool) {
	switch delta.Status {
	case git2go.DeltaAdded:
		return FileChange{Path: delta.NewFile.Path, Status: Added}, true
	case git2go.DeltaDeleted:
		return FileChange{Path: delta.OldFile.Path, OldPath: delta.OldFile.Path, Status: Deleted}, true
	case git2go.DeltaModified:
		return FileChange{Path: delta.NewFile.Path, OldPath: delta.OldFile.Path, Status: Modified}, true
	case git2go.DeltaRenamed, git2go.DeltaCopied:
		return FileChange{Path: delta.NewFile.Path, OldPath: delta.OldFile.Path, Status: Renamed}, true
	default:
		return FileChange{}, false
	}
}
