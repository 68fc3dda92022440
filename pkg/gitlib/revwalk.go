package gitlib

import (
	"errors"
	"fmt"
	"io"

	git2go "github.com/libgit2/git2go/v34"
)

// RevWalk wraps a libgit2 revision walker.
type RevWalk struct {
	walk *git2go.RevWalk
	repo *Repository
}

// Push adds a starting commit to the walk.
func (w *RevWalk) Push(hash Hash) error {
	if err := w.walk.Push(hash.ToOid()); err != nil {
		return fmt.Errorf("push %s to revwalk: %w", hash.Short(), err)
	}

	return nil
}

// PushHead starts the walk at HEAD.
func (w *RevWalk) PushHead() error {
	head, err := w.repo.Head()
	if err != nil {
		return err
	}

	return w.Push(head)
}

// SortTimeTopological orders the walk newest first while never visiting a
// commit before its descendants.
func (w *RevWalk) SortTimeTopological() {
	w.walk.Sorting(git2go.SortTime | git2go.SortTopological)
}

// SimplifyFirstParent restricts the walk to first-parent history.
func (w *RevWalk) SimplifyFirstParent() {
	w.walk.SimplifyFirstParent()
}

// Next returns the next commit id, or io.EOF when the walk is exhausted.
func (w *RevWalk) Next() (Hash, error) {
	oid := new(git2go.Oid)

	err := w.walk.Next(oid)
	if err != nil {
		var gitErr *git2go.GitError
		if errors.As(err, &gitErr) && gitErr.Code == git2go.ErrorCodeIterOver {
			return Hash{}, io.EOF
		}

		return Hash{}, fmt.Errorf("revwalk next: %w", err)
	}

	return HashFromOid(oid), nil
}

// ForEach calls cb for every commit in the walk, freeing each commit after
// the callback returns. Iteration stops at the first error.
func (w *RevWalk) ForEach(cb func(*Commit) error) error {
	for {
		hash, err := w.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		commit, err := w.repo.LookupCommit(hash)
		if err != nil {
			continue
		}

		cbErr := cb(commit)
		commit.Free()

		if cbErr != nil {
			return cbErr
		}
	}
}

// Free releases the walker.
func (w *RevWalk) Free() {
	if w.walk != nil {
		w.walk.Free()
		w.walk = nil
	}
}
