package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Tree wraps a libgit2 tree.
type Tree struct {
	tree *git2go.Tree
	repo *Repository
}

// Hash returns the tree id.
func (t *Tree) Hash() Hash {
	return HashFromOid(t.tree.Id())
}

// EntryByPath returns the entry at a slash-separated path.
func (t *Tree) EntryByPath(path string) (*TreeEntry, error) {
	entry, err := t.tree.EntryByPath(path)
	if err != nil {
		return nil, fmt.Errorf("tree entry %s: %w", path, err)
	}

	return &TreeEntry{entry: entry}, nil
}

// Files returns every blob in the tree, recursively, with repository paths.
func (t *Tree) Files() ([]*File, error) {
	var files []*File

	err := walkTree(t.repo, t, "", func(path string, entry *TreeEntry) error {
		files = append(files, &File{Name: path, Hash: entry.Hash(), repo: t.repo})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// Free releases the tree handle.
func (t *Tree) Free() {
	if t.tree != nil {
		t.tree.Free()
		t.tree = nil
	}
}

// Native exposes the libgit2 tree.
func (t *Tree) Native() *git2go.Tree {
	return t.tree
}

// TreeEntry wraps a libgit2 tree entry.
type TreeEntry struct {
	entry *git2go.TreeEntry
}

// Name returns the entry name.
func (e *TreeEntry) Name() string {
	return e.entry.Name
}

// Hash returns the entry's object id.
func (e *TreeEntry) Hash() Hash {
	return HashFromOid(e.entry.Id)
}

// IsBlob reports whether the entry is a blob.
func (e *TreeEntry) IsBlob() bool {
	return e.entry.Type == git2go.ObjectBlob
}

func walkTree(repo *Repository, tree *Tree, prefix string, cb func(path string, entry *TreeEntry) error) error {
	count := tree.tree.EntryCount()

	for i := uint64(0); i < count; i++ {
		entry := tree.tree.EntryByIndex(i)
		if entry == nil {
			continue
		}

		path := entry.Name
		if prefix != "" {
			path = prefix + "/" + path
		}

		switch entry.Type {
		case git2go.ObjectBlob:
			if err := cb(path, &TreeEntry{entry: entry}); err != nil {
				return err
			}
		case git2go.ObjectTree:
			subtree, err := repo.LookupTree(HashFromOid(entry.Id))
			if err != nil {
				continue
			}

			err = walkTree(repo, subtree, path, cb)
			subtree.Free()

			if err != nil {
				return err
			}
		default:
		}
	}

	return nil
}
