package walker

import (
	"context"
	"strings"
	"time"

	"github.com/gitinspect/gitinspect/pkg/gitlib"
	"github.com/gitinspect/gitinspect/pkg/pattern"
)

// Filter decides which commits of a history walk are admitted.
type Filter struct {
	// Since and Until bound the author timestamp, inclusive on both ends.
	// Zero values mean unbounded.
	Since time.Time
	Until time.Time

	// ExRevisions lists commit id prefixes to skip.
	ExRevisions []string

	// ExMessages skips commits whose summary matches.
	ExMessages *pattern.Matcher
}

// Admit reports whether a commit passes the filter.
func (f *Filter) Admit(hash string, when time.Time, summary string) bool {
	if !f.Since.IsZero() && when.Before(f.Since) {
		return false
	}

	if !f.Until.IsZero() && when.After(f.Until) {
		return false
	}

	for _, prefix := range f.ExRevisions {
		if prefix != "" && strings.HasPrefix(hash, prefix) {
			return false
		}
	}

	if f.ExMessages.Match(summary) {
		return false
	}

	return true
}

// CommitInfo is one admitted commit with its per-file line changes.
type CommitInfo struct {
	Hash    gitlib.Hash
	Author  gitlib.Signature
	Summary string
	Changes []gitlib.FileChange
}

// Walker streams a repository's first-parent history, newest first.
type Walker struct {
	repo          *gitlib.Repository
	filter        Filter
	detectRenames bool
}

// New returns a walker over repo.
func New(repo *gitlib.Repository, filter Filter, detectRenames bool) *Walker {
	return &Walker{repo: repo, filter: filter, detectRenames: detectRenames}
}

// Walk calls fn for every admitted commit, newest first, starting from
// HEAD. Merge commits are diffed against their first parent only, so a
// merge is credited with exactly the changes it brought onto the walked
// branch. Walk stops at the first error or when ctx is cancelled.
func (w *Walker) Walk(ctx context.Context, fn func(CommitInfo) error) error {
	walk, err := w.repo.Walk()
	if err != nil {
		return err
	}
	defer walk.Free()

	if err := walk.PushHead(); err != nil {
		return err
	}

	walk.SortTimeTopological()
	walk.SimplifyFirstParent()

	return walk.ForEach(func(commit *gitlib.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		author := commit.Author()
		summary := commit.Summary()

		if !w.filter.Admit(commit.Hash().String(), author.When, summary) {
			return nil
		}

		changes, err := w.repo.CommitChanges(commit, w.detectRenames)
		if err != nil {
			return err
		}

		return fn(CommitInfo{
			Hash:    commit.Hash(),
			Author:  author,
			Summary: summary,
			Changes: changes,
		})
	})
}
