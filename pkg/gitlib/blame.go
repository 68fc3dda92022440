package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// BlameOptions controls how lines are attributed to commits.
type BlameOptions struct {
	// Newest bounds the blame to history reachable from this commit.
	// Zero means HEAD.
	Newest Hash

	// Oldest stops attribution at this commit. Zero means unbounded.
	Oldest Hash

	// TrackCopiesSameFile attributes lines moved within a file to their
	// original commit (git blame -M).
	TrackCopiesSameFile bool

	// FirstParent ignores side branches of merges.
	FirstParent bool
}

// BlameHunk attributes a run of consecutive lines to one commit.
type BlameHunk struct {
	Commit    Hash
	Author    Signature
	StartLine int
	Lines     int
	Boundary  bool
}

// BlameFile runs libgit2 blame on one file and returns its hunks in line
// order.
func (r *Repository) BlameFile(path string, opts BlameOptions) ([]BlameHunk, error) {
	gitOpts, err := git2go.DefaultBlameOptions()
	if err != nil {
		return nil, fmt.Errorf("blame options: %w", err)
	}

	if !opts.Newest.IsZero() {
		gitOpts.NewestCommit = opts.Newest.ToOid()
	}

	if !opts.Oldest.IsZero() {
		gitOpts.OldestCommit = opts.Oldest.ToOid()
	}

	if opts.TrackCopiesSameFile {
		gitOpts.Flags |= git2go.BlameTrackCopiesSameFile
	}

	if opts.FirstParent {
		gitOpts.Flags |= git2go.BlameFirstParent
	}

	blame, err := r.repo.BlameFile(path, &gitOpts)
	if err != nil {
		return nil, fmt.Errorf("blame %s: %w", path, err)
	}

	defer func() {
		_ = blame.Free()
	}()

	count := blame.HunkCount()
	hunks := make([]BlameHunk, 0, count)

	for i := 0; i < count; i++ {
		h, err := blame.HunkByIndex(i)
		if err != nil {
			return nil, fmt.Errorf("blame hunk %d of %s: %w", i, path, err)
		}

		hunk := BlameHunk{
			Commit:    HashFromOid(h.FinalCommitId),
			StartLine: int(h.FinalStartLineNumber),
			Lines:     int(h.LinesInHunk),
			Boundary:  h.Boundary,
		}

		if h.FinalSignature != nil {
			hunk.Author = Signature{
				Name:  h.FinalSignature.Name,
				Email: h.FinalSignature.Email,
				When:  h.FinalSignature.When,
			}
		}

		hunks = append(hunks, hunk)
	}

	return hunks, nil
}
