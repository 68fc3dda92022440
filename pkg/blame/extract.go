package blame

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gitinspect/gitinspect/pkg/gitlib"
	"github.com/gitinspect/gitinspect/pkg/pattern"
	"github.com/gitinspect/gitinspect/pkg/settings"
)

// Entry attributes one line of one blamed file.
type Entry struct {
	Path        string
	Line        int
	Commit      gitlib.Hash
	AuthorName  string
	AuthorEmail string
	When        time.Time
	Text        string
	Kind        LineKind

	// MovedFrom names the file the line was moved from, when move
	// detection rewrote the attribution.
	MovedFrom string

	// Excluded marks lines authored by excluded authors.
	Excluded bool
}

// Options configures an extraction run.
type Options struct {
	Select SelectOptions

	// CopyMove is the detection level, 0 through 3.
	CopyMove int

	// Workers bounds the number of files blamed concurrently.
	Workers int

	// ExAuthors and ExEmails mark lines of matching authors as excluded.
	ExAuthors *pattern.Matcher
	ExEmails  *pattern.Matcher

	// ExRevisions lists commit id prefixes whose attributed lines are
	// treated as excluded.
	ExRevisions []string

	// ExclusionMode is one of the settings exclusion modes; "remove"
	// drops excluded lines instead of marking them.
	ExclusionMode string

	// OnFile, when set, is called once per blamed file. Calls may arrive
	// concurrently from the worker pool.
	OnFile func(path string)
}

// FileError records one file that could not be blamed. The file is skipped;
// the rest of the run is unaffected.
type FileError struct {
	Path string
	Err  error
}

// Extractor blames the selected files of one repository. Each worker opens
// its own repository handle because libgit2 handles are not safe to share
// across goroutines.
type Extractor struct {
	repoPath string
	opts     Options
	blame    func(repo *gitlib.Repository, head gitlib.Hash, path string) ([]Entry, error)
}

// NewExtractor returns an extractor for the repository at repoPath.
func NewExtractor(repoPath string, opts Options) *Extractor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	x := &Extractor{repoPath: repoPath, opts: opts}
	x.blame = x.blameOne

	return x
}

// Run selects and blames files at the given commit and returns the entries
// ordered by path, then line, plus one FileError per file that could not be
// blamed. A failing file is skipped; it never fails the run. Move detection
// and author exclusion run after all files are blamed, in that order, so
// exclusion judges the final attribution of each line.
func (x *Extractor) Run(ctx context.Context, head gitlib.Hash) ([]Entry, []FileError, error) {
	repo, err := gitlib.Open(x.repoPath)
	if err != nil {
		return nil, nil, err
	}
	defer repo.Free()

	files, err := ListFiles(repo, head)
	if err != nil {
		return nil, nil, err
	}

	selected := SelectFiles(files, x.opts.Select)
	perFile := make([][]Entry, len(selected))

	var (
		mu      sync.Mutex
		skipped []FileError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.opts.Workers)

	for i, path := range selected {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			wrepo, err := gitlib.Open(x.repoPath)
			if err != nil {
				return err
			}
			defer wrepo.Free()

			entries, err := x.blame(wrepo, head, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}

				mu.Lock()
				skipped = append(skipped, FileError{Path: path, Err: fmt.Errorf("blame %s: %w", path, err)})
				mu.Unlock()

				return nil
			}

			perFile[i] = entries

			if x.opts.OnFile != nil {
				x.opts.OnFile(path)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })

	var entries []Entry
	for _, fe := range perFile {
		entries = append(entries, fe...)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Path != entries[j].Path {
			return entries[i].Path < entries[j].Path
		}

		return entries[i].Line < entries[j].Line
	})

	if x.opts.CopyMove >= 2 {
		detector := NewMoveDetector(&gitSource{repo: repo}, x.opts.CopyMove)
		if err := detector.Rewrite(entries); err != nil {
			return nil, nil, err
		}
	}

	return x.applyExclusions(entries), skipped, nil
}

func (x *Extractor) blameOne(repo *gitlib.Repository, head gitlib.Hash, path string) ([]Entry, error) {
	hunks, err := repo.BlameFile(path, gitlib.BlameOptions{
		Newest:              head,
		TrackCopiesSameFile: x.opts.CopyMove >= 1,
	})
	if err != nil {
		return nil, err
	}

	commit, err := repo.LookupCommit(head)
	if err != nil {
		return nil, err
	}
	defer commit.Free()

	file, err := commit.File(path)
	if err != nil {
		return nil, err
	}

	content, err := file.Contents()
	if err != nil {
		return nil, err
	}

	lines := SplitLines(content)
	kinds := ClassifyLines(path, content)

	var entries []Entry

	for _, h := range hunks {
		for i := 0; i < h.Lines; i++ {
			lineNo := h.StartLine + i
			if lineNo < 1 || lineNo > len(lines) {
				continue
			}

			entries = append(entries, Entry{
				Path:        path,
				Line:        lineNo,
				Commit:      h.Commit,
				AuthorName:  h.Author.Name,
				AuthorEmail: h.Author.Email,
				When:        h.Author.When,
				Text:        lines[lineNo-1],
				Kind:        kinds[lineNo-1],
			})
		}
	}

	return entries, nil
}

// applyExclusions marks or removes lines of excluded authors and lines
// attributed to excluded revisions.
func (x *Extractor) applyExclusions(entries []Entry) []Entry {
	if x.opts.ExAuthors.Empty() && x.opts.ExEmails.Empty() && len(x.opts.ExRevisions) == 0 {
		return entries
	}

	out := entries[:0]

	for _, e := range entries {
		if x.excluded(e) {
			if x.opts.ExclusionMode == settings.ExclusionsRemove {
				continue
			}

			e.Excluded = true
		}

		out = append(out, e)
	}

	return out
}

func (x *Extractor) excluded(e Entry) bool {
	if x.opts.ExAuthors.Match(e.AuthorName) || x.opts.ExEmails.Match(e.AuthorEmail) {
		return true
	}

	sha := e.Commit.String()
	for _, prefix := range x.opts.ExRevisions {
		if prefix != "" && strings.HasPrefix(sha, prefix) {
			return true
		}
	}

	return false
}

// gitSource backs move detection with libgit2.
type gitSource struct {
	repo *gitlib.Repository
}

func (s *gitSource) Parent(commit gitlib.Hash) (gitlib.Hash, bool, error) {
	c, err := s.repo.LookupCommit(commit)
	if err != nil {
		return gitlib.Hash{}, false, err
	}
	defer c.Free()

	if c.NumParents() == 0 {
		return gitlib.Hash{}, false, nil
	}

	return c.ParentHash(0), true, nil
}

func (s *gitSource) Changes(commit gitlib.Hash) ([]gitlib.FileChange, error) {
	c, err := s.repo.LookupCommit(commit)
	if err != nil {
		return nil, err
	}
	defer c.Free()

	return s.repo.CommitChanges(c, true)
}

func (s *gitSource) FileContent(commit gitlib.Hash, path string) ([]byte, error) {
	c, err := s.repo.LookupCommit(commit)
	if err != nil {
		return nil, err
	}
	defer c.Free()

	file, err := c.File(path)
	if err != nil {
		// Absent at this commit.
		return nil, nil
	}

	return file.Contents()
}

func (s *gitSource) Blame(path string, newest gitlib.Hash) ([]gitlib.BlameHunk, error) {
	return s.repo.BlameFile(path, gitlib.BlameOptions{Newest: newest})
}
