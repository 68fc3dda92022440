package blame

import (
	"sort"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/gitinspect/gitinspect/pkg/gitlib"
)

// minMoveMatchLen is the shortest trimmed line considered for move
// detection. Shorter lines (braces, "end", blank) match everywhere and
// would produce junk attributions.
const minMoveMatchLen = 3

// Source provides the repository facts move detection needs. The engine
// backs it with libgit2; tests back it with fixtures.
type Source interface {
	// Parent returns the first parent of a commit; ok is false for roots.
	Parent(commit gitlib.Hash) (gitlib.Hash, bool, error)

	// Changes lists a commit's file changes against its first parent.
	Changes(commit gitlib.Hash) ([]gitlib.FileChange, error)

	// FileContent returns a file's content at a commit; nil when the file
	// does not exist there.
	FileContent(commit gitlib.Hash, path string) ([]byte, error)

	// Blame attributes the lines of path with history bounded to newest.
	Blame(path string, newest gitlib.Hash) ([]gitlib.BlameHunk, error)
}

// MoveDetector chases lines that a commit moved or copied from another file
// back to the commit that really introduced them. Level 2 follows lines
// deleted from other files of the same commit; level 3 follows lines from
// any file the commit touched, deleted or not.
type MoveDetector struct {
	src   Source
	level int

	deleted map[deletedKey]map[string][]int
	blames  map[blameKey][]gitlib.BlameHunk
}

type deletedKey struct {
	commit gitlib.Hash
	path   string
}

type blameKey struct {
	commit gitlib.Hash
	path   string
}

// NewMoveDetector returns a detector for the given copy/move level. Levels
// below 2 yield a detector whose Rewrite is a no-op; level 1 is handled
// inside libgit2 during the blame itself.
func NewMoveDetector(src Source, level int) *MoveDetector {
	return &MoveDetector{
		src:     src,
		level:   level,
		deleted: make(map[deletedKey]map[string][]int),
		blames:  make(map[blameKey][]gitlib.BlameHunk),
	}
}

// Rewrite re-attributes entries in place. An entry is rewritten when its
// content matches a line that existed in another file at the commit's
// parent and an older commit is to blame for it there. When several origins
// match, the oldest wins; ties break by origin path, then line number.
func (d *MoveDetector) Rewrite(entries []Entry) error {
	if d.level < 2 {
		return nil
	}

	for i := range entries {
		if err := d.rewriteEntry(&entries[i]); err != nil {
			return err
		}
	}

	return nil
}

type origin struct {
	path string
	line int
	hunk gitlib.BlameHunk
	when time.Time
}

func (d *MoveDetector) rewriteEntry(e *Entry) error {
	trimmed := strings.TrimSpace(e.Text)
	if len(trimmed) < minMoveMatchLen {
		return nil
	}

	parent, ok, err := d.src.Parent(e.Commit)
	if err != nil || !ok {
		return err
	}

	candidates, err := d.candidates(e.Commit, e.Path)
	if err != nil {
		return err
	}

	var best *origin

	for _, cand := range candidates {
		lines, err := d.deletedLines(e.Commit, parent, cand)
		if err != nil {
			return err
		}

		for _, lineNo := range lines[e.Text] {
			o, err := d.originAt(parent, cand.origin(), lineNo)
			if err != nil {
				return err
			}

			if o == nil || !o.when.Before(e.When) {
				continue
			}

			if best == nil || olderOrigin(o, best) {
				best = o
			}
		}
	}

	if best != nil {
		e.Commit = best.hunk.Commit
		e.AuthorName = best.hunk.Author.Name
		e.AuthorEmail = best.hunk.Author.Email
		e.When = best.hunk.Author.When
		e.MovedFrom = best.path
	}

	return nil
}

func olderOrigin(a, b *origin) bool {
	if !a.when.Equal(b.when) {
		return a.when.Before(b.when)
	}

	if a.path != b.path {
		return a.path < b.path
	}

	return a.line < b.line
}

// candidate is a file of the blamed commit that may have supplied moved
// lines.
type candidate struct {
	gitlib.FileChange
}

// origin returns the path the candidate had at the parent commit.
func (c candidate) origin() string {
	if c.OldPath != "" {
		return c.OldPath
	}

	return c.Path
}

func (d *MoveDetector) candidates(commit gitlib.Hash, blamedPath string) ([]candidate, error) {
	changes, err := d.src.Changes(commit)
	if err != nil {
		return nil, err
	}

	var out []candidate

	for _, ch := range changes {
		if ch.Path == blamedPath || ch.Status == gitlib.Added {
			continue
		}

		if d.level == 2 && ch.Deletions == 0 {
			continue
		}

		out = append(out, candidate{ch})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].origin() < out[j].origin() })

	return out, nil
}

// deletedLines maps line content to the parent-side line numbers the commit
// removed from one candidate file. At level 3 every parent-side line of the
// file counts, moved away or not.
func (d *MoveDetector) deletedLines(commit, parent gitlib.Hash, cand candidate) (map[string][]int, error) {
	key := deletedKey{commit: commit, path: cand.origin()}
	if cached, ok := d.deleted[key]; ok {
		return cached, nil
	}

	oldContent, err := d.src.FileContent(parent, cand.origin())
	if err != nil {
		return nil, err
	}

	lines := make(map[string][]int)

	if d.level >= 3 {
		for i, text := range SplitLines(oldContent) {
			lines[text] = append(lines[text], i+1)
		}

		d.deleted[key] = lines

		return lines, nil
	}

	newContent, err := d.src.FileContent(commit, cand.Path)
	if err != nil {
		return nil, err
	}

	collectDeleted(string(oldContent), string(newContent), lines)
	d.deleted[key] = lines

	return lines, nil
}

// collectDeleted records, per content, the old-side line numbers of lines a
// line diff reports as deleted.
func collectDeleted(oldText, newText string, out map[string][]int) {
	dmp := diffmatchpatch.New()

	a, b, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	oldLine := 1

	for _, diff := range diffs {
		lines := strings.SplitAfter(diff.Text, "\n")

		for _, line := range lines {
			if line == "" {
				continue
			}

			text := strings.TrimSuffix(line, "\n")

			switch diff.Type {
			case diffmatchpatch.DiffDelete:
				out[text] = append(out[text], oldLine)
				oldLine++
			case diffmatchpatch.DiffEqual:
				oldLine++
			case diffmatchpatch.DiffInsert:
			}
		}
	}
}

// originAt blames a file at the parent commit and returns the origin
// covering one line.
func (d *MoveDetector) originAt(parent gitlib.Hash, path string, line int) (*origin, error) {
	key := blameKey{commit: parent, path: path}

	hunks, ok := d.blames[key]
	if !ok {
		var err error

		hunks, err = d.src.Blame(path, parent)
		if err != nil {
			// The file may be unreachable at the parent (e.g. created and
			// moved within one commit chain); skip it.
			d.blames[key] = nil

			return nil, nil
		}

		d.blames[key] = hunks
	}

	for _, h := range hunks {
		if line >= h.StartLine && line < h.StartLine+h.Lines {
			return &origin{path: path, line: line, hunk: h, when: h.Author.When}, nil
		}
	}

	return nil, nil
}
