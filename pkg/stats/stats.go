// Package stats aggregates commit history and blame line counts into
// per-author and per-file statistics. The aggregator is keyed by raw
// author signatures while data streams in; signatures collapse into
// persons only at Finalize, so identity merging never has to happen
// before the walk is complete.
package stats

import (
	"sort"
	"time"

	"github.com/gitinspect/gitinspect/pkg/identity"
)

// Stat is the numeric core shared by author and file statistics.
type Stat struct {
	Commits    int
	Insertions int
	Deletions  int
	BlameLines int

	// Stability is min(100, round(100*BlameLines/Insertions)), or -1 when
	// the author has no insertions to measure against.
	Stability int

	// Age is the insertion-weighted age of the contributed lines, formatted
	// as "Y:MM:DD". Empty when no insertions exist.
	Age string

	// First and Last bound the observed commit activity. Zero when no
	// commits were recorded.
	First time.Time
	Last  time.Time

	// Percentages of the repository totals. With scaled percentages they
	// are multiplied by the number of authors.
	InsertionsPct float64
	BlameLinesPct float64
}

// AuthorStat is the resolved per-person aggregate. Files counts the
// distinct files the person touched.
type AuthorStat struct {
	Person   *identity.Person
	Excluded bool
	Files    int
	Stat
}

// FileStat is the per-file aggregate across all authors. PreviousNames
// lists the paths the file held before renames, oldest first; Authors
// counts the distinct persons who touched the file.
type FileStat struct {
	Path          string
	PreviousNames []string
	Groups        []CommitGroup
	Authors       int
	Stat
}

// CommitGroup is a run of consecutive commits by the same author touching
// the same file, newest first. DateSum accumulates timestamp*insertions so
// a weighted age can be derived from the group.
type CommitGroup struct {
	Path       string
	AuthorName string
	Email      string
	SHAs       []string
	Insertions int
	Deletions  int
	DateSum    float64
}

// Matcher decides whether a name or email marks its owner as excluded.
type Matcher interface {
	MatchAny(candidates ...string) bool
}

// Options controls finalization.
type Options struct {
	// Now anchors age computation; the zero value means time.Now.
	Now time.Time

	// Scaled computes percentages over the non-excluded authors instead
	// of the full repository totals, so their shares sum to 100 again
	// after exclusion.
	Scaled bool

	// SortKey orders the author table: "insertions" (default),
	// "blame-lines", "commits" or "name".
	SortKey string

	// ExAuthors and ExEmails mark matching persons as excluded.
	ExAuthors Matcher
	ExEmails  Matcher

	// RemoveExcluded drops excluded persons from the result instead of
	// marking them.
	RemoveExcluded bool
}

// Result is the finalized aggregate for one repository.
type Result struct {
	Authors []AuthorStat
	Files   []FileStat

	TotalCommits    int
	TotalInsertions int
	TotalBlameLines int
}

type cell struct {
	shas       map[string]struct{}
	insertions int
	deletions  int
	dateSum    float64
	blameLines int
	first      time.Time
	last       time.Time
}

type authorKey struct {
	name  string
	email string
}

// Aggregator accumulates one repository's history and blame data. It is not
// safe for concurrent use; the engine feeds it from a single goroutine.
type Aggregator struct {
	cells   map[authorKey]map[string]*cell
	commits map[string]struct{}
	groups  map[string][]CommitGroup
	renames map[string][]string
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		cells:   make(map[authorKey]map[string]*cell),
		commits: make(map[string]struct{}),
		groups:  make(map[string][]CommitGroup),
		renames: make(map[string][]string),
	}
}

func (a *Aggregator) cell(key authorKey, path string) *cell {
	files, ok := a.cells[key]
	if !ok {
		files = make(map[string]*cell)
		a.cells[key] = files
	}

	c, ok := files[path]
	if !ok {
		c = &cell{shas: make(map[string]struct{})}
		files[path] = c
	}

	return c
}

// AddFileChange records one file's insertions and deletions in one commit.
// Commits must be fed newest first so commit groups stay contiguous.
func (a *Aggregator) AddFileChange(name, email, sha string, when time.Time, path string, insertions, deletions int) {
	key := authorKey{name: name, email: email}

	c := a.cell(key, path)
	c.shas[sha] = struct{}{}
	c.insertions += insertions
	c.deletions += deletions
	c.dateSum += float64(when.Unix()) * float64(insertions)

	if c.first.IsZero() || when.Before(c.first) {
		c.first = when
	}

	if when.After(c.last) {
		c.last = when
	}

	a.commits[sha] = struct{}{}
	a.appendToGroup(key, sha, when, path, insertions, deletions)
}

func (a *Aggregator) appendToGroup(key authorKey, sha string, when time.Time, path string, insertions, deletions int) {
	groups := a.groups[path]

	if n := len(groups); n > 0 {
		last := &groups[n-1]
		if last.AuthorName == key.name && last.Email == key.email {
			last.SHAs = append(last.SHAs, sha)
			last.Insertions += insertions
			last.Deletions += deletions
			last.DateSum += float64(when.Unix()) * float64(insertions)

			return
		}
	}

	a.groups[path] = append(groups, CommitGroup{
		Path:       path,
		AuthorName: key.name,
		Email:      key.email,
		SHAs:       []string{sha},
		Insertions: insertions,
		Deletions:  deletions,
		DateSum:    float64(when.Unix()) * float64(insertions),
	})
}

// AddRename records that the file at path was previously named oldName.
// Renames arrive newest first, like commits.
func (a *Aggregator) AddRename(path, oldName string) {
	if oldName == "" || oldName == path {
		return
	}

	for _, existing := range a.renames[path] {
		if existing == oldName {
			return
		}
	}

	a.renames[path] = append(a.renames[path], oldName)
}

// AddBlameLines credits n blame lines of a file to a signature. The caller
// decides which lines are countable; excluded comment or empty lines are
// simply never passed in.
func (a *Aggregator) AddBlameLines(name, email, path string, n int) {
	if n == 0 {
		return
	}

	a.cell(authorKey{name: name, email: email}, path).blameLines += n
}

// Finalize collapses signatures into persons and produces the sorted
// author and file tables.
func (a *Aggregator) Finalize(people *identity.People, opts Options) *Result {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	byPerson := make(map[*identity.Person]*cell)
	byFile := make(map[string]*cell)
	personFiles := make(map[*identity.Person]map[string]struct{})
	fileAuthors := make(map[string]map[*identity.Person]struct{})

	for key, files := range a.cells {
		person := people.Lookup(key.name, key.email)
		if person == nil {
			// Signature fed to the aggregator but never observed by the
			// resolver; treat it as its own person.
			person = &identity.Person{
				ID:     key.name + "\x00" + key.email,
				Name:   key.name,
				Email:  key.email,
				Names:  []string{key.name},
				Emails: []string{key.email},
			}
		}

		for path, c := range files {
			mergeCell(byPerson, person, c)
			mergeFileCell(byFile, path, c)

			if personFiles[person] == nil {
				personFiles[person] = make(map[string]struct{})
			}
			personFiles[person][path] = struct{}{}

			if fileAuthors[path] == nil {
				fileAuthors[path] = make(map[*identity.Person]struct{})
			}
			fileAuthors[path][person] = struct{}{}
		}
	}

	res := &Result{TotalCommits: len(a.commits)}

	for _, c := range byFile {
		res.TotalInsertions += c.insertions
		res.TotalBlameLines += c.blameLines
	}

	res.Authors = a.buildAuthors(byPerson, personFiles, now, opts, res)
	res.Files = a.buildFiles(byFile, fileAuthors, now, res)

	return res
}

func mergeCell(dst map[*identity.Person]*cell, person *identity.Person, src *cell) {
	c, ok := dst[person]
	if !ok {
		c = &cell{shas: make(map[string]struct{})}
		dst[person] = c
	}

	c.add(src)
}

func mergeFileCell(dst map[string]*cell, path string, src *cell) {
	c, ok := dst[path]
	if !ok {
		c = &cell{shas: make(map[string]struct{})}
		dst[path] = c
	}

	c.add(src)
}

func (c *cell) add(src *cell) {
	for sha := range src.shas {
		c.shas[sha] = struct{}{}
	}

	c.insertions += src.insertions
	c.deletions += src.deletions
	c.dateSum += src.dateSum
	c.blameLines += src.blameLines

	if c.first.IsZero() || (!src.first.IsZero() && src.first.Before(c.first)) {
		c.first = src.first
	}

	if src.last.After(c.last) {
		c.last = src.last
	}
}

func (c *cell) stat(now time.Time) Stat {
	s := Stat{
		Commits:    len(c.shas),
		Insertions: c.insertions,
		Deletions:  c.deletions,
		BlameLines: c.blameLines,
		Stability:  Stability(c.blameLines, c.insertions),
		First:      c.first,
		Last:       c.last,
	}

	if c.insertions > 0 {
		avg := time.Unix(int64(c.dateSum/float64(c.insertions)), 0)
		s.Age = FormatAge(now, avg)
	}

	return s
}

func (a *Aggregator) buildAuthors(byPerson map[*identity.Person]*cell, personFiles map[*identity.Person]map[string]struct{}, now time.Time, opts Options, res *Result) []AuthorStat {
	authors := make([]AuthorStat, 0, len(byPerson))

	for person, c := range byPerson {
		as := AuthorStat{Person: person, Files: len(personFiles[person]), Stat: c.stat(now)}
		as.Excluded = person.Matches(opts.ExAuthors) || person.Matches(opts.ExEmails)

		if as.Excluded && opts.RemoveExcluded {
			continue
		}

		authors = append(authors, as)
	}

	// Percentages run against the full repository totals; with scaled
	// percentages the denominator is recomputed over the non-excluded
	// authors, redistributing the excluded share.
	totalIns, totalBlame := res.TotalInsertions, res.TotalBlameLines
	if opts.Scaled {
		totalIns, totalBlame = 0, 0

		for i := range authors {
			if authors[i].Excluded {
				continue
			}

			totalIns += authors[i].Insertions
			totalBlame += authors[i].BlameLines
		}
	}

	for i := range authors {
		authors[i].InsertionsPct = percent(authors[i].Insertions, totalIns)
		authors[i].BlameLinesPct = percent(authors[i].BlameLines, totalBlame)
	}

	sortAuthors(authors, opts.SortKey)

	return authors
}

func (a *Aggregator) buildFiles(byFile map[string]*cell, fileAuthors map[string]map[*identity.Person]struct{}, now time.Time, res *Result) []FileStat {
	files := make([]FileStat, 0, len(byFile))

	for path, c := range byFile {
		fs := FileStat{
			Path:          path,
			PreviousNames: previousNames(a.renames[path]),
			Groups:        a.groups[path],
			Authors:       len(fileAuthors[path]),
			Stat:          c.stat(now),
		}
		fs.InsertionsPct = percent(fs.Insertions, res.TotalInsertions)
		fs.BlameLinesPct = percent(fs.BlameLines, res.TotalBlameLines)

		files = append(files, fs)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].BlameLines != files[j].BlameLines {
			return files[i].BlameLines > files[j].BlameLines
		}

		return files[i].Path < files[j].Path
	})

	return files
}

func sortAuthors(authors []AuthorStat, key string) {
	less := func(i, j int) bool {
		a, b := &authors[i], &authors[j]

		switch key {
		case "blame-lines":
			if a.BlameLines != b.BlameLines {
				return a.BlameLines > b.BlameLines
			}
		case "commits":
			if a.Commits != b.Commits {
				return a.Commits > b.Commits
			}
		case "name":
		default:
			if a.Insertions != b.Insertions {
				return a.Insertions > b.Insertions
			}
		}

		return a.Person.Name < b.Person.Name
	}

	sort.Slice(authors, less)
}

// previousNames reverses the newest-first rename records into oldest-first
// order without mutating the aggregator's copy.
func previousNames(recorded []string) []string {
	if len(recorded) == 0 {
		return nil
	}

	names := make([]string, len(recorded))
	for i, name := range recorded {
		names[len(recorded)-1-i] = name
	}

	return names
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}

	return float64(count) / float64(total) * 100
}

// Stability measures how much of an author's inserted code still survives
// in the blamed tree, capped at 100. Returns -1 when insertions is zero.
func Stability(blameLines, insertions int) int {
	if insertions <= 0 {
		return -1
	}

	v := int(float64(blameLines)/float64(insertions)*100 + 0.5)
	if v > 100 {
		v = 100
	}

	return v
}
