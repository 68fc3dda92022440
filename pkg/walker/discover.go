// Package walker finds git repositories under configured roots and streams
// their first-parent history as per-file change records.
package walker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrNoRepositories is returned when discovery finds nothing to analyze.
var ErrNoRepositories = errors.New("no git repositories found")

// Repo is a discovered repository.
type Repo struct {
	// Name is the directory base name, prefixed with its parent when two
	// repositories share a base name.
	Name string

	// Path is the absolute working tree path.
	Path string
}

// RootError records a root path that could not be searched. Bad roots are
// reported to the caller instead of aborting discovery under the remaining
// roots.
type RootError struct {
	Root string
	Err  error
}

// Discover walks each root up to depth directory levels and returns every
// git repository found, ordered by path, plus one RootError per root that
// was missing or not a directory. A repository is a directory that contains
// a .git entry; discovery does not descend into repositories, so nested
// checkouts and submodules are not reported twice.
//
// ErrNoRepositories is returned only when every root was searched and none
// contained a repository; a bad root is not an error at this level.
func Discover(roots []string, depth int) ([]Repo, []RootError, error) {
	var (
		repos []Repo
		bad   []RootError
	)

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			bad = append(bad, RootError{Root: root, Err: fmt.Errorf("resolve root: %w", err)})

			continue
		}

		info, err := os.Stat(abs)
		if err != nil {
			bad = append(bad, RootError{Root: root, Err: fmt.Errorf("stat root: %w", err)})

			continue
		}

		if !info.IsDir() {
			bad = append(bad, RootError{Root: root, Err: fmt.Errorf("root %s is not a directory", root)})

			continue
		}

		discoverUnder(abs, depth, &repos)
	}

	if len(repos) == 0 && len(bad) == 0 {
		return nil, nil, ErrNoRepositories
	}

	sort.Slice(repos, func(i, j int) bool { return repos[i].Path < repos[j].Path })
	sort.Slice(bad, func(i, j int) bool { return bad[i].Root < bad[j].Root })
	disambiguate(repos)

	return repos, bad, nil
}

func discoverUnder(dir string, depth int, repos *[]Repo) {
	if isRepo(dir) {
		*repos = append(*repos, Repo{Name: filepath.Base(dir), Path: dir})

		return
	}

	if depth <= 0 {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable directories are skipped, not fatal; one locked
		// folder must not abort discovery of the rest.
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		discoverUnder(filepath.Join(dir, entry.Name()), depth-1, repos)
	}
}

// isRepo reports whether dir is a git working tree. The .git entry may be a
// directory or, for worktrees and submodules, a file.
func isRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))

	return err == nil
}

// disambiguate prefixes duplicate base names with their parent directory.
func disambiguate(repos []Repo) {
	counts := make(map[string]int)
	for _, r := range repos {
		counts[r.Name]++
	}

	for i := range repos {
		if counts[repos[i].Name] > 1 {
			parent := filepath.Base(filepath.Dir(repos[i].Path))
			repos[i].Name = parent + "/" + repos[i].Name
		}
	}
}
