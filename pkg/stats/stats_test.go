package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitinspect/gitinspect/pkg/identity"
	"github.com/gitinspect/gitinspect/pkg/pattern"
	"github.com/gitinspect/gitinspect/pkg/stats"
)

var (
	t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(24 * time.Hour)
	t2 = t0.Add(48 * time.Hour)
)

func TestStability(t *testing.T) {
	assert.Equal(t, 50, stats.Stability(50, 100))
	assert.Equal(t, 100, stats.Stability(120, 100))
	assert.Equal(t, 33, stats.Stability(1, 3))
	assert.Equal(t, 67, stats.Stability(2, 3))
	assert.Equal(t, -1, stats.Stability(10, 0))
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "1:11:29", stats.FormatAge(now, now.AddDate(-2, 0, 0)))
	assert.Equal(t, "0:00:00", stats.FormatAge(now, now))
	assert.Equal(t, "0:00:00", stats.FormatAge(now, now.Add(time.Hour)))
	assert.Equal(t, "0:00:10", stats.FormatAge(now, now.Add(-10*24*time.Hour)))
}

func TestAggregateAuthorsAndFiles(t *testing.T) {
	a := stats.NewAggregator()

	// Newest first, as a revision walk yields them.
	a.AddFileChange("Jane", "jane@x.com", "c2", t2, "f.go", 10, 2)
	a.AddFileChange("Jane", "jane@x.com", "c1", t1, "f.go", 20, 0)
	a.AddFileChange("Bob", "bob@x.com", "c0", t0, "f.go", 5, 1)

	a.AddBlameLines("Jane", "jane@x.com", "f.go", 25)
	a.AddBlameLines("Bob", "bob@x.com", "f.go", 5)

	r := identity.NewResolver()
	r.Observe("Jane", "jane@x.com")
	r.Observe("Bob", "bob@x.com")

	res := a.Finalize(r.Resolve(), stats.Options{Now: t2})

	assert.Equal(t, 3, res.TotalCommits)
	assert.Equal(t, 35, res.TotalInsertions)
	assert.Equal(t, 30, res.TotalBlameLines)

	require.Len(t, res.Authors, 2)

	jane := res.Authors[0]
	assert.Equal(t, "Jane", jane.Person.Name)
	assert.Equal(t, 2, jane.Commits)
	assert.Equal(t, 30, jane.Insertions)
	assert.Equal(t, 2, jane.Deletions)
	assert.Equal(t, 25, jane.BlameLines)
	assert.Equal(t, 83, jane.Stability)
	assert.InDelta(t, 85.71, jane.InsertionsPct, 0.01)
	assert.InDelta(t, 83.33, jane.BlameLinesPct, 0.01)
	assert.Equal(t, t1, jane.First)
	assert.Equal(t, t2, jane.Last)
	assert.Equal(t, 1, jane.Files)

	require.Len(t, res.Files, 1)

	f := res.Files[0]
	assert.Equal(t, "f.go", f.Path)
	assert.Equal(t, 3, f.Commits)
	assert.Equal(t, 35, f.Insertions)
	assert.Equal(t, 30, f.BlameLines)
	assert.Equal(t, 2, f.Authors)
}

func TestCommitGroupsMergeAdjacentSameAuthor(t *testing.T) {
	a := stats.NewAggregator()

	a.AddFileChange("Jane", "jane@x.com", "c3", t2, "f.go", 1, 0)
	a.AddFileChange("Jane", "jane@x.com", "c2", t1, "f.go", 2, 0)
	a.AddFileChange("Bob", "bob@x.com", "c1", t1, "f.go", 3, 0)
	a.AddFileChange("Jane", "jane@x.com", "c0", t0, "f.go", 4, 0)

	r := identity.NewResolver()
	r.Observe("Jane", "jane@x.com")
	r.Observe("Bob", "bob@x.com")

	res := a.Finalize(r.Resolve(), stats.Options{Now: t2})

	require.Len(t, res.Files, 1)
	groups := res.Files[0].Groups
	require.Len(t, groups, 3)

	assert.Equal(t, []string{"c3", "c2"}, groups[0].SHAs)
	assert.Equal(t, "Jane", groups[0].AuthorName)
	assert.Equal(t, 3, groups[0].Insertions)

	assert.Equal(t, []string{"c1"}, groups[1].SHAs)
	assert.Equal(t, "Bob", groups[1].AuthorName)

	assert.Equal(t, []string{"c0"}, groups[2].SHAs)
}

func TestRenameHistoryOldestFirst(t *testing.T) {
	a := stats.NewAggregator()

	// Walk order is newest first: f.go was once e.go, and before that d.go.
	a.AddFileChange("Jane", "jane@x.com", "c2", t2, "f.go", 10, 0)
	a.AddRename("f.go", "e.go")
	a.AddFileChange("Jane", "jane@x.com", "c1", t1, "f.go", 5, 0)
	a.AddRename("f.go", "d.go")
	a.AddRename("f.go", "e.go")
	a.AddFileChange("Jane", "jane@x.com", "c0", t0, "f.go", 5, 0)

	r := identity.NewResolver()
	r.Observe("Jane", "jane@x.com")

	res := a.Finalize(r.Resolve(), stats.Options{Now: t2})

	require.Len(t, res.Files, 1)
	assert.Equal(t, "f.go", res.Files[0].Path)
	assert.Equal(t, []string{"d.go", "e.go"}, res.Files[0].PreviousNames)
	assert.Equal(t, 20, res.Files[0].Insertions)
}

func TestSignaturesCollapseIntoOnePerson(t *testing.T) {
	a := stats.NewAggregator()

	a.AddFileChange("Jane", "jane@x.com", "c1", t1, "f.go", 10, 0)
	a.AddFileChange("jdoe", "jane@x.com", "c0", t0, "f.go", 10, 0)

	r := identity.NewResolver()
	r.Observe("Jane", "jane@x.com")
	r.Observe("jdoe", "jane@x.com")

	res := a.Finalize(r.Resolve(), stats.Options{Now: t1})

	require.Len(t, res.Authors, 1)
	assert.Equal(t, 20, res.Authors[0].Insertions)
	assert.Equal(t, 2, res.Authors[0].Commits)
}

func TestPercentagesSumToHundred(t *testing.T) {
	a := stats.NewAggregator()

	a.AddFileChange("Jane", "jane@x.com", "c1", t1, "f.go", 60, 0)
	a.AddFileChange("Bob", "bob@x.com", "c0", t0, "f.go", 40, 0)

	r := identity.NewResolver()
	r.Observe("Jane", "jane@x.com")
	r.Observe("Bob", "bob@x.com")

	for _, scaled := range []bool{false, true} {
		res := a.Finalize(r.Resolve(), stats.Options{Now: t1, Scaled: scaled})
		require.Len(t, res.Authors, 2)

		sum := 0.0
		for _, as := range res.Authors {
			sum += as.InsertionsPct
		}
		assert.InDelta(t, 100.0, sum, 0.01)
	}
}

func TestScaledPercentagesRedistribute(t *testing.T) {
	a := stats.NewAggregator()

	a.AddFileChange("Jane", "jane@x.com", "c2", t1, "f.go", 60, 0)
	a.AddFileChange("Bob", "bob@x.com", "c1", t1, "f.go", 20, 0)
	a.AddFileChange("Bot", "noreply@ci.com", "c0", t0, "f.go", 20, 0)

	r := identity.NewResolver()
	r.Observe("Jane", "jane@x.com")
	r.Observe("Bob", "bob@x.com")
	r.Observe("Bot", "noreply@ci.com")

	ex := pattern.MustCompile([]string{"*noreply*"})

	// Without scaling the excluded author keeps its share of the totals.
	res := a.Finalize(r.Resolve(), stats.Options{Now: t1, ExEmails: ex, RemoveExcluded: true})
	require.Len(t, res.Authors, 2)
	assert.InDelta(t, 60.0, res.Authors[0].InsertionsPct, 0.01)

	// Scaled recomputes the denominator over the remaining authors, so
	// their shares sum to 100 again.
	res = a.Finalize(r.Resolve(), stats.Options{Now: t1, ExEmails: ex, RemoveExcluded: true, Scaled: true})
	require.Len(t, res.Authors, 2)
	assert.InDelta(t, 75.0, res.Authors[0].InsertionsPct, 0.01)
	assert.InDelta(t, 25.0, res.Authors[1].InsertionsPct, 0.01)
}

func TestExcludedAuthors(t *testing.T) {
	a := stats.NewAggregator()

	a.AddFileChange("Jane", "jane@x.com", "c1", t1, "f.go", 10, 0)
	a.AddFileChange("Bot", "noreply@ci.com", "c0", t0, "f.go", 10, 0)

	r := identity.NewResolver()
	r.Observe("Jane", "jane@x.com")
	r.Observe("Bot", "noreply@ci.com")

	ex := pattern.MustCompile([]string{"*noreply*"})

	res := a.Finalize(r.Resolve(), stats.Options{Now: t1, ExEmails: ex})
	require.Len(t, res.Authors, 2)

	marked := 0
	for _, as := range res.Authors {
		if as.Excluded {
			marked++
			assert.Equal(t, "Bot", as.Person.Name)
		}
	}
	assert.Equal(t, 1, marked)

	res = a.Finalize(r.Resolve(), stats.Options{Now: t1, ExEmails: ex, RemoveExcluded: true})
	require.Len(t, res.Authors, 1)
	assert.Equal(t, "Jane", res.Authors[0].Person.Name)
	// Without scaling the removed author's share stays with the totals.
	assert.InDelta(t, 50.0, res.Authors[0].InsertionsPct, 0.01)
}

func TestAuthorSortKeys(t *testing.T) {
	build := func() *stats.Aggregator {
		a := stats.NewAggregator()
		a.AddFileChange("Alice", "a@x.com", "c2", t2, "f.go", 5, 0)
		a.AddFileChange("Alice", "a@x.com", "c1", t1, "f.go", 5, 0)
		a.AddFileChange("Zed", "z@x.com", "c0", t0, "f.go", 30, 0)
		a.AddBlameLines("Alice", "a@x.com", "f.go", 20)
		a.AddBlameLines("Zed", "z@x.com", "f.go", 5)

		return a
	}

	r := identity.NewResolver()
	r.Observe("Alice", "a@x.com")
	r.Observe("Zed", "z@x.com")
	people := r.Resolve()

	res := build().Finalize(people, stats.Options{Now: t2})
	assert.Equal(t, "Zed", res.Authors[0].Person.Name) // insertions desc by default

	res = build().Finalize(people, stats.Options{Now: t2, SortKey: "blame-lines"})
	assert.Equal(t, "Alice", res.Authors[0].Person.Name)

	res = build().Finalize(people, stats.Options{Now: t2, SortKey: "commits"})
	assert.Equal(t, "Alice", res.Authors[0].Person.Name)

	res = build().Finalize(people, stats.Options{Now: t2, SortKey: "name"})
	assert.Equal(t, "Alice", res.Authors[0].Person.Name)
}
