package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitinspect/gitinspect/pkg/blame"
	"github.com/gitinspect/gitinspect/pkg/identity"
	"github.com/gitinspect/gitinspect/pkg/settings"
	"github.com/gitinspect/gitinspect/pkg/stats"
	"github.com/gitinspect/gitinspect/pkg/walker"
)

func mkRepoDir(t *testing.T, root, name string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, name, ".git"), 0o755))
}

func testSettings(root string) settings.Settings {
	s := settings.Default()
	s.InputPaths = []string{root}

	return s
}

func TestAnalyzeInvalidSettings(t *testing.T) {
	e := New()

	_, err := e.Analyze(context.Background(), settings.Settings{})

	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.ErrorIs(t, err, settings.ErrNoInputPaths)
}

func TestAnalyzeInvalidPattern(t *testing.T) {
	root := t.TempDir()
	mkRepoDir(t, root, "repo")

	s := testSettings(root)
	s.ExFiles = []string{"re:["}

	_, err := New().Analyze(context.Background(), s)

	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))
}

func TestAnalyzeNoRepositories(t *testing.T) {
	s := testSettings(t.TempDir())

	_, err := New().Analyze(context.Background(), s)

	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.ErrorIs(t, err, walker.ErrNoRepositories)
}

func TestAnalyzeInvalidMergeRule(t *testing.T) {
	root := t.TempDir()
	mkRepoDir(t, root, "repo")

	s := testSettings(root)
	s.MergeRules = []string{"only-one"}

	_, err := New().Analyze(context.Background(), s)

	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.ErrorIs(t, err, identity.ErrInvalidMergeRule)
}

// fakeAnalyzer substitutes the per-repository pipeline so orchestration can
// be tested without real git repositories.
func fakeAnalyzer(fail map[string]error) repoAnalyzer {
	return func(_ context.Context, repo walker.Repo, _ *settings.Settings, _ *matchers, resolver *identity.Resolver) (*stats.Aggregator, []blame.Entry, error) {
		if err := fail[repo.Name]; err != nil {
			return nil, nil, err
		}

		resolver.Observe("Jane", "jane@x.com")

		agg := stats.NewAggregator()
		agg.AddFileChange("Jane", "jane@x.com", "c0",
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "f.go", 10, 0)
		agg.AddBlameLines("Jane", "jane@x.com", "f.go", 10)

		entries := []blame.Entry{{Path: "f.go", Line: 1, AuthorName: "Jane", AuthorEmail: "jane@x.com", Text: "x"}}

		return agg, entries, nil
	}
}

func TestAnalyzePartialFailure(t *testing.T) {
	root := t.TempDir()
	mkRepoDir(t, root, "bad")
	mkRepoDir(t, root, "good")

	e := New()
	e.analyze = fakeAnalyzer(map[string]error{
		"bad": E(KindRepositoryAccess, "bad", errors.New("corrupt odb")),
	})

	res, err := e.Analyze(context.Background(), testSettings(root))
	require.NoError(t, err)
	require.Len(t, res.Repos, 2)
	assert.False(t, res.Success())

	bad := res.Repos[0]
	assert.Equal(t, "bad", bad.Name)
	assert.Equal(t, StateFailed, bad.State)
	assert.Equal(t, KindRepositoryAccess, KindOf(bad.Err))
	assert.Nil(t, bad.Stats)

	good := res.Repos[1]
	assert.Equal(t, "good", good.Name)
	assert.Equal(t, StateComplete, good.State)
	require.NotNil(t, good.Stats)
	assert.Equal(t, 1, good.Stats.TotalCommits)
	assert.Len(t, good.Blame, 1)
}

func TestAnalyzeMissingRootFailsAlone(t *testing.T) {
	root := t.TempDir()
	mkRepoDir(t, root, "good")

	e := New()
	e.analyze = fakeAnalyzer(nil)

	s := testSettings(root)
	s.InputPaths = append(s.InputPaths, "/does/not/exist")

	res, err := e.Analyze(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, res.Repos, 2)
	assert.False(t, res.Success())

	good := res.Repos[0]
	assert.Equal(t, "good", good.Name)
	assert.Equal(t, StateComplete, good.State)

	missing := res.Repos[1]
	assert.Equal(t, "/does/not/exist", missing.Name)
	assert.Equal(t, StateFailed, missing.State)
	assert.Equal(t, KindRepositoryAccess, KindOf(missing.Err))
}

func TestAnalyzeCancelled(t *testing.T) {
	root := t.TempDir()
	mkRepoDir(t, root, "repo")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New()
	e.analyze = func(ctx context.Context, _ walker.Repo, _ *settings.Settings, _ *matchers, _ *identity.Resolver) (*stats.Aggregator, []blame.Entry, error) {
		return nil, nil, ctx.Err()
	}

	_, err := e.Analyze(ctx, testSettings(root))

	require.Error(t, err)
	assert.Equal(t, KindCancelled, KindOf(err))
}

func TestAnalyzeObserverSeesLifecycle(t *testing.T) {
	root := t.TempDir()
	mkRepoDir(t, root, "repo")

	var (
		mu     sync.Mutex
		states []State
	)

	e := New(WithObserver(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()

		states = append(states, ev.State)
	}))
	e.analyze = fakeAnalyzer(nil)

	res, err := e.Analyze(context.Background(), testSettings(root))
	require.NoError(t, err)
	assert.True(t, res.Success())

	assert.Equal(t, StateDiscovered, states[0])
	assert.Equal(t, StateComplete, states[len(states)-1])
	assert.Contains(t, states, StateAggregating)
}

func TestBuildResolversGlobalSharesOne(t *testing.T) {
	e := New()

	s := settings.Default()
	s.GlobalIdentities = true

	resolvers, err := e.buildResolvers(&s, 3)
	require.NoError(t, err)
	assert.Same(t, resolvers[0], resolvers[1])
	assert.Same(t, resolvers[1], resolvers[2])

	s.GlobalIdentities = false

	resolvers, err = e.buildResolvers(&s, 2)
	require.NoError(t, err)
	assert.NotSame(t, resolvers[0], resolvers[1])
}

func TestErrorKindsAndMessages(t *testing.T) {
	err := E(KindFileBlame, "demo", errors.New("boom"))

	assert.Equal(t, "file_blame: demo: boom", err.Error())
	assert.Equal(t, KindFileBlame, KindOf(err))
	assert.Equal(t, KindCancelled, KindOf(context.Canceled))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}
