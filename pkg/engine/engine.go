// Package engine orchestrates the analysis of one or more repositories:
// discovery, history walking, blame extraction, identity resolution and
// statistics aggregation, with bounded concurrency across repositories.
package engine

import (
	"context"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gitinspect/gitinspect/pkg/blame"
	"github.com/gitinspect/gitinspect/pkg/gitlib"
	"github.com/gitinspect/gitinspect/pkg/identity"
	"github.com/gitinspect/gitinspect/pkg/observability"
	"github.com/gitinspect/gitinspect/pkg/pattern"
	"github.com/gitinspect/gitinspect/pkg/settings"
	"github.com/gitinspect/gitinspect/pkg/stats"
	"github.com/gitinspect/gitinspect/pkg/walker"
)

// State tracks a repository through the pipeline.
type State int

const (
	// StateDiscovered means the repository was found but not started.
	StateDiscovered State = iota
	// StateWalking means its history is being read.
	StateWalking
	// StateBlaming means its files are being blamed.
	StateBlaming
	// StateAggregating means statistics are being finalized.
	StateAggregating
	// StateComplete means analysis finished.
	StateComplete
	// StateFailed means analysis stopped on an error.
	StateFailed
)

// String returns the state name used in progress events and logs.
func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateWalking:
		return "walking"
	case StateBlaming:
		return "blaming"
	case StateAggregating:
		return "aggregating"
	case StateComplete:
		return "complete"
	default:
		return "failed"
	}
}

// Event is one progress notification. File is set only for per-file blame
// progress, alongside StateBlaming.
type Event struct {
	Repo  string
	State State
	File  string
}

// Observer receives progress events. Events for different repositories may
// arrive interleaved, and per-file events arrive concurrently from the blame
// workers, but each repository's states arrive in pipeline order.
type Observer func(Event)

// RepoResult is the outcome for one repository. Failed repositories carry
// their error; the others carry statistics and blame entries.
type RepoResult struct {
	Name  string
	Path  string
	State State
	Stats *stats.Result
	Blame []blame.Entry
	Err   error
}

// Result is the outcome of one Analyze call, in discovery order.
type Result struct {
	Repos   []RepoResult
	Elapsed time.Duration
}

// Success reports whether every repository completed.
func (r *Result) Success() bool {
	for _, repo := range r.Repos {
		if repo.State == StateFailed {
			return false
		}
	}

	return true
}

// matchers holds the compiled pattern sets of one run.
type matchers struct {
	include    *pattern.Matcher
	exclude    *pattern.Matcher
	exAuthors  *pattern.Matcher
	exEmails   *pattern.Matcher
	exMessages *pattern.Matcher
}

type repoAnalyzer func(ctx context.Context, repo walker.Repo, s *settings.Settings, m *matchers, resolver *identity.Resolver) (*stats.Aggregator, []blame.Entry, error)

// Engine runs analyses. The zero value is not usable; construct with New.
type Engine struct {
	log      *slog.Logger
	metrics  *observability.Metrics
	observer Observer
	analyze  repoAnalyzer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithObserver sets the progress event receiver.
func WithObserver(obs Observer) Option {
	return func(e *Engine) { e.observer = obs }
}

// New returns an engine with the given options applied.
func New(opts ...Option) *Engine {
	e := &Engine{
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.analyze == nil {
		e.analyze = e.runRepo
	}

	return e
}

// Analyze runs the full pipeline for the configured input paths. It returns
// a non-nil error only for configuration problems and cancellation; a
// repository that fails mid-run is reported in its RepoResult while the
// others complete.
func (e *Engine) Analyze(ctx context.Context, s settings.Settings) (*Result, error) {
	start := time.Now()

	if err := s.Validate(); err != nil {
		return nil, E(KindConfiguration, "", err)
	}

	m, err := compileMatchers(&s)
	if err != nil {
		return nil, E(KindConfiguration, "", err)
	}

	repos, badRoots, err := walker.Discover(s.InputPaths, s.Depth)
	if err != nil {
		return nil, E(KindConfiguration, "", err)
	}

	resolvers, err := e.buildResolvers(&s, len(repos))
	if err != nil {
		return nil, E(KindConfiguration, "", err)
	}

	results := make([]RepoResult, len(repos), len(repos)+len(badRoots))
	aggs := make([]*stats.Aggregator, len(repos))

	for i, repo := range repos {
		results[i] = RepoResult{Name: repo.Name, Path: repo.Path, State: StateDiscovered}
		e.emit(repo.Name, StateDiscovered)
	}

	// A root that is missing or unreadable fails on its own; the valid
	// roots still produce full results.
	for _, br := range badRoots {
		e.log.Error("input path unusable", "root", br.Root, "err", br.Err)
		e.emit(br.Root, StateFailed)
		results = append(results, RepoResult{
			Name:  br.Root,
			Path:  br.Root,
			State: StateFailed,
			Err:   E(KindRepositoryAccess, br.Root, br.Err),
		})
	}

	g := new(errgroup.Group)
	g.SetLimit(s.MaxWorkers)

	for i, repo := range repos {
		g.Go(func() error {
			repoStart := time.Now()

			agg, entries, repoErr := e.analyze(ctx, repo, &s, m, resolvers[i])
			if repoErr != nil {
				results[i].State = StateFailed
				results[i].Err = repoErr

				kind := KindOf(repoErr)
				e.log.Error("repository analysis failed",
					"repo", repo.Name, "kind", kind.String(), "err", repoErr)
				e.observeRepo(time.Since(repoStart), kind.String())
				e.emit(repo.Name, StateFailed)

				return nil
			}

			aggs[i] = agg
			results[i].Blame = entries
			e.observeRepo(time.Since(repoStart), "")

			return nil
		})
	}

	_ = g.Wait()

	// Aggregation runs after every walk finished so that, with global
	// identities, merges observed in one repository apply to all.
	e.finalize(&s, m, results, aggs, resolvers)

	res := &Result{Repos: results, Elapsed: time.Since(start)}

	// On cancellation the repositories that finished stay complete; the
	// interrupted ones already carry their cancelled error.
	if err := ctx.Err(); err != nil {
		return res, E(KindCancelled, "", err)
	}

	return res, nil
}

func (e *Engine) finalize(s *settings.Settings, m *matchers, results []RepoResult, aggs []*stats.Aggregator, resolvers []*identity.Resolver) {
	for i := range results {
		if results[i].State == StateFailed || aggs[i] == nil {
			continue
		}

		e.emit(results[i].Name, StateAggregating)

		people := resolvers[i].Resolve()
		results[i].Stats = aggs[i].Finalize(people, stats.Options{
			Scaled:         s.ScaledPercentages,
			SortKey:        s.SortKey,
			ExAuthors:      m.exAuthors,
			ExEmails:       m.exEmails,
			RemoveExcluded: s.BlameExclusions == settings.ExclusionsRemove,
		})

		results[i].State = StateComplete
		e.emit(results[i].Name, StateComplete)
		e.log.Info("repository analyzed",
			"repo", results[i].Name,
			"authors", len(results[i].Stats.Authors),
			"files", len(results[i].Stats.Files),
			"blame_lines", len(results[i].Blame))
	}
}

// buildResolvers returns one resolver per repository, or the same shared
// resolver for every slot when identities are merged globally.
func (e *Engine) buildResolvers(s *settings.Settings, n int) ([]*identity.Resolver, error) {
	resolvers := make([]*identity.Resolver, n)

	shared := identity.NewResolver()
	if err := addRules(shared, s.MergeRules); err != nil {
		return nil, err
	}

	for i := range resolvers {
		if s.GlobalIdentities {
			resolvers[i] = shared

			continue
		}

		r := identity.NewResolver()
		if err := addRules(r, s.MergeRules); err != nil {
			return nil, err
		}

		resolvers[i] = r
	}

	return resolvers, nil
}

func addRules(r *identity.Resolver, rules []string) error {
	for _, rule := range rules {
		if err := r.AddRule(rule); err != nil {
			return err
		}
	}

	return nil
}

// runRepo is the production per-repository pipeline: walk, then blame.
func (e *Engine) runRepo(ctx context.Context, repo walker.Repo, s *settings.Settings, m *matchers, resolver *identity.Resolver) (*stats.Aggregator, []blame.Entry, error) {
	since, _ := s.SinceTime()
	until, _ := s.UntilTime()

	selectOpts := blame.SelectOptions{
		NFiles:     s.NFiles,
		Include:    m.include,
		Exclude:    m.exclude,
		Extensions: s.EffectiveExtensions(),
		Subfolder:  s.Subfolder,
	}

	e.emit(repo.Name, StateWalking)

	r, err := gitlib.Open(repo.Path)
	if err != nil {
		return nil, nil, E(KindRepositoryAccess, repo.Name, err)
	}
	defer r.Free()

	if _, err := r.Head(); err != nil {
		return nil, nil, E(KindRepositoryAccess, repo.Name, err)
	}

	agg := stats.NewAggregator()

	filter := walker.Filter{
		Since:       since,
		Until:       until,
		ExRevisions: s.ExRevisions,
		ExMessages:  m.exMessages,
	}

	w := walker.New(r, filter, true)

	// canonical maps older file names forward to the newest name, so a
	// renamed file accumulates one statistic under its current path.
	canonical := make(map[string]string)

	// The walk visits newest first; the first admitted commit becomes
	// the blame reference, so blame reflects the tree as of the date
	// filters rather than an unconditional HEAD.
	var ref gitlib.Hash

	currentName := func(path string) string {
		for {
			next, ok := canonical[path]
			if !ok || next == path {
				return path
			}

			path = next
		}
	}

	err = w.Walk(ctx, func(ci walker.CommitInfo) error {
		if ref.IsZero() {
			ref = ci.Hash
		}

		resolver.Observe(ci.Author.Name, ci.Author.Email)

		for _, ch := range ci.Changes {
			path := currentName(ch.Path)

			if ch.OldPath != "" && ch.OldPath != ch.Path && ch.OldPath != path {
				canonical[ch.OldPath] = path
				agg.AddRename(path, ch.OldPath)
			}

			if !selectOpts.Admit(path) {
				continue
			}

			agg.AddFileChange(ci.Author.Name, ci.Author.Email, ci.Hash.String(),
				ci.Author.When, path, ch.Insertions, ch.Deletions)
		}

		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, err
		}

		return nil, nil, E(KindRepositoryAccess, repo.Name, err)
	}

	if ref.IsZero() {
		// No commit passed the filters: an empty result, not an error.
		return agg, nil, nil
	}

	e.emit(repo.Name, StateBlaming)

	extractor := blame.NewExtractor(repo.Path, blame.Options{
		Select:        selectOpts,
		CopyMove:      s.CopyMove,
		Workers:       s.BlameWorkers,
		ExAuthors:     m.exAuthors,
		ExEmails:      m.exEmails,
		ExRevisions:   s.ExRevisions,
		ExclusionMode: s.BlameExclusions,
		OnFile: func(path string) {
			if e.observer != nil {
				e.observer(Event{Repo: repo.Name, State: StateBlaming, File: path})
			}
		},
	})

	entries, skipped, err := extractor.Run(ctx, ref)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, err
		}

		return nil, nil, E(KindFileBlame, repo.Name, err)
	}

	// A file that cannot be blamed is dropped from the statistics; the
	// repository still completes.
	for _, fe := range skipped {
		e.log.Warn("skipping unblameable file", "repo", repo.Name, "file", fe.Path, "err", fe.Err)
	}

	e.countBlame(agg, resolver, entries, s)

	return agg, entries, nil
}

// countBlame feeds countable blame lines into the aggregator. Comment and
// empty lines count only when configured to.
func (e *Engine) countBlame(agg *stats.Aggregator, resolver *identity.Resolver, entries []blame.Entry, s *settings.Settings) {
	files := make(map[string]struct{})

	for _, entry := range entries {
		files[entry.Path] = struct{}{}
		resolver.Observe(entry.AuthorName, entry.AuthorEmail)

		switch entry.Kind {
		case blame.Comment:
			if !s.Comments {
				continue
			}
		case blame.Empty:
			if !s.EmptyLines {
				continue
			}
		case blame.Whitespace:
			if !s.Whitespace {
				continue
			}
		case blame.Code:
		}

		agg.AddBlameLines(entry.AuthorName, entry.AuthorEmail, entry.Path, 1)
	}

	if e.metrics != nil {
		e.metrics.FilesBlamed.Add(float64(len(files)))
		e.metrics.BlameLines.Add(float64(len(entries)))
	}
}

func (e *Engine) emit(repo string, state State) {
	if e.observer != nil {
		e.observer(Event{Repo: repo, State: state})
	}
}

func (e *Engine) observeRepo(elapsed time.Duration, failureKind string) {
	if e.metrics != nil {
		e.metrics.ObserveRepo(elapsed, failureKind)
	}
}

func compileMatchers(s *settings.Settings) (*matchers, error) {
	m := &matchers{}

	for _, c := range []struct {
		dst      **pattern.Matcher
		patterns []string
	}{
		{&m.include, s.IncludeFiles},
		{&m.exclude, s.ExFiles},
		{&m.exAuthors, s.ExAuthors},
		{&m.exEmails, s.ExEmails},
		{&m.exMessages, s.ExMessages},
	} {
		compiled, err := pattern.Compile(c.patterns)
		if err != nil {
			return nil, err
		}

		*c.dst = compiled
	}

	return m, nil
}
