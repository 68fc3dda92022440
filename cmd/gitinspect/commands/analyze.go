// Package commands implements the CLI command handlers for gitinspect.
package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gitinspect/gitinspect/pkg/engine"
	"github.com/gitinspect/gitinspect/pkg/observability"
	"github.com/gitinspect/gitinspect/pkg/settings"
)

// ErrUnknownFormat is returned for output formats other than table, json
// and yaml.
var ErrUnknownFormat = errors.New("unknown output format")

// AnalyzeCommand holds the flag state of the analyze command.
type AnalyzeCommand struct {
	settingsFile string
	format       string

	depth    int
	nFiles   int
	copyMove int

	extensions   []string
	includeFiles []string
	exFiles      []string
	exAuthors    []string
	exEmails     []string
	exRevisions  []string
	exMessages   []string
	mergeRules   []string

	since           string
	until           string
	subfolder       string
	blameExclusions string
	sortKey         string

	scaled           bool
	comments         bool
	emptyLines       bool
	whitespace       bool
	globalIdentities bool
	showProgress     bool

	maxWorkers   int
	blameWorkers int

	logLevel  string
	logFormat string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	cmd, _ := newAnalyzeCommand()

	return cmd
}

func newAnalyzeCommand() (*cobra.Command, *AnalyzeCommand) {
	ac := &AnalyzeCommand{}

	cmd := &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Analyze authorship of one or more repositories",
		Long: `Analyze walks the history of every repository found under the given
paths, blames the selected files and prints per-author and per-file
statistics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ac.run(cmd, args)
		},
	}

	defaults := settings.Default()

	flags := cmd.Flags()
	flags.StringVarP(&ac.settingsFile, "settings", "s", "", "settings file (json, yaml or toml)")
	flags.StringVarP(&ac.format, "format", "F", "table", "output format: table, json or yaml")
	flags.IntVarP(&ac.depth, "depth", "d", defaults.Depth, "repository search depth under each path")
	flags.IntVarP(&ac.nFiles, "n-files", "n", defaults.NFiles, "number of biggest files to blame per repository (0 = all)")
	flags.IntVarP(&ac.copyMove, "copy-move", "M", defaults.CopyMove, "copy/move detection level, 0 to 3")
	flags.StringSliceVarP(&ac.extensions, "extensions", "e", defaults.Extensions, "file extensions to analyze (\"*\" for all)")
	flags.StringSliceVar(&ac.includeFiles, "include-files", nil, "blame exactly the files matching these patterns")
	flags.StringSliceVar(&ac.exFiles, "ex-files", nil, "exclude files matching these patterns")
	flags.StringSliceVar(&ac.exAuthors, "ex-authors", nil, "exclude authors matching these patterns")
	flags.StringSliceVar(&ac.exEmails, "ex-emails", nil, "exclude author emails matching these patterns")
	flags.StringSliceVar(&ac.exRevisions, "ex-revisions", nil, "exclude commits whose hash starts with these prefixes")
	flags.StringSliceVar(&ac.exMessages, "ex-messages", nil, "exclude commits whose summary matches these patterns")
	flags.StringSliceVar(&ac.mergeRules, "merge", nil, "identity merge rules, e.g. 'Jane <jane@x.com>|jdoe'")
	flags.StringVar(&ac.since, "since", "", "only include commits on or after this date (YYYY-MM-DD)")
	flags.StringVar(&ac.until, "until", "", "only include commits on or before this date (YYYY-MM-DD)")
	flags.StringVar(&ac.subfolder, "subfolder", "", "restrict analysis to one subtree of each repository")
	flags.StringVar(&ac.blameExclusions, "blame-exclusions", defaults.BlameExclusions, "excluded author lines: hide, show or remove")
	flags.StringVar(&ac.sortKey, "sort", defaults.SortKey, "author table order: insertions, blame-lines, commits or name")
	flags.BoolVar(&ac.scaled, "scaled-percentages", false, "compute percentages over the non-excluded authors")
	flags.BoolVar(&ac.comments, "comments", false, "count comment lines in blame statistics")
	flags.BoolVar(&ac.emptyLines, "empty-lines", false, "count empty lines in blame statistics")
	flags.BoolVar(&ac.whitespace, "whitespace", false, "count whitespace-only lines in blame statistics")
	flags.BoolVar(&ac.globalIdentities, "global-identities", false, "merge author identities across repositories")
	flags.BoolVar(&ac.showProgress, "progress", false, "log per-repository pipeline progress")
	flags.IntVar(&ac.maxWorkers, "max-workers", defaults.MaxWorkers, "repositories analyzed concurrently")
	flags.IntVar(&ac.blameWorkers, "blame-workers", defaults.BlameWorkers, "files blamed concurrently per repository")
	flags.StringVar(&ac.logLevel, "log-level", defaults.LogLevel, "log level: debug, info, warn or error")
	flags.StringVar(&ac.logFormat, "log-format", defaults.LogFormat, "log format: text or json")

	return cmd, ac
}

func (ac *AnalyzeCommand) run(cmd *cobra.Command, args []string) error {
	s, err := ac.buildSettings(cmd, args)
	if err != nil {
		return err
	}

	if ac.format != formatTable && ac.format != formatJSON && ac.format != formatYAML {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, ac.format)
	}

	log := observability.NewLogger(os.Stderr, s.LogLevel, s.LogFormat)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithMetrics(metrics),
	}

	if ac.showProgress {
		opts = append(opts, engine.WithObserver(func(ev engine.Event) {
			if ev.File != "" {
				log.Info("progress", "repo", ev.Repo, "state", ev.State.String(), "file", ev.File)

				return
			}

			log.Info("progress", "repo", ev.Repo, "state", ev.State.String())
		}))
	}

	res, err := engine.New(opts...).Analyze(cmd.Context(), s)
	if err != nil {
		return err
	}

	if !res.Success() {
		log.Warn("some repositories failed; see per-repository errors in the output")
	}

	hideExcluded := s.BlameExclusions == settings.ExclusionsHide

	return renderResult(cmd.OutOrStdout(), res, ac.format, hideExcluded)
}

// buildSettings layers the settings file under any flags set on the command
// line; positional arguments extend the input paths.
func (ac *AnalyzeCommand) buildSettings(cmd *cobra.Command, args []string) (settings.Settings, error) {
	var s settings.Settings

	if ac.settingsFile != "" {
		loaded, err := settings.Load(ac.settingsFile)
		// A settings file alone may legitimately lack input paths; the
		// positional arguments fill those in below.
		if err != nil && !errors.Is(err, settings.ErrNoInputPaths) {
			return settings.Settings{}, err
		}

		s = loaded
	} else {
		s = settings.Default()
	}

	s.InputPaths = append(s.InputPaths, args...)

	changed := cmd.Flags().Changed

	if changed("depth") {
		s.Depth = ac.depth
	}

	if changed("n-files") {
		s.NFiles = ac.nFiles
	}

	if changed("copy-move") {
		s.CopyMove = ac.copyMove
	}

	if changed("extensions") {
		s.Extensions = ac.extensions
	}

	if changed("include-files") {
		s.IncludeFiles = ac.includeFiles
	}

	if changed("ex-files") {
		s.ExFiles = ac.exFiles
	}

	if changed("ex-authors") {
		s.ExAuthors = ac.exAuthors
	}

	if changed("ex-emails") {
		s.ExEmails = ac.exEmails
	}

	if changed("ex-revisions") {
		s.ExRevisions = ac.exRevisions
	}

	if changed("ex-messages") {
		s.ExMessages = ac.exMessages
	}

	if changed("merge") {
		s.MergeRules = ac.mergeRules
	}

	if changed("since") {
		s.Since = ac.since
	}

	if changed("until") {
		s.Until = ac.until
	}

	if changed("subfolder") {
		s.Subfolder = ac.subfolder
	}

	if changed("blame-exclusions") {
		s.BlameExclusions = ac.blameExclusions
	}

	if changed("sort") {
		s.SortKey = ac.sortKey
	}

	if changed("scaled-percentages") {
		s.ScaledPercentages = ac.scaled
	}

	if changed("comments") {
		s.Comments = ac.comments
	}

	if changed("empty-lines") {
		s.EmptyLines = ac.emptyLines
	}

	if changed("whitespace") {
		s.Whitespace = ac.whitespace
	}

	if changed("global-identities") {
		s.GlobalIdentities = ac.globalIdentities
	}

	if changed("max-workers") {
		s.MaxWorkers = ac.maxWorkers
	}

	if changed("blame-workers") {
		s.BlameWorkers = ac.blameWorkers
	}

	if changed("log-level") {
		s.LogLevel = ac.logLevel
	}

	if changed("log-format") {
		s.LogFormat = ac.logFormat
	}

	return s, nil
}
