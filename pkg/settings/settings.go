// Package settings defines the validated configuration record consumed by the
// analysis engine, together with its loader and validation rules. The engine
// never reads configuration from anywhere else: callers construct or load a
// Settings value, validate it, and pass it to engine.Analyze.
package settings

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Sentinel validation errors. All of them surface to callers as a
// ConfigurationError (engine.KindConfiguration).
var (
	ErrNoInputPaths         = errors.New("at least one repository root path is required")
	ErrInvalidDepth         = errors.New("search depth must be at least 1")
	ErrInvalidNFiles        = errors.New("n_files must be non-negative")
	ErrInvalidDate          = errors.New("invalid date, expected YYYY-MM-DD")
	ErrSinceAfterUntil      = errors.New("since is after until")
	ErrInvalidCopyMove      = errors.New("copy/move detection level must be between 0 and 3")
	ErrInvalidExclusionMode = errors.New("blame exclusion mode must be hide, show or remove")
	ErrInvalidSortKey       = errors.New("unknown sort key")
	ErrInvalidWorkers       = errors.New("worker counts must be at least 1")
)

// Blame exclusion modes: what happens to blame entries of excluded authors.
const (
	ExclusionsHide   = "hide"   // entries kept, marked excluded, hidden by default
	ExclusionsShow   = "show"   // entries kept, marked excluded, shown
	ExclusionsRemove = "remove" // entries dropped from the result
)

// Sort keys for the per-repository author table.
const (
	SortBlameLines = "blame-lines"
	SortInsertions = "insertions"
	SortCommits    = "commits"
	SortName       = "name"
)

// Copy/move detection levels, mirroring the blame -M/-C ladder.
const (
	CopyMoveNone       = 0 // no detection
	CopyMoveWithinFile = 1 // lines moved within the same file
	CopyMoveAcross     = 2 // lines moved from other files changed in the same commit
	CopyMoveFull       = 3 // lines copied from any file touched in the same commit
)

// DateFormat is the accepted layout for Since/Until.
const DateFormat = "2006-01-02"

// DefaultExtensions is the file extension set analyzed when none is
// configured.
var DefaultExtensions = []string{
	"c", "cc", "cif", "cpp", "glsl", "h", "hh", "hpp",
	"java", "js", "py", "rb", "sql", "ts",
}

// Settings is the complete, flat input contract of the engine. Field names
// follow the settings file keys (snake_case via mapstructure).
type Settings struct {
	// Repository discovery.
	InputPaths []string `mapstructure:"input_paths" json:"input_paths" yaml:"input_paths"`
	Depth      int      `mapstructure:"depth"       json:"depth"       yaml:"depth"`
	Subfolder  string   `mapstructure:"subfolder"   json:"subfolder"   yaml:"subfolder"`

	// File selection.
	NFiles       int      `mapstructure:"n_files"       json:"n_files"       yaml:"n_files"`
	IncludeFiles []string `mapstructure:"include_files" json:"include_files" yaml:"include_files"`
	ExFiles      []string `mapstructure:"ex_files"      json:"ex_files"      yaml:"ex_files"`
	Extensions   []string `mapstructure:"extensions"    json:"extensions"    yaml:"extensions"`

	// History filtering.
	ExAuthors   []string `mapstructure:"ex_authors"   json:"ex_authors"   yaml:"ex_authors"`
	ExEmails    []string `mapstructure:"ex_emails"    json:"ex_emails"    yaml:"ex_emails"`
	ExRevisions []string `mapstructure:"ex_revisions" json:"ex_revisions" yaml:"ex_revisions"`
	ExMessages  []string `mapstructure:"ex_messages"  json:"ex_messages"  yaml:"ex_messages"`
	Since       string   `mapstructure:"since"        json:"since"        yaml:"since"`
	Until       string   `mapstructure:"until"        json:"until"        yaml:"until"`

	// Blame behavior.
	CopyMove        int    `mapstructure:"copy_move"        json:"copy_move"        yaml:"copy_move"`
	BlameExclusions string `mapstructure:"blame_exclusions" json:"blame_exclusions" yaml:"blame_exclusions"`

	// Statistics behavior.
	ScaledPercentages bool   `mapstructure:"scaled_percentages" json:"scaled_percentages" yaml:"scaled_percentages"`
	Comments          bool   `mapstructure:"comments"           json:"comments"           yaml:"comments"`
	EmptyLines        bool   `mapstructure:"empty_lines"        json:"empty_lines"        yaml:"empty_lines"`
	Whitespace        bool   `mapstructure:"whitespace"         json:"whitespace"         yaml:"whitespace"`
	SortKey           string `mapstructure:"sort_key"           json:"sort_key"           yaml:"sort_key"`

	// Identity merging.
	MergeRules       []string `mapstructure:"merge_rules"       json:"merge_rules"       yaml:"merge_rules"`
	GlobalIdentities bool     `mapstructure:"global_identities" json:"global_identities" yaml:"global_identities"`

	// Concurrency hints.
	MaxWorkers   int `mapstructure:"max_workers"   json:"max_workers"   yaml:"max_workers"`
	BlameWorkers int `mapstructure:"blame_workers" json:"blame_workers" yaml:"blame_workers"`

	// Logging.
	LogLevel  string `mapstructure:"log_level"  json:"log_level"  yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" json:"log_format" yaml:"log_format"`
}

// Default returns the settings used when a field is not configured.
func Default() Settings {
	return Settings{
		Depth:           5,
		NFiles:          5,
		Extensions:      append([]string(nil), DefaultExtensions...),
		CopyMove:        CopyMoveWithinFile,
		BlameExclusions: ExclusionsHide,
		SortKey:         SortInsertions,
		MaxWorkers:      runtime.NumCPU(),
		BlameWorkers:    6,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Validate checks the settings for invalid or contradictory values. It
// returns the first problem found; pattern lists are not compiled here (the
// engine compiles them and reports the offending pattern).
func (s *Settings) Validate() error {
	if len(s.InputPaths) == 0 {
		return ErrNoInputPaths
	}

	if s.Depth < 1 {
		return ErrInvalidDepth
	}

	if s.NFiles < 0 {
		return ErrInvalidNFiles
	}

	since, err := s.SinceTime()
	if err != nil {
		return err
	}

	until, err := s.UntilTime()
	if err != nil {
		return err
	}

	if !since.IsZero() && !until.IsZero() && since.After(until) {
		return fmt.Errorf("%w: since=%s until=%s", ErrSinceAfterUntil, s.Since, s.Until)
	}

	if s.CopyMove < CopyMoveNone || s.CopyMove > CopyMoveFull {
		return fmt.Errorf("%w: %d", ErrInvalidCopyMove, s.CopyMove)
	}

	switch s.BlameExclusions {
	case ExclusionsHide, ExclusionsShow, ExclusionsRemove:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidExclusionMode, s.BlameExclusions)
	}

	switch s.SortKey {
	case SortBlameLines, SortInsertions, SortCommits, SortName:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSortKey, s.SortKey)
	}

	if s.MaxWorkers < 1 || s.BlameWorkers < 1 {
		return ErrInvalidWorkers
	}

	return nil
}

// SinceTime parses the Since date. The zero time means unbounded.
func (s *Settings) SinceTime() (time.Time, error) {
	return parseDate(s.Since)
}

// UntilTime parses the Until date. The range is inclusive, so the parsed day
// is extended to its last instant. The zero time means unbounded.
func (s *Settings) UntilTime() (time.Time, error) {
	t, err := parseDate(s.Until)
	if err != nil || t.IsZero() {
		return t, err
	}

	return t.Add(24*time.Hour - time.Nanosecond), nil
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(DateFormat, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, v)
	}

	return t, nil
}

// EffectiveExtensions returns the configured extension set, or the default
// one when empty. The wildcard "*" admits every extension.
func (s *Settings) EffectiveExtensions() []string {
	if len(s.Extensions) == 0 {
		return DefaultExtensions
	}

	return s.Extensions
}
