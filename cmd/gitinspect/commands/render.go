package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/gitinspect/gitinspect/pkg/engine"
	"github.com/gitinspect/gitinspect/pkg/stats"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// report is the serializable shape of an analysis result.
type report struct {
	Repositories   []repoReport `json:"repositories"        yaml:"repositories"`
	ElapsedSeconds float64      `json:"elapsed_seconds"     yaml:"elapsed_seconds"`
}

type repoReport struct {
	Name    string         `json:"name"              yaml:"name"`
	Path    string         `json:"path"              yaml:"path"`
	State   string         `json:"state"             yaml:"state"`
	Error   string         `json:"error,omitempty"   yaml:"error,omitempty"`
	Authors []authorReport `json:"authors,omitempty" yaml:"authors,omitempty"`
	Files   []fileReport   `json:"files,omitempty"   yaml:"files,omitempty"`
}

type authorReport struct {
	Name          string  `json:"name"            yaml:"name"`
	Email         string  `json:"email"           yaml:"email"`
	Commits       int     `json:"commits"         yaml:"commits"`
	Insertions    int     `json:"insertions"      yaml:"insertions"`
	Deletions     int     `json:"deletions"       yaml:"deletions"`
	BlameLines    int     `json:"blame_lines"     yaml:"blame_lines"`
	Files         int     `json:"files"           yaml:"files"`
	Stability     int     `json:"stability"       yaml:"stability"`
	Age           string  `json:"age"             yaml:"age"`
	FirstCommit   string  `json:"first_commit,omitempty" yaml:"first_commit,omitempty"`
	LastCommit    string  `json:"last_commit,omitempty"  yaml:"last_commit,omitempty"`
	InsertionsPct float64 `json:"insertions_pct"  yaml:"insertions_pct"`
	BlameLinesPct float64 `json:"blame_lines_pct" yaml:"blame_lines_pct"`
	Excluded      bool    `json:"excluded"        yaml:"excluded"`
}

type fileReport struct {
	Path          string   `json:"path"           yaml:"path"`
	PreviousNames []string `json:"previous_names,omitempty" yaml:"previous_names,omitempty"`
	Commits       int      `json:"commits"        yaml:"commits"`
	Authors       int      `json:"authors"        yaml:"authors"`
	Insertions    int      `json:"insertions"     yaml:"insertions"`
	BlameLines    int      `json:"blame_lines"    yaml:"blame_lines"`
	Age           string   `json:"age"            yaml:"age"`
}

// renderResult writes an analysis result in the requested format. With
// hideExcluded, excluded authors are dropped from the output while still
// counting toward the totals they were aggregated into.
func renderResult(w io.Writer, res *engine.Result, format string, hideExcluded bool) error {
	rep := buildReport(res, hideExcluded)

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		return nil
	case formatYAML:
		if err := yaml.NewEncoder(w).Encode(rep); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return nil
	default:
		renderTables(w, rep)

		return nil
	}
}

func buildReport(res *engine.Result, hideExcluded bool) report {
	rep := report{ElapsedSeconds: res.Elapsed.Seconds()}

	for _, repo := range res.Repos {
		rr := repoReport{
			Name:  repo.Name,
			Path:  repo.Path,
			State: repo.State.String(),
		}

		if repo.Err != nil {
			rr.Error = repo.Err.Error()
		}

		if repo.Stats != nil {
			rr.Authors = buildAuthors(repo.Stats.Authors, hideExcluded)
			rr.Files = buildFiles(repo.Stats.Files)
		}

		rep.Repositories = append(rep.Repositories, rr)
	}

	return rep
}

func buildAuthors(authors []stats.AuthorStat, hideExcluded bool) []authorReport {
	var out []authorReport

	for _, a := range authors {
		if a.Excluded && hideExcluded {
			continue
		}

		out = append(out, authorReport{
			Name:          a.Person.Name,
			Email:         a.Person.Email,
			Commits:       a.Commits,
			Insertions:    a.Insertions,
			Deletions:     a.Deletions,
			BlameLines:    a.BlameLines,
			Files:         a.Files,
			Stability:     a.Stability,
			Age:           a.Age,
			FirstCommit:   activityDate(a.First),
			LastCommit:    activityDate(a.Last),
			InsertionsPct: a.InsertionsPct,
			BlameLinesPct: a.BlameLinesPct,
			Excluded:      a.Excluded,
		})
	}

	return out
}

func activityDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format("2006-01-02")
}

func buildFiles(files []stats.FileStat) []fileReport {
	var out []fileReport

	for _, f := range files {
		out = append(out, fileReport{
			Path:          f.Path,
			PreviousNames: f.PreviousNames,
			Commits:       f.Commits,
			Authors:       f.Authors,
			Insertions:    f.Insertions,
			BlameLines:    f.BlameLines,
			Age:           f.Age,
		})
	}

	return out
}

func renderTables(w io.Writer, rep report) {
	heading := color.New(color.FgCyan, color.Bold)
	failed := color.New(color.FgRed)

	for _, repo := range rep.Repositories {
		heading.Fprintf(w, "\n%s (%s)\n", repo.Name, repo.Path)

		if repo.Error != "" {
			failed.Fprintf(w, "  %s: %s\n", repo.State, repo.Error)

			continue
		}

		renderAuthorTable(w, repo.Authors)
		renderFileTable(w, repo.Files)
	}

	fmt.Fprintf(w, "\nanalyzed %d repositories in %.1fs\n", len(rep.Repositories), rep.ElapsedSeconds)
}

func renderAuthorTable(w io.Writer, authors []authorReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Author", "Email", "Commits", "Insertions", "%", "Blame lines", "%", "Files", "Stability", "Age"})

	for _, a := range authors {
		name := a.Name
		if a.Excluded {
			name += " (excluded)"
		}

		stability := "-"
		if a.Stability >= 0 {
			stability = fmt.Sprintf("%d%%", a.Stability)
		}

		t.AppendRow(table.Row{
			name,
			a.Email,
			humanize.Comma(int64(a.Commits)),
			humanize.Comma(int64(a.Insertions)),
			fmt.Sprintf("%.1f", a.InsertionsPct),
			humanize.Comma(int64(a.BlameLines)),
			fmt.Sprintf("%.1f", a.BlameLinesPct),
			humanize.Comma(int64(a.Files)),
			stability,
			a.Age,
		})
	}

	t.Render()
}

func renderFileTable(w io.Writer, files []fileReport) {
	if len(files) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"File", "Commits", "Authors", "Insertions", "Blame lines", "Age"})

	for _, f := range files {
		t.AppendRow(table.Row{
			f.Path,
			humanize.Comma(int64(f.Commits)),
			humanize.Comma(int64(f.Authors)),
			humanize.Comma(int64(f.Insertions)),
			humanize.Comma(int64(f.BlameLines)),
			f.Age,
		})
	}

	t.Render()
}
