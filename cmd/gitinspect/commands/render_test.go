package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gitinspect/gitinspect/pkg/engine"
	"github.com/gitinspect/gitinspect/pkg/identity"
	"github.com/gitinspect/gitinspect/pkg/stats"
)

func sampleResult() *engine.Result {
	jane := &identity.Person{Name: "Jane Doe", Email: "jane@x.com"}
	bot := &identity.Person{Name: "CI Bot", Email: "noreply@ci.com"}

	return &engine.Result{
		Elapsed: 1500 * time.Millisecond,
		Repos: []engine.RepoResult{
			{
				Name:  "demo",
				Path:  "/tmp/demo",
				State: engine.StateComplete,
				Stats: &stats.Result{
					Authors: []stats.AuthorStat{
						{Person: jane, Files: 2, Stat: stats.Stat{Commits: 4, Insertions: 120, BlameLines: 100, Stability: 83, Age: "0:02:10", InsertionsPct: 80, BlameLinesPct: 90}},
						{Person: bot, Excluded: true, Stat: stats.Stat{Commits: 1, Insertions: 30, BlameLines: 10, Stability: 33}},
					},
					Files: []stats.FileStat{
						{Path: "main.go", Authors: 2, Stat: stats.Stat{Commits: 5, Insertions: 150, BlameLines: 110, Age: "0:02:10"}},
					},
				},
			},
			{
				Name:  "broken",
				Path:  "/tmp/broken",
				State: engine.StateFailed,
				Err:   errors.New("corrupt odb"),
			},
		},
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, renderResult(&buf, sampleResult(), formatTable, false))
	out := buf.String()

	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "Jane Doe")
	assert.Contains(t, out, "CI Bot (excluded)")
	assert.Contains(t, out, "main.go")
	assert.Contains(t, out, "corrupt odb")
	assert.Contains(t, out, "analyzed 2 repositories")
}

func TestRenderTableHidesExcluded(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, renderResult(&buf, sampleResult(), formatTable, true))

	assert.Contains(t, buf.String(), "Jane Doe")
	assert.NotContains(t, buf.String(), "CI Bot")
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, renderResult(&buf, sampleResult(), formatJSON, false))

	var rep report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))

	require.Len(t, rep.Repositories, 2)
	assert.Equal(t, "complete", rep.Repositories[0].State)
	assert.Equal(t, "Jane Doe", rep.Repositories[0].Authors[0].Name)
	assert.Equal(t, 100, rep.Repositories[0].Authors[0].BlameLines)
	assert.Equal(t, 2, rep.Repositories[0].Authors[0].Files)
	assert.Equal(t, 2, rep.Repositories[0].Files[0].Authors)
	assert.Equal(t, "failed", rep.Repositories[1].State)
	assert.Equal(t, "corrupt odb", rep.Repositories[1].Error)
	assert.InDelta(t, 1.5, rep.ElapsedSeconds, 0.001)
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, renderResult(&buf, sampleResult(), formatYAML, false))

	var rep report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rep))

	require.Len(t, rep.Repositories, 2)
	assert.Equal(t, "main.go", rep.Repositories[0].Files[0].Path)
}
