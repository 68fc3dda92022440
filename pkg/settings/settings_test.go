package settings_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitinspect/gitinspect/pkg/settings"
)

func validSettings() settings.Settings {
	s := settings.Default()
	s.InputPaths = []string{"/tmp/repos"}

	return s
}

func TestDefaultIsValidWithInput(t *testing.T) {
	s := validSettings()

	require.NoError(t, s.Validate())
	assert.Equal(t, settings.ExclusionsHide, s.BlameExclusions)
	assert.Equal(t, settings.CopyMoveWithinFile, s.CopyMove)
	assert.Equal(t, settings.SortInsertions, s.SortKey)
	assert.Contains(t, s.Extensions, "py")
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*settings.Settings)
		want   error
	}{
		{"no input paths", func(s *settings.Settings) { s.InputPaths = nil }, settings.ErrNoInputPaths},
		{"zero depth", func(s *settings.Settings) { s.Depth = 0 }, settings.ErrInvalidDepth},
		{"negative n_files", func(s *settings.Settings) { s.NFiles = -1 }, settings.ErrInvalidNFiles},
		{"bad since", func(s *settings.Settings) { s.Since = "01/02/2024" }, settings.ErrInvalidDate},
		{"since after until", func(s *settings.Settings) {
			s.Since = "2024-06-01"
			s.Until = "2024-01-01"
		}, settings.ErrSinceAfterUntil},
		{"copy move out of range", func(s *settings.Settings) { s.CopyMove = 4 }, settings.ErrInvalidCopyMove},
		{"bad exclusion mode", func(s *settings.Settings) { s.BlameExclusions = "drop" }, settings.ErrInvalidExclusionMode},
		{"bad sort key", func(s *settings.Settings) { s.SortKey = "age" }, settings.ErrInvalidSortKey},
		{"zero workers", func(s *settings.Settings) { s.MaxWorkers = 0 }, settings.ErrInvalidWorkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(&s)

			assert.ErrorIs(t, s.Validate(), tt.want)
		})
	}
}

func TestDateRange(t *testing.T) {
	s := validSettings()
	s.Since = "2024-03-01"
	s.Until = "2024-03-31"

	since, err := s.SinceTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), since)

	until, err := s.UntilTime()
	require.NoError(t, err)
	assert.True(t, until.After(time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)))
}

func TestEffectiveExtensions(t *testing.T) {
	s := validSettings()
	s.Extensions = nil
	assert.Equal(t, settings.DefaultExtensions, s.EffectiveExtensions())

	s.Extensions = []string{"go"}
	assert.Equal(t, []string{"go"}, s.EffectiveExtensions())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	doc := []byte(`
input_paths:
  - /tmp/repos
n_files: 10
extensions: [go, py]
copy_move: 2
sort_key: commits
`)
	require.NoError(t, os.WriteFile(path, doc, 0o644))

	s, err := settings.Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/tmp/repos"}, s.InputPaths)
	assert.Equal(t, 10, s.NFiles)
	assert.Equal(t, []string{"go", "py"}, s.Extensions)
	assert.Equal(t, settings.CopyMoveAcross, s.CopyMove)
	assert.Equal(t, settings.SortCommits, s.SortKey)
	assert.Equal(t, settings.ExclusionsHide, s.BlameExclusions)
}

func TestLoadInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	require.NoError(t, os.WriteFile(path, []byte("input_paths: [/tmp/r]\ncopy_move: 9\n"), 0o644))

	_, err := settings.Load(path)
	assert.ErrorIs(t, err, settings.ErrInvalidCopyMove)
}

func TestLoadJSONChecksSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	doc := []byte(`{"input_paths": ["/tmp/r"], "n_fles": 3}`)
	require.NoError(t, os.WriteFile(path, doc, 0o644))

	_, err := settings.Load(path)
	assert.ErrorIs(t, err, settings.ErrSchemaViolation)
}

func TestValidateJSON(t *testing.T) {
	good := []byte(`{"input_paths": ["/tmp/r"], "copy_move": 1}`)
	require.NoError(t, settings.ValidateJSON(good))

	bad := []byte(`{"input_paths": "/tmp/r", "unknown_key": true}`)
	err := settings.ValidateJSON(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, settings.ErrSchemaViolation)
}
