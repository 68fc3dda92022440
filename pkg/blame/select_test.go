package blame_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gitinspect/gitinspect/pkg/blame"
	"github.com/gitinspect/gitinspect/pkg/pattern"
)

func sampleFiles() []blame.FileInfo {
	return []blame.FileInfo{
		{Path: "src/big.py", Size: 5000},
		{Path: "src/mid.py", Size: 3000},
		{Path: "src/small.py", Size: 100},
		{Path: "src/logo.png", Size: 90000, Binary: true},
		{Path: "docs/readme.md", Size: 2000},
		{Path: "src/app.js", Size: 4000},
	}
}

func TestSelectRanksBySizeAndCaps(t *testing.T) {
	got := blame.SelectFiles(sampleFiles(), blame.SelectOptions{
		NFiles:     2,
		Extensions: []string{"py", "js"},
	})

	assert.Equal(t, []string{"src/big.py", "src/app.js"}, got)
}

func TestSelectSkipsBinary(t *testing.T) {
	got := blame.SelectFiles(sampleFiles(), blame.SelectOptions{
		Extensions: []string{"*"},
	})

	assert.NotContains(t, got, "src/logo.png")
}

func TestSelectSkipsVendoredPaths(t *testing.T) {
	files := []blame.FileInfo{
		{Path: "src/app.js", Size: 100},
		{Path: "vendor/lib/dep.js", Size: 9000},
		{Path: "node_modules/x/index.js", Size: 9000},
	}

	got := blame.SelectFiles(files, blame.SelectOptions{Extensions: []string{"js"}})

	assert.Equal(t, []string{"src/app.js"}, got)
}

func TestSelectIncludeAdmitsVendoredPaths(t *testing.T) {
	files := []blame.FileInfo{
		{Path: "vendor/lib/dep.js", Size: 9000},
	}

	got := blame.SelectFiles(files, blame.SelectOptions{
		Include: pattern.MustCompile([]string{"vendor/*"}),
	})

	assert.Equal(t, []string{"vendor/lib/dep.js"}, got)
}

func TestSelectNoCapWhenZero(t *testing.T) {
	got := blame.SelectFiles(sampleFiles(), blame.SelectOptions{
		Extensions: []string{"py"},
	})

	assert.Len(t, got, 3)
}

func TestSelectSizeTieBreaksByPath(t *testing.T) {
	files := []blame.FileInfo{
		{Path: "b.py", Size: 100},
		{Path: "a.py", Size: 100},
	}

	got := blame.SelectFiles(files, blame.SelectOptions{Extensions: []string{"py"}})

	assert.Equal(t, []string{"a.py", "b.py"}, got)
}

func TestSelectIncludeOverridesSizeCap(t *testing.T) {
	got := blame.SelectFiles(sampleFiles(), blame.SelectOptions{
		NFiles:  1,
		Include: pattern.MustCompile([]string{"src/*.py"}),
	})

	assert.Equal(t, []string{"src/big.py", "src/mid.py", "src/small.py"}, got)
}

func TestSelectExclude(t *testing.T) {
	got := blame.SelectFiles(sampleFiles(), blame.SelectOptions{
		Extensions: []string{"py"},
		Exclude:    pattern.MustCompile([]string{"*small*"}),
	})

	assert.Equal(t, []string{"src/big.py", "src/mid.py"}, got)
}

func TestSelectSubfolder(t *testing.T) {
	got := blame.SelectFiles(sampleFiles(), blame.SelectOptions{
		Extensions: []string{"*"},
		Subfolder:  "docs",
	})

	assert.Equal(t, []string{"docs/readme.md"}, got)
}

func TestSelectExtensionCaseInsensitive(t *testing.T) {
	files := []blame.FileInfo{{Path: "Main.PY", Size: 10}}

	got := blame.SelectFiles(files, blame.SelectOptions{Extensions: []string{"py"}})

	assert.Equal(t, []string{"Main.PY"}, got)
}
