// Package blame attributes the lines of a repository's files to the commits
// that introduced them, classifies lines as code, comments or blanks, and
// optionally chases moved and copied lines back to their origin.
package blame

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/src-d/enry/v2"

	"github.com/gitinspect/gitinspect/pkg/gitlib"
	"github.com/gitinspect/gitinspect/pkg/pattern"
)

// FileInfo describes one candidate file of the blamed tree.
type FileInfo struct {
	Path   string
	Size   int64
	Binary bool
}

// SelectOptions controls which tree files are blamed.
type SelectOptions struct {
	// NFiles caps selection at the N largest files; zero means no cap.
	// Ignored when Include is non-empty.
	NFiles int

	// Include, when non-empty, selects exactly the matching files.
	Include *pattern.Matcher

	// Exclude drops matching files unconditionally.
	Exclude *pattern.Matcher

	// Extensions admits files by extension; "*" admits every extension.
	Extensions []string

	// Subfolder restricts selection to one subtree of the repository.
	Subfolder string
}

// SelectFiles filters and ranks candidate files. Binary files are always
// skipped. Without an include list, files are ranked by blob size,
// largest first, and capped at NFiles; with one, every matching file is
// selected. Ties in size break by path so selection is deterministic.
func SelectFiles(files []FileInfo, opts SelectOptions) []string {
	eligible := make([]FileInfo, 0, len(files))

	for _, f := range files {
		if f.Binary || !opts.Admit(f.Path) {
			continue
		}

		// Vendored trees are noise in authorship numbers unless asked
		// for by name.
		if enry.IsVendor(f.Path) && !opts.Include.Match(f.Path) {
			continue
		}

		eligible = append(eligible, f)
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Size != eligible[j].Size {
			return eligible[i].Size > eligible[j].Size
		}

		return eligible[i].Path < eligible[j].Path
	})

	if opts.Include.Empty() && opts.NFiles > 0 && len(eligible) > opts.NFiles {
		eligible = eligible[:opts.NFiles]
	}

	paths := make([]string, len(eligible))
	for i, f := range eligible {
		paths[i] = f.Path
	}

	return paths
}

// Admit reports whether a path passes the subfolder, exclusion, include and
// extension rules. The size cap does not apply here; history statistics
// admit every matching file while blame is capped separately.
func (o SelectOptions) Admit(path string) bool {
	if !underSubfolder(path, o.Subfolder) || o.Exclude.Match(path) {
		return false
	}

	if !o.Include.Empty() {
		return o.Include.Match(path)
	}

	return admitsExtension(o.Extensions, path)
}

func underSubfolder(path, subfolder string) bool {
	if subfolder == "" {
		return true
	}

	prefix := strings.TrimSuffix(subfolder, "/") + "/"

	return strings.HasPrefix(path, prefix)
}

func admitsExtension(extensions []string, path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")

	for _, e := range extensions {
		if e == "*" || strings.EqualFold(e, ext) {
			return true
		}
	}

	return false
}

// ListFiles inventories the tree of a commit: every blob with its size and
// binary flag. Binary detection samples the blob head the way language
// classifiers do.
func ListFiles(repo *gitlib.Repository, commit gitlib.Hash) ([]FileInfo, error) {
	c, err := repo.LookupCommit(commit)
	if err != nil {
		return nil, err
	}
	defer c.Free()

	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	defer tree.Free()

	files, err := tree.Files()
	if err != nil {
		return nil, err
	}

	infos := make([]FileInfo, 0, len(files))

	for _, f := range files {
		blob, err := repo.LookupBlob(f.Hash)
		if err != nil {
			continue
		}

		sample := blob.Contents()
		if len(sample) > 8000 {
			sample = sample[:8000]
		}

		infos = append(infos, FileInfo{
			Path:   f.Name,
			Size:   blob.Size(),
			Binary: enry.IsBinary(sample),
		})

		blob.Free()
	}

	return infos, nil
}
