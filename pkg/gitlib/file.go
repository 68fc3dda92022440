package gitlib

// File is a blob reachable from a tree, addressed by its repository path.
type File struct {
	Name string
	Hash Hash
	repo *Repository
}

// Size returns the blob size without loading its contents into Go memory.
func (f *File) Size() (int64, error) {
	blob, err := f.repo.LookupBlob(f.Hash)
	if err != nil {
		return 0, err
	}
	defer blob.Free()

	return blob.Size(), nil
}

// Contents loads and returns a copy of the file contents.
func (f *File) Contents() ([]byte, error) {
	blob, err := f.repo.LookupBlob(f.Hash)
	if err != nil {
		return nil, err
	}
	defer blob.Free()

	data := make([]byte, len(blob.Contents()))
	copy(data, blob.Contents())

	return data, nil
}
