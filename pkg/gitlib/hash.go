// Package gitlib wraps the libgit2 operations the analysis engine needs:
// repository access, revision walking, tree diffs and blame.
package gitlib

import (
	"encoding/hex"

	git2go "github.com/libgit2/git2go/v34"
)

// HashSize is the size of a SHA-1 hash in bytes.
const HashSize = 20

// Hash is a git object id.
type Hash [HashSize]byte

// NewHash parses a hex string into a Hash. Short or malformed input yields
// a partially filled hash; callers validate ids elsewhere.
func NewHash(s string) Hash {
	var h Hash

	b, err := hex.DecodeString(s)
	if err == nil {
		copy(h[:], b)
	}

	return h
}

// HashFromOid converts a libgit2 Oid to a Hash.
func HashFromOid(oid *git2go.Oid) Hash {
	var h Hash
	if oid != nil {
		copy(h[:], oid[:])
	}

	return h
}

// ToOid converts the hash to a libgit2 Oid.
func (h Hash) ToOid() *git2go.Oid {
	oid := new(git2go.Oid)
	copy(oid[:], h[:])

	return oid
}

// String returns the full hex form.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the abbreviated hex form used in tables.
func (h Hash) Short() string {
	return h.String()[:8]
}

// IsZero reports whether the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}
