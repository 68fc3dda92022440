package gitlib_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gitinspect/gitinspect/pkg/gitlib"
)

const sampleHex = "0123456789abcdef0123456789abcdef01234567"

func TestNewHashRoundTrip(t *testing.T) {
	t.Parallel()

	h := gitlib.NewHash(sampleHex)

	assert.Equal(t, sampleHex, h.String())
	assert.False(t, h.IsZero())
}

func TestNewHashMalformed(t *testing.T) {
	t.Parallel()

	assert.True(t, gitlib.NewHash("not-hex").IsZero())
	assert.True(t, gitlib.NewHash("").IsZero())
}

func TestHashShort(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "01234567", gitlib.NewHash(sampleHex).Short())
}

func TestHashOidConversion(t *testing.T) {
	t.Parallel()

	h := gitlib.NewHash(sampleHex)

	assert.Equal(t, h, gitlib.HashFromOid(h.ToOid()))
	assert.True(t, gitlib.HashFromOid(nil).IsZero())
}

func TestZeroHash(t *testing.T) {
	t.Parallel()

	var h gitlib.Hash

	assert.True(t, h.IsZero())
	assert.Equal(t, "0000000000000000000000000000000000000000", h.String())
}
