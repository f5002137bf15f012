package token

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpaque_Generate(t *testing.T) {
	o := NewOpaque()

	a, err := o.Generate()
	require.NoError(t, err)
	b, err := o.Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, OpaqueSize)
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
}

func TestOpaque_Generate_ShortRead(t *testing.T) {
	o := &Opaque{random: bytes.NewReader([]byte{1, 2, 3})}

	_, err := o.Generate()
	require.Error(t, err)
}

func TestOpaque_Digest(t *testing.T) {
	o := NewOpaque()

	d1 := o.Digest("secret")
	d2 := o.Digest("secret")
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)
	assert.Equal(t, "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b", d1)
	assert.NotEqual(t, d1, o.Digest("secret2"))
}
