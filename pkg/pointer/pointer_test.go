package pointer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopy(t *testing.T) {
	assert.Nil(t, StringCopy(nil))

	original := String("value")
	copied := StringCopy(original)
	require.NotNil(t, copied)
	assert.Equal(t, "value", *copied)

	*original = "changed"
	assert.Equal(t, "value", *copied)
}

func TestOrDefault(t *testing.T) {
	assert.EqualValues(t, 5, *Uint64OrDefault(nil, 5))
	assert.EqualValues(t, 1, *Uint64OrDefault(Uint64(1), 5))
}

func TestIfValid(t *testing.T) {
	assert.Nil(t, Uint64IfValid(false, 1))
	assert.EqualValues(t, 1, *Uint64IfValid(true, 1))
	assert.Nil(t, StringIfValid(false, "x"))
	assert.Equal(t, "x", *StringIfValid(true, "x"))
}
