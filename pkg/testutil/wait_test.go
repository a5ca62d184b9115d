package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitFor(t *testing.T) {
	require.NoError(t, WaitFor(50*time.Millisecond, 25*time.Millisecond, func() bool {
		return true
	}))

	require.Error(t, WaitFor(50*time.Millisecond, 25*time.Millisecond, func() bool {
		return false
	}))

	require.Error(t, WaitFor(50*time.Millisecond, 100*time.Millisecond, func() bool {
		return true
	}))

	var calls int
	require.NoError(t, WaitFor(time.Second, time.Millisecond, func() bool {
		calls++
		return calls == 3
	}))
	assert.Equal(t, 3, calls)
}

func TestIsVerbose(t *testing.T) {
	assert.True(t, isVerbose([]string{"-test.run=TestX", "-test.v=true"}))
	assert.True(t, isVerbose([]string{"-test.v"}))
	assert.False(t, isVerbose([]string{"-test.run=TestX"}))
}
