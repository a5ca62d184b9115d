package backoff

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConstant(t *testing.T) {
	s := Constant(250 * time.Millisecond)
	for _, attempt := range []uint{1, 2, 7, 100} {
		assert.Equal(t, 250*time.Millisecond, s(attempt))
	}
}

func TestExponential(t *testing.T) {
	s := Exponential(time.Second, 3)

	var actual []time.Duration
	for attempt := uint(1); attempt <= 4; attempt++ {
		actual = append(actual, s(attempt))
	}
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second, 9 * time.Second, 27 * time.Second}, actual)
}

func TestExponential_Saturates(t *testing.T) {
	s := Exponential(time.Hour, 10)
	assert.Equal(t, time.Duration(math.MaxInt64), s(64))
}

func TestBinaryExponential(t *testing.T) {
	s := BinaryExponential(500 * time.Millisecond)

	assert.Equal(t, 500*time.Millisecond, s(1))
	assert.Equal(t, time.Second, s(2))
	assert.Equal(t, 4*time.Second, s(4))
}
