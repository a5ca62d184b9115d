package retry

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/alizeeshan1234/er-transfer/pkg/retry/backoff"
)

var errTest = errors.New("test")

func TestLimit(t *testing.T) {
	s := Limit(3)
	assert.True(t, s(1, errTest))
	assert.True(t, s(2, errTest))
	assert.False(t, s(3, errTest))

	attempts, err := Retry(func() error { return errTest }, Limit(3))
	assert.Equal(t, errTest, err)
	assert.EqualValues(t, 3, attempts)
}

func TestErrorFilters(t *testing.T) {
	known := errors.New("known")
	wrapped := errors.Wrap(known, "while submitting")

	retriable := RetriableErrors(known)
	assert.True(t, retriable(1, known))
	assert.True(t, retriable(1, wrapped))
	assert.False(t, retriable(1, errTest))

	nonRetriable := NonRetriableErrors(known)
	assert.False(t, nonRetriable(1, known))
	assert.False(t, nonRetriable(1, wrapped))
	assert.True(t, nonRetriable(1, errTest))
}

func TestBackoff_Capped(t *testing.T) {
	ts := &testSleeper{}
	sleeperImpl = ts

	s := Backoff(backoff.BinaryExponential(100*time.Millisecond), 300*time.Millisecond)
	for attempt := uint(1); attempt <= 4; attempt++ {
		assert.True(t, s(attempt, errTest))
	}

	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
		300 * time.Millisecond,
	}, ts.sleepTimes)
}

func TestBackoffWithJitter(t *testing.T) {
	ts := &testSleeper{}
	sleeperImpl = ts

	delay := 10 * time.Millisecond
	s := BackoffWithJitter(backoff.Constant(delay), time.Second, 0.1)
	for i := 0; i < 1000; i++ {
		assert.True(t, s(1, errTest))
	}

	var varied bool
	for _, d := range ts.sleepTimes {
		assert.GreaterOrEqual(t, d, 9*time.Millisecond)
		assert.LessOrEqual(t, d, 11*time.Millisecond)
		varied = varied || d != delay
	}
	assert.True(t, varied)
}

func TestContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	attempts, err := Retry(func() error {
		calls++
		if calls == 3 {
			cancel()
		}
		return errTest
	}, Context(ctx))
	assert.Equal(t, errTest, err)
	assert.EqualValues(t, 3, attempts)
}

func TestDeadline(t *testing.T) {
	assert.True(t, Deadline(time.Minute)(1, errTest))
	assert.False(t, Deadline(-time.Second)(1, errTest))
}

type testSleeper struct {
	sleepTimes []time.Duration
}

func (t *testSleeper) Sleep(d time.Duration) {
	t.sleepTimes = append(t.sleepTimes, d)
}
