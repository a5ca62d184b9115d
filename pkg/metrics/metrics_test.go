package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoApplication(t *testing.T) {
	ctx := WithApplication(context.Background(), nil)

	_, ok := ApplicationFromContext(ctx)
	assert.False(t, ok)

	// None of these should panic without an application.
	RecordCount(ctx, "count", 1)
	RecordDuration(ctx, "duration", time.Second)
	RecordEvent(ctx, "event", map[string]interface{}{"key": "value"})

	tracedCtx, end := StartTransaction(ctx, "txn")
	assert.Equal(t, ctx, tracedCtx)
	end()

	tracer := TraceMethodCall(ctx, "metrics", "TestNoApplication")
	assert.Nil(t, tracer)
	tracer.AddAttribute("key", "value")
	tracer.OnError(assert.AnError)
	tracer.End()
}

func TestWithApplication(t *testing.T) {
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName("er-transfer-test"),
		newrelic.ConfigEnabled(false),
	)
	require.NoError(t, err)

	ctx := WithApplication(context.Background(), app)

	actual, ok := ApplicationFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, app, actual)

	RecordCount(ctx, "count", 1)
	RecordDuration(ctx, "duration", time.Second)

	tracedCtx, end := StartTransaction(ctx, "txn")
	defer end()
	assert.NotNil(t, newrelic.FromContext(tracedCtx))

	tracer := TraceMethodCall(tracedCtx, "metrics", "TestWithApplication")
	require.NotNil(t, tracer)
	tracer.AddAttribute("key", "value")
	tracer.End()
}

func TestForwardedMessage(t *testing.T) {
	logger := logrus.New()

	entry := logrus.NewEntry(logger)
	entry.Message = "plain"
	assert.Equal(t, "plain", forwardedMessage(entry))

	entry = logger.WithError(errors.New("boom")).WithFields(logrus.Fields{
		"step":   "transfer",
		"amount": 5,
	})
	entry.Message = "scenario step failed"
	assert.Equal(t,
		`message="scenario step failed", error="boom", data={"amount":5,"step":"transfer"}`,
		forwardedMessage(entry),
	)
}
